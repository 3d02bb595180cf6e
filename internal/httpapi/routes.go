package httpapi

import (
	"github.com/gin-gonic/gin"
)

// registerRoutes registers all endpoints.
//
//	GET  /health                  - liveness
//	GET  /api/search/broad        - regex search (pattern, maxResults, exclude)
//	GET  /api/lookup/clear        - resolve a type identifier (identifier)
//	GET  /api/search/references   - types referencing a type (identifier, maxResults)
//	POST /api/keywords/paths      - flatten keyword lists or trees into phrases
//	POST /api/keywords/suggestion - interpret an LLM keyword reply
//	GET  /api/corpus/stats        - corpus counts and query metrics
func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/search/broad", s.handleBroadSearch)
		api.GET("/lookup/clear", s.handleLookupClear)
		api.GET("/search/references", s.handleReferences)
		api.POST("/keywords/paths", s.handleKeywordPaths)
		api.POST("/keywords/suggestion", s.handleSuggestion)
		api.GET("/corpus/stats", s.handleCorpusStats)
	}
}
