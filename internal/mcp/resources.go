package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// QueryMetricsURI identifies the query telemetry resource.
const QueryMetricsURI = "symdex://query_metrics"

// QueryMetricsOutput is the JSON structure for the query_metrics resource.
type QueryMetricsOutput struct {
	Summary             QueryMetricsSummary `json:"summary"`
	OperationCounts     map[string]int64    `json:"operation_counts"`
	TopTerms            []QueryTermCount    `json:"top_terms"`
	ZeroResultQueries   []string            `json:"zero_result_queries"`
	LatencyDistribution map[string]int64    `json:"latency_distribution"`
}

// QueryMetricsSummary provides overview statistics.
type QueryMetricsSummary struct {
	TotalQueries     int64   `json:"total_queries"`
	ZeroResultPct    float64 `json:"zero_result_pct"`
	ExactRepeatCount int64   `json:"exact_repeat_count"`
	Since            string  `json:"since"`
}

// QueryTermCount represents a term and its frequency.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         QueryMetricsURI,
			Description: "Query telemetry: operation counts, top terms, zero-result queries, latency buckets",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			content, err := s.QueryMetricsJSON()
			if err != nil {
				return nil, MapError(err)
			}
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{{
					URI:      QueryMetricsURI,
					MIMEType: "application/json",
					Text:     string(content),
				}},
			}, nil
		},
	)
}

// QueryMetricsJSON renders the current telemetry snapshot.
func (s *Server) QueryMetricsJSON() ([]byte, error) {
	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()

	if metrics == nil {
		return nil, ErrMetricsUnavailable
	}
	snapshot := metrics.Snapshot()

	output := QueryMetricsOutput{
		Summary: QueryMetricsSummary{
			TotalQueries:     snapshot.TotalQueries,
			ZeroResultPct:    snapshot.ZeroResultPercentage(),
			ExactRepeatCount: snapshot.ExactRepeatCount,
			Since:            snapshot.Since.Format(time.RFC3339),
		},
		OperationCounts:     make(map[string]int64, len(snapshot.OperationCounts)),
		TopTerms:            make([]QueryTermCount, 0, len(snapshot.TopTerms)),
		ZeroResultQueries:   make([]string, 0, len(snapshot.ZeroResultQueries)),
		LatencyDistribution: make(map[string]int64, len(snapshot.LatencyDistribution)),
	}
	for op, count := range snapshot.OperationCounts {
		output.OperationCounts[op] = count
	}
	for _, tc := range snapshot.TopTerms {
		output.TopTerms = append(output.TopTerms, QueryTermCount{Term: tc.Term, Count: tc.Count})
	}
	for _, zq := range snapshot.ZeroResultQueries {
		output.ZeroResultQueries = append(output.ZeroResultQueries, zq.Operation+": "+zq.Query)
	}
	for bucket, count := range snapshot.LatencyDistribution {
		output.LatencyDistribution[string(bucket)] = count
	}

	return json.MarshalIndent(output, "", "  ")
}
