// Package logging configures log/slog for symdex.
//
// Without --debug, logs are text lines on stderr. With --debug, JSON logs
// are also written to a size-rotated file under ~/.symdex/logs/. In MCP
// mode stdout carries the protocol, so logs go to the file only.
package logging
