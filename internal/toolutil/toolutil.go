// Package toolutil provides shared result helpers for the transcript MCP tools.
package toolutil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TextResult wraps text in a single-content tool result.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// JSONResult renders v as 2-space indented JSON text.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return TextResult(string(data)), nil
}

// ErrorResult reports err to the caller as an error-flagged text result.
func ErrorResult(err error) *mcp.CallToolResult {
	res := TextResult("Error: " + err.Error())
	res.IsError = true
	return res
}

// Handler is the shape every transcript tool implements.
type Handler[In any] func(ctx context.Context, input In) (*mcp.CallToolResult, error)

// Wrap adapts h to the SDK signature. Errors and panics become error results
// so a failing call never tears down the session.
func Wrap[In any](tool string, h Handler[In]) mcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input In) (res *mcp.CallToolResult, _ any, _ error) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("tool panicked", slog.String("tool", tool), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
				res = ErrorResult(fmt.Errorf("internal error: %v", r))
			}
		}()

		res, err := h(ctx, input)
		if err != nil {
			slog.Warn("tool failed", slog.String("tool", tool), slog.Any("error", err))
			return ErrorResult(err), nil, nil
		}
		return res, nil, nil
	}
}
