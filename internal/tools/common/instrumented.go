package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/propertyinbox/internal/instrumentation"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Instrumentation bundles what tool handlers report to. Either field may be
// nil.
type Instrumentation struct {
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// InstrumentedToolHandler wraps a tool handler with metrics and audit logging.
// It records tool invocation metrics and logs the invocation for audit purposes.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", inst, handler))
func InstrumentedToolHandler(toolName string, inst Instrumentation, handler ToolHandler) ToolHandler {
	if inst.Metrics == nil && inst.Audit == nil {
		return handler
	}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).WithSpanContext(ctx)

		result, err := handler(ctx, request)
		duration := time.Since(start)

		// An error result is a failed invocation even without a Go error
		failed := err != nil || (result != nil && result.IsError)
		invocation.Complete(!failed, err)
		instrumentation.EndSpan(span, err)

		if inst.Metrics != nil {
			status := instrumentation.StatusSuccess
			if failed {
				status = instrumentation.StatusError
			}
			inst.Metrics.RecordToolInvocation(ctx, toolName, status, duration)
		}
		if inst.Audit != nil {
			inst.Audit.LogToolInvocation(invocation)
		}

		return result, err
	}
}
