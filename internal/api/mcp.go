package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/prepd/internal/attempts"
	"github.com/kalambet/prepd/internal/performance"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Tracker  *performance.Tracker
	Attempts *attempts.Log
	Version  string
}

// NewMCPServer creates an MCP server with all prepd tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"prepd",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("prepd tracks interview-practice performance and reports a readiness level."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("record_interview",
			mcp.WithDescription("Record a completed mock interview and return the updated performance level."),
			mcp.WithNumber("accuracy", mcp.Description("Interview accuracy, 0 to 100"), mcp.Required()),
		),
		mcpRecordInterview(deps),
	)

	s.AddTool(
		mcp.NewTool("record_test",
			mcp.WithDescription("Record a completed practice test and return the updated performance level."),
			mcp.WithNumber("accuracy", mcp.Description("Test accuracy, 0 to 100"), mcp.Required()),
			mcp.WithString("difficulty",
				mcp.Description("Test difficulty"),
				mcp.Enum("easy", "medium", "hard"),
				mcp.Required(),
			),
		),
		mcpRecordTest(deps),
	)

	s.AddTool(
		mcp.NewTool("get_performance_level",
			mcp.WithDescription("Return the current performance level with a one-sentence insight."),
		),
		mcpGetPerformanceLevel(deps),
	)

	s.AddTool(
		mcp.NewTool("submit_coding_attempt",
			mcp.WithDescription("Store code written during a practice interview."),
			mcp.WithString("language", mcp.Description("Programming language"), mcp.Required()),
			mcp.WithString("code", mcp.Description("Submitted source code"), mcp.Required()),
		),
		mcpSubmitCodingAttempt(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"performance://record",
			"Performance Record",
			mcp.WithResourceDescription("Stored performance record with level and insight as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecord(deps),
	)

	return s
}

func mcpRecordInterview(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		acc, err := req.RequireFloat("accuracy")
		if err != nil {
			return mcpError("accuracy is required"), nil
		}

		rec, err := deps.Tracker.RecordInterview(acc)
		return mcpRecordResult(rec, err), nil
	}
}

func mcpRecordTest(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		acc, err := req.RequireFloat("accuracy")
		if err != nil {
			return mcpError("accuracy is required"), nil
		}
		raw, err := req.RequireString("difficulty")
		if err != nil {
			return mcpError("difficulty is required"), nil
		}
		d, err := performance.ParseDifficulty(raw)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		rec, err := deps.Tracker.RecordTest(acc, d)
		return mcpRecordResult(rec, err), nil
	}
}

func mcpGetPerformanceLevel(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s := deps.Tracker.Summary()
		return mcpText(fmt.Sprintf("%s %s\n\n%s", s.Glyph, s.Level, s.Insight)), nil
	}
}

func mcpSubmitCodingAttempt(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		language, err := req.RequireString("language")
		if err != nil {
			return mcpError("language is required"), nil
		}
		code, err := req.RequireString("code")
		if err != nil {
			return mcpError("code is required"), nil
		}

		a, err := deps.Attempts.Submit(language, code)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to submit: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Stored %s attempt %s", a.Language, a.ID)), nil
	}
}

func mcpResourceRecord(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Tracker.Summary())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal performance: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// mcpRecordResult reports the level after an update. A failed write keeps
// the computed level in the message so the agent can relay it.
func mcpRecordResult(rec performance.Record, err error) *mcp.CallToolResult {
	if errors.Is(err, performance.ErrWriteFailed) {
		s := performance.Summarize(&rec)
		return mcpError(fmt.Sprintf("%v (computed level %s, not saved)", err, s.Level))
	}
	if err != nil {
		return mcpError(err.Error())
	}
	s := performance.Summarize(&rec)
	return mcpText(fmt.Sprintf("%s %s\n\n%s", s.Glyph, s.Level, s.Insight))
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
