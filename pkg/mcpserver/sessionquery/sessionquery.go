// Package sessionquery provides an MCP server exposing the session-query
// tool, so a different host can ask questions about Relay session files
// over MCP.
package sessionquery

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/cloudwego/eino/schema"

	"github.com/relaycode/relay/internal/handoff"
	"github.com/relaycode/relay/internal/provider"
	"github.com/relaycode/relay/pkg/types"
)

// Completer is the one-shot completion surface the server needs;
// *provider.Registry satisfies it.
type Completer interface {
	DefaultModel() (*types.Model, error)
	GetAPIKey(ref types.ModelRef) (string, error)
	Complete(ctx context.Context, ref types.ModelRef, req *provider.CompleteRequest, opts *provider.CompleteOptions) (*provider.CompleteResponse, error)
}

const answerSystemPrompt = `You answer questions about a recorded conversation transcript. Answer only
from the transcript; say so plainly when it does not contain the answer.
Quote exact paths, names, and error text where they matter.`

// NewServer creates an MCP server with the session_query tool.
func NewServer(models Completer) *server.MCPServer {
	s := server.NewMCPServer(
		"relay-session-query",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	queryTool := mcp.NewTool("session_query",
		mcp.WithDescription("Answer a question about a Relay session file's transcript"),
		mcp.WithString("sessionFile",
			mcp.Required(),
			mcp.Description("Path to the session file to query"),
		),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer from that session"),
		),
	)

	s.AddTool(queryTool, queryHandler(models))

	return s
}

// queryHandler handles the session_query tool call.
func queryHandler(models Completer) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		sessionFile, _ := args["sessionFile"].(string)
		question, _ := args["question"].(string)
		if sessionFile == "" || question == "" {
			return mcp.NewToolResultError("sessionFile and question are required"), nil
		}

		transcript, err := handoff.LoadTranscript(sessionFile)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		model, err := models.DefaultModel()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("no model available: %v", err)), nil
		}
		ref := types.ModelRef{ProviderID: model.ProviderID, ModelID: model.ID}
		apiKey, err := models.GetAPIKey(ref)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("no API key for %s: %v", ref.ProviderID, err)), nil
		}

		resp, err := models.Complete(ctx, ref, &provider.CompleteRequest{
			SystemPrompt: answerSystemPrompt,
			Messages: []*schema.Message{{
				Role:    schema.User,
				Content: "## Transcript\n\n" + transcript + "\n\n## Question\n\n" + question,
			}},
		}, &provider.CompleteOptions{APIKey: apiKey})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if resp.StopReason != provider.StopEnd {
			message := resp.ErrorMessage
			if message == "" {
				message = "LLM request failed"
			}
			return mcp.NewToolResultError(message), nil
		}

		return mcp.NewToolResultText(resp.Text), nil
	}
}
