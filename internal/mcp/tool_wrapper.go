package mcp

import (
	"context"
	"encoding/json"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/relaycode/relay/internal/logging"
	"github.com/relaycode/relay/internal/tool"
)

// MCPToolWrapper adapts an MCP-provided tool to the host's tool.Tool
// interface, so server tools sit in the registry next to the built-ins and
// run through the same agentic loop.
type MCPToolWrapper struct {
	mcpTool Tool    // metadata, name already server-prefixed by client.Tools()
	client  *Client // executes the call on the owning server
}

// NewMCPToolWrapper creates a wrapper for an MCP tool.
func NewMCPToolWrapper(mcpTool Tool, client *Client) *MCPToolWrapper {
	return &MCPToolWrapper{mcpTool: mcpTool, client: client}
}

// ID returns the prefixed tool name (e.g., "serverName_toolName").
func (w *MCPToolWrapper) ID() string { return w.mcpTool.Name }

// Description returns the tool description.
func (w *MCPToolWrapper) Description() string { return w.mcpTool.Description }

// Parameters returns the JSON Schema for tool parameters.
func (w *MCPToolWrapper) Parameters() json.RawMessage { return w.mcpTool.InputSchema }

// Execute routes the call to the owning MCP server.
func (w *MCPToolWrapper) Execute(ctx context.Context, input json.RawMessage, toolCtx *tool.Context) (*tool.Result, error) {
	output, err := w.client.ExecuteTool(ctx, w.mcpTool.Name, input)
	if err != nil {
		return nil, err
	}

	if toolCtx != nil {
		toolCtx.SetMetadata(w.mcpTool.Name, map[string]any{
			"type":   "mcp",
			"tool":   w.mcpTool.Name,
			"output": output,
		})
	}

	return &tool.Result{
		Title:  w.mcpTool.Name,
		Output: output,
	}, nil
}

// EinoTool returns an Eino-compatible tool implementation.
func (w *MCPToolWrapper) EinoTool() einotool.InvokableTool {
	return &mcpEinoWrapper{wrapper: w}
}

// mcpEinoWrapper implements Eino's InvokableTool interface for MCP tools.
type mcpEinoWrapper struct {
	wrapper *MCPToolWrapper
}

// Info returns the tool information.
func (e *mcpEinoWrapper) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        e.wrapper.ID(),
		Desc:        e.wrapper.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(parseInputSchemaToParams(e.wrapper.mcpTool.InputSchema)),
	}, nil
}

// InvokableRun executes the tool.
func (e *mcpEinoWrapper) InvokableRun(ctx context.Context, argsJSON string, opts ...einotool.Option) (string, error) {
	result, err := e.wrapper.Execute(ctx, json.RawMessage(argsJSON), nil)
	if err != nil {
		return "", err
	}
	return result.Output, nil
}

// schemaParamTypes maps JSON Schema type names onto Eino parameter types.
var schemaParamTypes = map[string]schema.DataType{
	"string":  schema.String,
	"integer": schema.Integer,
	"number":  schema.Number,
	"boolean": schema.Boolean,
	"array":   schema.Array,
	"object":  schema.Object,
}

// parseInputSchemaToParams converts an MCP input schema to Eino
// ParameterInfo. Unknown property types default to string.
func parseInputSchemaToParams(schemaJSON json.RawMessage) map[string]*schema.ParameterInfo {
	var doc struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schemaJSON, &doc); err != nil {
		return nil
	}

	required := make(map[string]bool, len(doc.Required))
	for _, name := range doc.Required {
		required[name] = true
	}

	params := make(map[string]*schema.ParameterInfo, len(doc.Properties))
	for name, prop := range doc.Properties {
		paramType, ok := schemaParamTypes[prop.Type]
		if !ok {
			paramType = schema.String
		}
		params[name] = &schema.ParameterInfo{
			Type:     paramType,
			Desc:     prop.Description,
			Required: required[name],
		}
	}
	return params
}

// RegisterMCPTools wraps every tool the connected servers expose and
// registers them alongside the built-ins.
func RegisterMCPTools(client *Client, registry *tool.Registry) {
	if client == nil || registry == nil {
		return
	}

	tools := client.Tools()
	for _, mcpTool := range tools {
		registry.Register(NewMCPToolWrapper(mcpTool, client))
	}
	if len(tools) > 0 {
		logging.Debug().Int("tools", len(tools)).Msg("mcp tools registered")
	}
}
