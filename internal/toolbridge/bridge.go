// Package toolbridge is the typed passthrough boundary to an external tool
// execution runtime, reached via the gateway's /api/v1/tools/... routes
// (§6.1). The gateway never talks to a tool runtime's wire protocol
// directly — only to this interface.
//
// Grounded on the teacher's use of mark3labs/mcp-go (Model Context Protocol
// client) for tool execution passthrough, paired with invopop/jsonschema
// for describing a tool's input schema to callers in the /tools listing
// route.
package toolbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolDescriptor describes one callable tool, as surfaced to API consumers.
type ToolDescriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// ToolResult is the normalized outcome of a tool call.
type ToolResult struct {
	Content  string `json:"content"`
	IsError  bool   `json:"isError"`
}

// Bridge is the gateway's dependency on an external tool runtime.
type Bridge interface {
	ListTools(ctx context.Context) ([]ToolDescriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error)
}

// MCPBridge implements Bridge over a Model Context Protocol client
// connection, the runtime the teacher's tool-execution code already
// depended on.
type MCPBridge struct {
	client *client.Client
}

// NewMCPBridge wraps an already-connected and initialized mcp-go client.
func NewMCPBridge(c *client.Client) *MCPBridge {
	return &MCPBridge{client: c}
}

func (b *MCPBridge) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	resp, err := b.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("toolbridge: list tools: %w", err)
	}

	out := make([]ToolDescriptor, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		schema := &jsonschema.Schema{}
		if raw, err := json.Marshal(t.InputSchema); err == nil {
			_ = json.Unmarshal(raw, schema)
		}
		out = append(out, ToolDescriptor{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return out, nil
}

func (b *MCPBridge) CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := b.client.CallTool(ctx, req)
	if err != nil {
		return ToolResult{}, fmt.Errorf("toolbridge: call tool %q: %w", name, err)
	}

	var text string
	for _, c := range resp.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			text += tc.Text
		}
	}
	return ToolResult{Content: text, IsError: resp.IsError}, nil
}
