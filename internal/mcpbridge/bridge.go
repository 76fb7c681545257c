package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/warp-js/ipc-server/internal/host"
	"github.com/warp-js/ipc-server/internal/protocol"
)

// Dispatcher sends an event to an extension and waits for its reply.
// *dispatch.Caller satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, target, event string, payload any) (*protocol.Envelope, error)
}

// Bridge holds the tool registry backing an MCP server.
type Bridge struct {
	log        *slog.Logger
	dispatcher Dispatcher
	name       string
	version    string

	mu    sync.RWMutex
	tools map[string]*bridgeTool
}

type bridgeTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// New creates an empty bridge.
func New(log *slog.Logger, dispatcher Dispatcher, name, version string) *Bridge {
	return &Bridge{
		log:        log.With("component", "mcpbridge"),
		dispatcher: dispatcher,
		name:       name,
		version:    version,
		tools:      make(map[string]*bridgeTool, 8),
	}
}

// AddTool registers def as a tool. A later definition with the same name replaces
// the earlier one.
func (b *Bridge) AddTool(def host.ToolSpec) {
	description := def.Description
	if description == "" {
		description = fmt.Sprintf("Dispatch %q to extension %q", def.Event, def.Extension)
	}

	tool := &mcp.Tool{
		Name:        def.Name,
		Description: description,
		InputSchema: &jsonschema.Schema{Type: "object"},
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.tools[def.Name] = &bridgeTool{tool: tool, handler: b.dispatchHandler(def)}
}

// AddTools registers every tool definition.
func (b *Bridge) AddTools(defs []host.ToolSpec) {
	for _, def := range defs {
		b.AddTool(def)
	}
}

// ListTools returns the registered tools sorted by name.
func (b *Bridge) ListTools() []*mcp.Tool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]*mcp.Tool, 0, len(b.tools))
	for _, name := range slices.Sorted(maps.Keys(b.tools)) {
		result = append(result, b.tools[name].tool)
	}

	return result
}

// CallTool invokes a tool directly, without an MCP session.
func (b *Bridge) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*mcp.CallToolResult, error) {
	b.mu.RLock()
	t, exists := b.tools[name]
	b.mu.RUnlock()

	if !exists {
		return ErrorResult("Tool not found: " + name), nil
	}

	return t.handler(ctx, &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: arguments,
		},
	})
}

// Server builds an MCP server exposing the registered tools.
func (b *Bridge) Server() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: b.name, Version: b.version}, nil)

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, t := range b.tools {
		server.AddTool(t.tool, t.handler)
	}

	return server
}

// Run serves the tools over transport until the client disconnects or ctx
// is cancelled.
func (b *Bridge) Run(ctx context.Context, transport mcp.Transport) error {
	b.log.Info("Serving MCP tools", "tools", len(b.ListTools()))

	return b.Server().Run(ctx, transport)
}

func (b *Bridge) dispatchHandler(def host.ToolSpec) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var payload any
		if req != nil && req.Params != nil && len(req.Params.Arguments) > 0 {
			payload = req.Params.Arguments
		}

		reply, err := b.dispatcher.Dispatch(ctx, def.Extension, def.Event, payload)
		if err != nil {
			b.log.Warn("Tool dispatch failed", "tool", def.Name, "error", err)

			return ErrorResult(err.Error()), nil
		}

		return TextResult(replyText(reply.Data)), nil
	}
}

// replyText renders reply data: JSON strings unquoted, anything else as JSON.
func replyText(data json.RawMessage) string {
	var s string
	if json.Unmarshal(data, &s) == nil {
		return s
	}

	return string(data)
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}
