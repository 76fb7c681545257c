// Package mcpbridge exposes extension events as MCP tools.
//
// Each tool is bound to an (extension, event) pair. Calling the tool
// dispatches its arguments to the extension and returns the reply data as
// text; dispatch failures come back as MCP error results.
package mcpbridge
