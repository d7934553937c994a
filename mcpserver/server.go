// Package mcpserver exposes sequence generation as MCP tools over stdio.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"outreach_sequence_generator/catalog"
	"outreach_sequence_generator/generator"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server. The revise tool is only registered when a
// sequence store is available.
func New(orch *generator.Orchestrator, cat *catalog.Catalog, sequences SequenceStore) *server.MCPServer {
	s := server.NewMCPServer(
		"outreach-sequence-generator",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	generateTool := NewGenerateTool(orch, cat, sequences)
	s.AddTool(generateTool.Definition(), generateTool.Handle)

	if sequences != nil {
		reviseTool := NewReviseTool(orch, sequences)
		s.AddTool(reviseTool.Definition(), reviseTool.Handle)
	}
	return s
}

// ServeStdio blocks serving s on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
