// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the constrained compliance tools via stdio transport.
// Every tool call runs the full decision pipeline, policy guard and
// audit trail included; the protocol layer adds no side doors.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/harwell/attest/internal/agent"
	"github.com/harwell/attest/internal/apperr"
)

// Server wraps the MCP server with the compliance tools.
type Server struct {
	mcp   *server.MCPServer
	agent *agent.Agent
}

// New creates a new MCP server with all tools registered.
func New(ag *agent.Agent) *Server {
	s := &Server{agent: ag}

	s.mcp = server.NewMCPServer(
		"Attest",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("ask_question",
		mcp.WithDescription("Answer a question about regulated accounting standards from the "+
			"catalogued guidance corpus. Answers carry citations; when the corpus does not "+
			"support an answer, the tool abstains rather than guessing."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The compliance question")),
		mcp.WithString("standard", mcp.Description("Optional standard to restrict evidence to (e.g. IFRS 9)")),
	), s.askQuestion)

	s.mcp.AddTool(mcp.NewTool("analyze_document",
		mcp.WithDescription("Evaluate a catalogued document against the compliance checklist "+
			"and return per-item results with an aggregate verdict."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Catalog id of the document")),
	), s.analyzeDocument)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Search catalogued documents by content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search terms")),
	), s.searchDocuments)

	// Resource: usage guidance for LLM consumers.
	s.mcp.AddResource(
		mcp.NewResource("attest://usage", "Usage Guidance",
			mcp.WithResourceDescription("What these tools will and will not do."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readUsageResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolResult renders an agent response for the MCP client. Audit
// failures surface as tool errors because an unaudited decision must
// not be delivered.
func toolResult(resp *agent.Response, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		if errors.Is(err, apperr.ErrAuditUnavailable) {
			return mcp.NewToolResultError("audit trail unavailable; decision not delivered"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(resp, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) askQuestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	standard := ""
	if st, stErr := req.RequireString("standard"); stErr == nil {
		standard = st
	}
	return toolResult(s.agent.Ask(ctx, "mcp", question, standard))
}

func (s *Server) analyzeDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, aErr := s.agent.Analyze(ctx, "mcp", documentID)
	if aErr != nil && errors.Is(aErr, apperr.ErrNotFound) {
		return mcp.NewToolResultError("document not found: " + documentID), nil
	}
	return toolResult(resp, aErr)
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolResult(s.agent.Handle(ctx, agent.Request{
		User:  "mcp",
		Query: "search documents " + query,
	}))
}

func (s *Server) readUsageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "attest://usage",
			MIMEType: "text/markdown",
			Text:     UsageGuidance,
		},
	}, nil
}
