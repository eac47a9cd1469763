// Package mcp serves the query pipeline as a Model Context Protocol tool.
package mcp

import (
	"context"
	"errors"

	"qroute/internal/logger"
	"qroute/internal/pipeline"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolName is the name of the exposed MCP tool
const ToolName = "ask"

// Processor answers a single query
type Processor interface {
	Process(ctx context.Context, query string) (*pipeline.Result, error)
}

// AskInput is the argument object of the ask tool
type AskInput struct {
	Query string `json:"query" jsonschema:"The question or arithmetic expression to answer"`
}

// AskOutput is the structured result of the ask tool
type AskOutput struct {
	ID       string `json:"id"`
	Query    string `json:"query"`
	Route    string `json:"route"`
	Response string `json:"response"`
}

// Server wraps an MCP server exposing the ask tool
type Server struct {
	server    *mcp.Server
	processor Processor
	log       *logger.Logger
}

// NewServer creates an MCP server backed by processor
func NewServer(processor Processor, version string, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}

	impl := &mcp.Implementation{
		Name:    "qroute",
		Version: version,
	}

	s := &Server{
		server:    mcp.NewServer(impl, nil),
		processor: processor,
		log:       log,
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name: ToolName,
		Description: "Answer a question. Arithmetic is computed exactly, factual questions are " +
			"looked up on Wikipedia, anything else is answered directly.",
	}, s.ask)

	return s
}

// MCP returns the underlying SDK server
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Run serves over stdin/stdout until the client disconnects or ctx ends
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("Serving MCP over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) ask(ctx context.Context, _ *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, AskOutput, error) {
	result, err := s.processor.Process(ctx, in.Query)
	if err != nil {
		if !errors.Is(err, pipeline.ErrEmptyQuery) {
			s.log.Error("ask failed: %v", err)
		}
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		}, AskOutput{}, nil
	}

	out := AskOutput{
		ID:       result.ID,
		Query:    result.Query,
		Route:    string(result.Route),
		Response: result.Response,
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: result.Response}},
	}, out, nil
}
