package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	qmcp "qroute/internal/mcp"
	"qroute/internal/pipeline"
	"qroute/internal/router"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type processorFunc func(ctx context.Context, query string) (*pipeline.Result, error)

func (f processorFunc) Process(ctx context.Context, query string) (*pipeline.Result, error) {
	return f(ctx, query)
}

// connect starts srv on an in-memory transport and returns a client session
func connect(t *testing.T, srv *qmcp.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := srv.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestServer_ListsAskTool(t *testing.T) {
	srv := qmcp.NewServer(processorFunc(nil), "test", nil)
	session := connect(t, srv)

	var names []string
	for tool, err := range session.Tools(context.Background(), nil) {
		require.NoError(t, err)
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"ask"}, names)
}

func TestServer_Ask(t *testing.T) {
	srv := qmcp.NewServer(processorFunc(func(_ context.Context, query string) (*pipeline.Result, error) {
		return &pipeline.Result{ID: "r1", Query: query, Route: router.RouteCalculate, Response: "2 + 2 = 4"}, nil
	}), "test", nil)
	session := connect(t, srv)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      qmcp.ToolName,
		Arguments: map[string]any{"query": "2+2"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "2 + 2 = 4", text.Text)

	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out qmcp.AskOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, qmcp.AskOutput{ID: "r1", Query: "2+2", Route: "calculate", Response: "2 + 2 = 4"}, out)
}

func TestServer_AskFailureIsToolError(t *testing.T) {
	srv := qmcp.NewServer(processorFunc(func(context.Context, string) (*pipeline.Result, error) {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrClassification, errors.New("401"))
	}), "test", nil)
	session := connect(t, srv)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      qmcp.ToolName,
		Arguments: map[string]any{"query": "hi"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	assert.Contains(t, res.Content[0].(*mcp.TextContent).Text, "classification failed")
}
