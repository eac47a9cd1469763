package mock_test

import (
	"context"
	"errors"
	"testing"

	"qroute/internal/knowledge"
	"qroute/internal/llm"
	"qroute/internal/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Chat(t *testing.T) {
	t.Parallel()
	t.Run("delegates to ChatFn", func(t *testing.T) {
		t.Parallel()
		c := mock.Client{
			ChatFn: func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
				return &llm.ChatResponse{Message: llm.Message{Content: req.Model}}, nil
			},
		}
		got, err := c.Chat(context.Background(), &llm.ChatRequest{Model: "m"})
		require.NoError(t, err)
		assert.Equal(t, "m", got.Message.Content)
		assert.Equal(t, "mock", c.Provider())
		assert.Equal(t, "mock-model", c.Model())
	})

	t.Run("panics when ChatFn not set", func(t *testing.T) {
		t.Parallel()
		c := mock.Client{}
		assert.Panics(t, func() {
			_, _ = c.Chat(context.Background(), &llm.ChatRequest{})
		})
	})
}

func TestScriptedClient(t *testing.T) {
	t.Parallel()
	t.Run("replays steps in order", func(t *testing.T) {
		t.Parallel()
		c := &mock.ScriptedClient{Steps: []mock.Step{
			mock.ToolCalls(mock.Call("c1", "calculate", `{"expression":"1+1"}`)),
			mock.Text("two"),
		}}

		first, err := c.Chat(context.Background(), &llm.ChatRequest{MaxTokens: 1})
		require.NoError(t, err)
		assert.True(t, first.Message.HasToolCalls())

		second, err := c.Chat(context.Background(), &llm.ChatRequest{MaxTokens: 2})
		require.NoError(t, err)
		assert.Equal(t, "two", second.Message.Content)

		reqs := c.Requests()
		require.Len(t, reqs, 2)
		assert.Equal(t, 2, reqs[1].MaxTokens)
	})

	t.Run("overrun reports and errors", func(t *testing.T) {
		t.Parallel()
		overrun := false
		c := &mock.ScriptedClient{Overrun: func(*llm.ChatRequest) { overrun = true }}
		_, err := c.Chat(context.Background(), &llm.ChatRequest{})
		assert.Error(t, err)
		assert.True(t, overrun)
		assert.Equal(t, 1, c.Calls())
	})

	t.Run("requests are snapshots", func(t *testing.T) {
		t.Parallel()
		c := &mock.ScriptedClient{Steps: []mock.Step{mock.Text("ok")}}
		req := &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}}
		_, err := c.Chat(context.Background(), req)
		require.NoError(t, err)

		req.Messages[0].Content = "changed"
		assert.Equal(t, "hi", c.Requests()[0].Messages[0].Content)
	})

	t.Run("fail step", func(t *testing.T) {
		t.Parallel()
		wantErr := errors.New("api error")
		c := &mock.ScriptedClient{Steps: []mock.Step{mock.Fail(wantErr)}}
		_, err := c.Chat(context.Background(), &llm.ChatRequest{})
		assert.ErrorIs(t, err, wantErr)
	})
}

func TestSearcher(t *testing.T) {
	t.Parallel()
	s := mock.Searcher{
		SearchFn: func(ctx context.Context, query string, limit int) ([]knowledge.Hit, error) {
			return []knowledge.Hit{{PageID: int64(limit), Title: query}}, nil
		},
		FetchExtractFn: func(ctx context.Context, pageID int64) (*knowledge.Page, error) {
			return &knowledge.Page{PageID: pageID}, nil
		},
	}

	hits, err := s.Search(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Equal(t, []knowledge.Hit{{PageID: 3, Title: "q"}}, hits)

	page, err := s.FetchExtract(context.Background(), 9)
	require.NoError(t, err)
	assert.EqualValues(t, 9, page.PageID)
}
