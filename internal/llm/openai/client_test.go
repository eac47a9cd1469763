package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"qroute/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer serves /v1/chat/completions, records the decoded request and
// replies with body.
func newTestServer(t *testing.T, body string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		*captured = req
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Chat_ForcedToolChoice(t *testing.T) {
	var captured map[string]any
	srv := newTestServer(t, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"choices": [{
			"index": 0,
			"finish_reason": "tool_calls",
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{
					"id": "call_1",
					"type": "function",
					"function": {"name": "calculate", "arguments": "{\"expression\":\"2+2\"}"}
				}]
			}
		}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`, &captured)

	client := NewClient("test-key", "default-model", srv.URL+"/v1")

	resp, err := client.Chat(context.Background(), &llm.ChatRequest{
		Model: "tool-model",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "sys"},
			{Role: llm.RoleUser, Content: "2+2"},
		},
		Tools: []*llm.ToolDefinition{{
			Type: "function",
			Function: &llm.FunctionDef{
				Name:        "calculate",
				Description: "Evaluate a mathematical expression",
				Parameters:  map[string]any{"type": "object"},
			},
		}},
		ToolChoice: "calculate",
		MaxTokens:  4096,
	})
	require.NoError(t, err)

	assert.Equal(t, "tool-model", captured["model"])
	assert.EqualValues(t, 4096, captured["max_completion_tokens"])
	assert.NotEqual(t, true, captured["stream"])
	assert.Equal(t, map[string]any{
		"type":     "function",
		"function": map[string]any{"name": "calculate"},
	}, captured["tool_choice"])

	assert.Equal(t, llm.StopReasonToolCalls, resp.StopReason)
	require.Len(t, resp.Message.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.Message.ToolCalls[0].ID)
	assert.Equal(t, "calculate", resp.Message.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"expression":"2+2"}`, resp.Message.ToolCalls[0].Function.Arguments)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestClient_Chat_PlainCompletion(t *testing.T) {
	var captured map[string]any
	srv := newTestServer(t, `{
		"choices": [{
			"index": 0,
			"finish_reason": "stop",
			"message": {"role": "assistant", "content": "TOOL: SEARCH"}
		}]
	}`, &captured)

	client := NewClient("test-key", "default-model", srv.URL+"/v1")

	resp, err := client.Chat(context.Background(), &llm.ChatRequest{
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "what is go?"}},
		MaxTokens: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, "default-model", captured["model"])
	assert.NotContains(t, captured, "tool_choice")
	assert.NotContains(t, captured, "tools")
	assert.Equal(t, "TOOL: SEARCH", resp.Message.Content)
	assert.Equal(t, llm.StopReasonStop, resp.StopReason)
	assert.False(t, resp.Message.HasToolCalls())
}

func TestClient_Chat_ToolMessageCarriesCallID(t *testing.T) {
	var captured map[string]any
	srv := newTestServer(t, `{"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"4"}}]}`, &captured)

	client := NewClient("test-key", "m", srv.URL+"/v1")

	_, err := client.Chat(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "2+2"},
			{Role: llm.RoleAssistant, ToolCalls: []*llm.ToolCall{{
				ID: "call_9", Type: "function",
				Function: &llm.FunctionCall{Name: "calculate", Arguments: `{"expression":"2+2"}`},
			}}},
			{Role: llm.RoleTool, ToolCallID: "call_9", Name: "calculate", Content: `{"result":4}`},
		},
	})
	require.NoError(t, err)

	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)
	toolMsg := msgs[2].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_9", toolMsg["tool_call_id"])
	assert.Equal(t, "calculate", toolMsg["name"])
}

func TestClient_Chat_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", "m", srv.URL+"/v1")
	_, err := client.Chat(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
}

func TestClient_ProviderAndModel(t *testing.T) {
	client := NewClient("k", "llama3-70b-8192")
	assert.Equal(t, "openai", client.Provider())
	assert.Equal(t, "llama3-70b-8192", client.Model())
}
