package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingClient struct{}

func (blockingClient) Chat(ctx context.Context, _ *ChatRequest) (*ChatResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (blockingClient) Provider() string { return "blocking" }
func (blockingClient) Model() string    { return "none" }

func TestWithTimeout(t *testing.T) {
	c := WithTimeout(blockingClient{}, 10*time.Millisecond)

	start := time.Now()
	_, err := c.Chat(context.Background(), &ChatRequest{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "blocking", c.Provider())
}

func TestWithTimeout_Disabled(t *testing.T) {
	inner := blockingClient{}
	assert.Equal(t, Client(inner), WithTimeout(inner, 0))
}

func TestWithTimeout_Rewrap(t *testing.T) {
	inner := blockingClient{}
	c := WithTimeout(WithTimeout(inner, time.Hour), 10*time.Millisecond)

	tc, ok := c.(*timeoutClient)
	require.True(t, ok)
	assert.Equal(t, Client(inner), tc.Client)
	assert.Equal(t, 10*time.Millisecond, tc.timeout)
}

func TestMessage_HasToolCalls(t *testing.T) {
	assert.False(t, Message{}.HasToolCalls())
	assert.True(t, Message{ToolCalls: []*ToolCall{{ID: "1"}}}.HasToolCalls())
}
