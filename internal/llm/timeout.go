package llm

import (
	"context"
	"time"
)

// WithTimeout wraps c so every Chat call is bounded by d. A non-positive d
// returns c unchanged. Wrapping an already wrapped client replaces its
// timeout instead of stacking a second one.
func WithTimeout(c Client, d time.Duration) Client {
	if tc, ok := c.(*timeoutClient); ok {
		c = tc.Client
	}
	if c == nil || d <= 0 {
		return c
	}
	return &timeoutClient{Client: c, timeout: d}
}

type timeoutClient struct {
	Client
	timeout time.Duration
}

func (c *timeoutClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.Client.Chat(ctx, req)
}
