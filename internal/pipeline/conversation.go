package pipeline

import (
	"time"

	"qroute/internal/llm"
)

// Conversation is the ordered message list of a single request. It only
// grows, and it is not safe for concurrent use.
type Conversation struct {
	messages []llm.Message
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds msg at the end, stamping it if it carries no timestamp
func (c *Conversation) Append(msg llm.Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the messages in order
func (c *Conversation) Messages() []llm.Message {
	return append([]llm.Message(nil), c.messages...)
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

// Roles returns the role of every message in order
func (c *Conversation) Roles() []llm.Role {
	roles := make([]llm.Role, len(c.messages))
	for i, m := range c.messages {
		roles[i] = m.Role
	}
	return roles
}

// Last returns the most recent message
func (c *Conversation) Last() (llm.Message, bool) {
	if len(c.messages) == 0 {
		return llm.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// ToolCallCount counts tool invocations across all assistant messages
func (c *Conversation) ToolCallCount() int {
	n := 0
	for _, m := range c.messages {
		n += len(m.ToolCalls)
	}
	return n
}
