// Package gemini implements llm.Client on top of the Google Gen AI SDK.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"qroute/internal/llm"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ llm.Client = (*Client)(nil)

const defaultModel = "gemini-2.5-flash"

type Client struct {
	client *genai.Client
	model  string
}

// Option configures a [Client].
type Option func(*genai.ClientConfig, *Client)

// WithModel sets the default model ID.
func WithModel(model string) Option {
	return func(_ *genai.ClientConfig, c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the SDK at a different API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(cfg *genai.ClientConfig, _ *Client) {
		cfg.HTTPOptions.BaseURL = baseURL
	}
}

// New creates a Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	c := &Client{model: defaultModel}
	for _, o := range opts {
		o(cfg, c)
	}

	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c.client = gc
	return c, nil
}

func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	contents, system := ConvertMessages(req.Messages)
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, BuildConfig(req, system))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return ConvertResponse(resp)
}

func (c *Client) Provider() string {
	return "gemini"
}

func (c *Client) Model() string {
	return c.model
}

// BuildConfig maps request options onto a GenerateContentConfig. A forced
// tool choice becomes function calling mode ANY restricted to that name.
func BuildConfig(req *llm.ChatRequest, system string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Tools: ConvertTools(req.Tools),
	}

	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	if req.Temperature > 0 {
		temp := req.Temperature
		config.Temperature = &temp
	}

	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	if req.ToolChoice != "" {
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode:                 genai.FunctionCallingConfigModeAny,
				AllowedFunctionNames: []string{req.ToolChoice},
			},
		}
	}

	return config
}

// ConvertMessages converts llm messages into genai contents. System messages
// are joined and returned separately since Gemini takes them as a system
// instruction rather than as conversation turns.
func ConvertMessages(msgs []llm.Message) ([]*genai.Content, string) {
	var (
		result []*genai.Content
		system []string
	)

	for _, msg := range msgs {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)

		case llm.RoleUser:
			result = append(result, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})

		case llm.RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Function.Name,
						Args: functionArgs(tc.Function.Arguments),
					},
				})
			}
			result = append(result, &genai.Content{
				Role:  "model",
				Parts: parts,
			})

		case llm.RoleTool:
			result = append(result, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       msg.ToolCallID,
						Name:     msg.Name,
						Response: toolResponse(msg.Content),
					},
				}},
			})
		}
	}

	return result, strings.Join(system, "\n\n")
}

// functionArgs decodes tool-call arguments, repairing malformed JSON the way
// the executor does. Arguments that cannot be read as an object are kept
// under "arguments".
func functionArgs(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err == nil && args != nil {
		return args
	}
	if repaired, err := jsonrepair.JSONRepair(raw); err == nil {
		if err := json.Unmarshal([]byte(repaired), &args); err == nil && args != nil {
			return args
		}
	}
	return map[string]any{"arguments": raw}
}

// toolResponse keeps JSON object payloads structured; anything else is
// wrapped under "output".
func toolResponse(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj
	}
	return map[string]any{"output": content}
}

// ConvertTools converts llm tool definitions to genai tools.
func ConvertTools(tools []*llm.ToolDefinition) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		decls[i] = &genai.FunctionDeclaration{
			Name:                 t.Function.Name,
			Description:          t.Function.Description,
			ParametersJsonSchema: t.Function.Parameters,
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// ConvertResponse maps the first candidate onto an llm.ChatResponse.
// Function calls without an ID get a generated one so tool results can be
// correlated.
func ConvertResponse(resp *genai.GenerateContentResponse) (*llm.ChatResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: no candidates in response")
	}

	cand := resp.Candidates[0]
	result := &llm.ChatResponse{
		Message: llm.Message{Role: llm.RoleAssistant},
	}

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("gemini: encode function args: %w", err)
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			result.Message.ToolCalls = append(result.Message.ToolCalls, &llm.ToolCall{
				ID:   id,
				Type: "function",
				Function: &llm.FunctionCall{
					Name:      part.FunctionCall.Name,
					Arguments: string(args),
				},
			})
			continue
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	result.Message.Content = text.String()

	switch {
	case len(result.Message.ToolCalls) > 0:
		result.StopReason = llm.StopReasonToolCalls
	case cand.FinishReason == genai.FinishReasonMaxTokens:
		result.StopReason = llm.StopReasonLength
	default:
		result.StopReason = llm.StopReasonStop
	}

	if u := resp.UsageMetadata; u != nil {
		result.Usage = llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	return result, nil
}
