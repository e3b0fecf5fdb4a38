// Package openaiofficial provides an OpenAI chat-completions client built on the
// official OpenAI Go package. It also serves OpenAI-compatible endpoints such as Groq.
package openaiofficial

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/agent/llmerrors"
	"projectgen/pkg/config"
)

// OfficialClient wraps the official OpenAI Go client to implement llm.LLMClient.
//
//nolint:govet // Simple struct, field alignment not critical
type OfficialClient struct {
	client openai.Client
	model  string
}

// NewOfficialClient creates a raw OpenAI client; middleware is applied by the factory.
func NewOfficialClient(apiKey, model string, opts ...option.RequestOption) llm.LLMClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &OfficialClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// NewGroqClient targets Groq's OpenAI-compatible endpoint.
func NewGroqClient(apiKey, model string, opts ...option.RequestOption) llm.LLMClient {
	return NewOfficialClient(apiKey, model, append([]option.RequestOption{option.WithBaseURL(config.GroqBaseURL)}, opts...)...)
}

// isReasoningModel reports o-series models, which reject a temperature.
func isReasoningModel(model string) bool {
	return strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4")
}

func convertMessages(messages []llm.CompletionMessage) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			for j := range msg.ToolCalls {
				call := &msg.ToolCalls[j]
				args, err := json.Marshal(call.Parameters)
				if err != nil {
					return nil, err
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		default:
			// Tool results are separate "tool" role messages in this API.
			for j := range msg.ToolResults {
				res := &msg.ToolResults[j]
				out = append(out, openai.ToolMessage(res.Content, res.ToolCallID))
			}
			if msg.Content != "" || len(msg.ToolResults) == 0 {
				out = append(out, openai.UserMessage(msg.Content))
			}
		}
	}
	return out, nil
}

func convertTools(in *llm.CompletionRequest) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(in.Tools))
	for i := range in.Tools {
		def := &in.Tools[i]
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.InputSchema.ToMap()),
			},
		})
	}
	return out
}

func toolChoice(choice string) openai.ChatCompletionToolChoiceOptionUnionParam {
	if name := llm.ForcedTool(choice); name != "" {
		return openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{Name: name},
			},
		}
	}
	mode := "auto"
	switch choice {
	case llm.ToolChoiceAny:
		mode = "required"
	case llm.ToolChoiceNone:
		mode = "none"
	}
	return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String(mode)}
}

// Complete implements the llm.LLMClient interface using the chat completions API.
//
//nolint:gocritic // CompletionRequest passed by value to match interface
func (o *OfficialClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if err := in.Validate(); err != nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "invalid request")
	}
	messages, err := convertMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "failed to encode tool call arguments")
	}

	// Cap MaxTokens to the model's limit to prevent API errors
	maxTokens := in.EffectiveMaxTokens()
	if info, ok := config.KnownModels[o.model]; ok && info.MaxOutputTokens > 0 && maxTokens > info.MaxOutputTokens {
		maxTokens = info.MaxOutputTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(o.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	if !isReasoningModel(o.model) {
		params.Temperature = openai.Float(float64(in.Temperature))
	}
	if len(in.Tools) > 0 {
		params.Tools = convertTools(&in)
		params.ToolChoice = toolChoice(in.ToolChoice)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "no choices in OpenAI response")
	}

	choice := resp.Choices[0]
	var toolCalls []llm.ToolCall
	for i := range choice.Message.ToolCalls {
		call := &choice.Message.ToolCalls[i]
		var params map[string]any
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &params); err != nil {
				return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeEmptyResponse, err, "failed to parse tool arguments")
			}
		}
		toolCalls = append(toolCalls, llm.ToolCall{ID: call.ID, Name: call.Function.Name, Parameters: params})
	}

	if choice.Message.Content == "" && len(toolCalls) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "OpenAI returned neither content nor tool calls")
	}

	return llm.CompletionResponse{
		Content:    choice.Message.Content,
		ToolCalls:  toolCalls,
		StopReason: string(choice.FinishReason),
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// GetModelName returns the model name for this client.
func (o *OfficialClient) GetModelName() string {
	return o.model
}

func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llmerrors.FromStatus(apiErr.StatusCode, err)
	}
	return llmerrors.Classify(err)
}
