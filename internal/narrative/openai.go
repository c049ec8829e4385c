package narrative

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIOptions parameterise the completion client.
type OpenAIOptions struct {
	APIKey      string
	Model       string
	Temperature float64
}

type openAICompleter struct {
	client      *openai.Client
	model       openai.ChatModel
	temperature float64
}

func newOpenAICompleter(opts OpenAIOptions) *openAICompleter {
	client := openai.NewClient(option.WithAPIKey(opts.APIKey))
	model := openai.ChatModel(opts.Model)
	if opts.Model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &openAICompleter{
		client:      &client,
		model:       model,
		temperature: opts.Temperature,
	}
}

func (c *openAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Temperature: openai.Float(c.temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ completer = (*openAICompleter)(nil)
