package brain

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type OpenAI struct {
	client openai.Client
	models Models
}

// NewOpenAI builds a chat completions client. httpClient may be nil.
func NewOpenAI(apiKey string, models Models, httpClient *http.Client) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai: no API key")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &OpenAI{client: openai.NewClient(opts...), models: models}, nil
}

func (o *OpenAI) Generate(ctx context.Context, mode Mode, input string) (string, error) {
	return o.complete(ctx, mode, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(SystemPrompt(mode)),
		openai.UserMessage(input),
	})
}

func (o *OpenAI) StartSession(_ context.Context, mode Mode, history []Turn) (Session, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	msgs = append(msgs, openai.SystemMessage(SessionPrompt(mode)))
	for _, t := range history {
		if t.Role == TurnModel {
			msgs = append(msgs, openai.AssistantMessage(t.Text))
		} else {
			msgs = append(msgs, openai.UserMessage(t.Text))
		}
	}
	return &openaiSession{id: uuid.New(), mode: mode, owner: o, msgs: msgs}, nil
}

func (o *OpenAI) complete(ctx context.Context, mode Mode, msgs []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    openai.ChatModel(o.models.For(mode)),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// openaiSession keeps the transcript client-side; chat completions are
// stateless.
type openaiSession struct {
	id    uuid.UUID
	mode  Mode
	owner *OpenAI
	msgs  []openai.ChatCompletionMessageParamUnion
}

func (s *openaiSession) ID() uuid.UUID { return s.id }
func (s *openaiSession) Mode() Mode    { return s.mode }

func (s *openaiSession) Send(ctx context.Context, input string) (string, error) {
	msgs := append(s.msgs, openai.UserMessage(input))

	reply, err := s.owner.complete(ctx, s.mode, msgs)
	if err != nil {
		return "", err
	}

	s.msgs = append(msgs, openai.AssistantMessage(reply))
	return reply, nil
}
