package brain

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

type Gemini struct {
	client *genai.Client
	models Models
}

// NewGemini builds a Gemini API client. httpClient may be nil.
func NewGemini(ctx context.Context, apiKey string, models Models, httpClient *http.Client) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: no API key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return &Gemini{client: client, models: models}, nil
}

func (g *Gemini) Generate(ctx context.Context, mode Mode, input string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.models.For(mode), genai.Text(input), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt(mode), genai.RoleUser),
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (g *Gemini) StartSession(ctx context.Context, mode Mode, history []Turn) (Session, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		role := genai.Role(genai.RoleUser)
		if t.Role == TurnModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}

	chat, err := g.client.Chats.Create(ctx, g.models.For(mode), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SessionPrompt(mode), genai.RoleUser),
	}, contents)
	if err != nil {
		return nil, err
	}

	return &geminiSession{id: uuid.New(), mode: mode, chat: chat}, nil
}

type geminiSession struct {
	id   uuid.UUID
	mode Mode
	chat *genai.Chat
}

func (s *geminiSession) ID() uuid.UUID { return s.id }
func (s *geminiSession) Mode() Mode    { return s.mode }

func (s *geminiSession) Send(ctx context.Context, input string) (string, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Part{Text: input})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
