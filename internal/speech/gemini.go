package speech

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"google.golang.org/genai"
)

const transcribePrompt = "Transcribe this audio exactly as spoken. Output only the transcription, nothing else."

// Gemini transcribes with Gemini's audio understanding. Clips are sent
// inline; utterances are far below the inline size limit.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string, httpClient *http.Client) (*Gemini, error) {
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
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Transcribe(ctx context.Context, clip Clip) (string, error) {
	data, err := os.ReadFile(clip.Path)
	if err != nil {
		return "", err
	}

	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(transcribePrompt),
		genai.NewPartFromBytes(data, "audio/wav"),
	}, genai.RoleUser)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{content}, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
