package speech

import (
	"context"
	"errors"
	"net/http"
	"os"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(apiKey, model string, httpClient *http.Client) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai: no API key")
	}
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Transcribe(ctx context.Context, clip Clip) (string, error) {
	f, err := os.Open(clip.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	tr, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(o.model),
	})
	if err != nil {
		return "", err
	}
	return tr.Text, nil
}
