package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Synthesizer turns text into an mp3 stream.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}

type OpenAISpeech struct {
	client openai.Client
	voice  string
	speed  float64
}

func NewOpenAISpeech(apiKey, voice string, speed float64, httpClient *http.Client) (*OpenAISpeech, error) {
	if apiKey == "" {
		return nil, errors.New("openai speech: no API key")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAISpeech{client: openai.NewClient(opts...), voice: voice, speed: speed}, nil
}

func (s *OpenAISpeech) Name() string { return "openai" }

func (s *OpenAISpeech) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelTTS1,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	}
	if s.speed > 0 && s.speed != 1 {
		params.Speed = openai.Float(s.speed)
	}

	resp, err := s.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("speech: %w", err)
	}
	return resp.Body, nil
}
