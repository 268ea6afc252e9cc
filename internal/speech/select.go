package speech

import (
	"context"
	log "log/slog"
	"net/http"
	"os"

	"alfred/internal/config"
)

// FromConfig builds the transcription chain from whatever is available:
// the configured cloud provider first, the other cloud provider second
// and a local whisper model last.
func FromConfig(ctx context.Context, cfg *config.Config, httpClient *http.Client) (*Chain, error) {
	var providers []Provider

	gemini := func() {
		if cfg.GeminiAPIKey == "" {
			return
		}
		model := cfg.TranscribeModel
		if cfg.Provider != config.ProviderGemini {
			model = config.GeminiTranscribeModel
		}
		p, err := NewGemini(ctx, cfg.GeminiAPIKey, model, httpClient)
		if err != nil {
			log.Warn("Gemini transcription unavailable", "err", err)
			return
		}
		providers = append(providers, p)
	}
	openAI := func() {
		if cfg.OpenAIAPIKey == "" {
			return
		}
		model := cfg.TranscribeModel
		if cfg.Provider != config.ProviderOpenAI {
			model = config.OpenAITranscribeModel
		}
		p, err := NewOpenAI(cfg.OpenAIAPIKey, model, httpClient)
		if err != nil {
			log.Warn("OpenAI transcription unavailable", "err", err)
			return
		}
		providers = append(providers, p)
	}

	if cfg.Provider == config.ProviderOpenAI {
		openAI()
		gemini()
	} else {
		gemini()
		openAI()
	}

	if cfg.WhisperModel != "" {
		if _, err := os.Stat(cfg.WhisperModel); err == nil {
			w, err := NewWhisper(cfg.WhisperModel, "auto")
			if err != nil {
				log.Warn("Local whisper unavailable", "err", err)
			} else {
				providers = append(providers, w)
			}
		} else {
			log.Debug("Whisper model not found", "path", cfg.WhisperModel)
		}
	}

	return NewChain(cfg.ScratchFile(), providers...)
}
