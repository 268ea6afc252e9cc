package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Transcription models used when the provider is not the primary one.
const (
	GeminiTranscribeModel = "gemini-2.5-flash"
	OpenAITranscribeModel = "whisper-1"
)

type Config struct {
	GeminiAPIKey string
	OpenAIAPIKey string

	// Provider selects the language model backend.
	Provider        string
	FastModel       string
	FullModel       string
	TranscribeModel string
	WhisperModel    string

	SampleRate       int
	ChunkSize        int
	SilenceThreshold float64 // RMS on [-1, 1] samples
	SilenceDuration  time.Duration
	ListenTimeout    time.Duration

	CacheDir   string
	MaxHistory int // exchanges, not entries

	Voice        string
	EspeakVoice  string
	SpeakingRate float64
	Greeting     string
	CueFile      string
	Duck         bool

	ProxyAddr  string
	BusURL     string
	SocketPath string
}

func Default() *Config {
	return &Config{
		Provider:         ProviderGemini,
		SampleRate:       16000,
		ChunkSize:        1024,
		SilenceThreshold: 0.015,
		SilenceDuration:  1500 * time.Millisecond,
		ListenTimeout:    10 * time.Second,
		CacheDir:         filepath.Join(".cache", "audio"),
		MaxHistory:       20,
		Voice:            "onyx",
		EspeakVoice:      "en",
		SpeakingRate:     1.0,
		Greeting:         "Alfred here. What do you need?",
		CueFile:          "beep.mp3",
		SocketPath:       "/tmp/alfred.sock",
	}
}

// Load reads envFile (if it exists) into the process environment and
// builds a Config from it. The cache directory is created.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return cfg, nil
}

func FromEnv() (*Config, error) {
	cfg := Default()
	p := parser{}

	cfg.GeminiAPIKey = firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	cfg.Provider = strings.ToLower(p.str("ALFRED_PROVIDER", cfg.Provider))
	switch cfg.Provider {
	case ProviderGemini:
		cfg.FastModel, cfg.FullModel = "gemini-2.5-flash", "gemini-2.5-pro"
		cfg.TranscribeModel = GeminiTranscribeModel
	case ProviderOpenAI:
		cfg.FastModel, cfg.FullModel = "gpt-5-nano", "gpt-5"
		cfg.TranscribeModel = OpenAITranscribeModel
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	cfg.FastModel = p.str("ALFRED_FAST_MODEL", cfg.FastModel)
	cfg.FullModel = p.str("ALFRED_FULL_MODEL", cfg.FullModel)
	cfg.TranscribeModel = p.str("ALFRED_TRANSCRIBE_MODEL", cfg.TranscribeModel)
	cfg.WhisperModel = p.str("WHISPER_MODEL", cfg.WhisperModel)

	cfg.SampleRate = p.int("ALFRED_SAMPLE_RATE", cfg.SampleRate)
	cfg.ChunkSize = p.int("ALFRED_CHUNK_SIZE", cfg.ChunkSize)
	cfg.SilenceThreshold = p.float("ALFRED_SILENCE_THRESHOLD", cfg.SilenceThreshold)
	cfg.SilenceDuration = p.duration("ALFRED_SILENCE_DURATION", cfg.SilenceDuration)
	cfg.ListenTimeout = p.duration("ALFRED_LISTEN_TIMEOUT", cfg.ListenTimeout)

	cfg.CacheDir = p.str("ALFRED_CACHE_DIR", cfg.CacheDir)
	cfg.MaxHistory = p.int("ALFRED_MAX_HISTORY", cfg.MaxHistory)

	cfg.Voice = p.str("ALFRED_VOICE", cfg.Voice)
	cfg.EspeakVoice = p.str("ALFRED_ESPEAK_VOICE", cfg.EspeakVoice)
	cfg.SpeakingRate = p.float("ALFRED_SPEAKING_RATE", cfg.SpeakingRate)
	cfg.Greeting = p.str("ALFRED_GREETING", cfg.Greeting)
	cfg.CueFile = p.str("ALFRED_CUE", cfg.CueFile)
	cfg.Duck = p.bool("ALFRED_DUCK", cfg.Duck)

	cfg.ProxyAddr = p.str("ALFRED_PROXY", cfg.ProxyAddr)
	cfg.BusURL = p.str("ALFRED_BUS_URL", cfg.BusURL)
	cfg.SocketPath = p.str("ALFRED_SOCKET", cfg.SocketPath)

	if p.err != nil {
		return nil, p.err
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	var errs []error

	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %d", c.SampleRate))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize))
	}
	if c.SilenceThreshold <= 0 || c.SilenceThreshold >= 1 {
		errs = append(errs, fmt.Errorf("silence threshold must be in (0, 1), got %v", c.SilenceThreshold))
	}
	if c.ListenTimeout <= 0 {
		errs = append(errs, fmt.Errorf("listen timeout must be positive, got %v", c.ListenTimeout))
	}
	if c.MaxHistory <= 0 {
		errs = append(errs, fmt.Errorf("max history must be positive, got %d", c.MaxHistory))
	}

	return errors.Join(errs...)
}

// APIKey returns the key of the configured language model provider.
func (c *Config) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

func (c *Config) ScratchFile() string {
	return filepath.Join(c.CacheDir, "temp_input.wav")
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// parser collects the first malformed variable instead of failing each call.
type parser struct {
	err error
}

func (p *parser) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
}

func (p *parser) str(key, def string) string {
	if v, ok := p.lookup(key); ok {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

// duration accepts Go durations ("1.5s") or bare seconds ("1.5").
func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return time.Duration(secs * float64(time.Second))
}
