// Package openai provides a TTS provider backed by the OpenAI speech API.
// It implements the tts.Provider interface.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/VamshiS123/visionv/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const defaultModel = oai.SpeechModelGPT4oMiniTTS

// Provider implements tts.Provider using the OpenAI audio/speech endpoint.
type Provider struct {
	client oai.Client
	model  oai.SpeechModel
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	model   string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Used in tests.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel selects the speech model (e.g., "tts-1", "gpt-4o-mini-tts").
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI TTS Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai: apiKey must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.timeout))
	}

	model := defaultModel
	if cfg.model != "" {
		model = oai.SpeechModel(cfg.model)
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  model,
	}, nil
}

// Synthesize submits the text to the OpenAI speech endpoint and returns a
// resource wrapping the audio response body.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (tts.Resource, error) {
	if req.Text == "" {
		return nil, errors.New("openai: text must not be empty")
	}

	params := oai.AudioSpeechNewParams{
		Model:          p.model,
		Input:          req.Text,
		Voice:          voiceFor(req.Voice),
		ResponseFormat: formatFor(req.Voice),
	}
	if req.Voice.Rate > 0 {
		params.Speed = oai.Float(req.Voice.Rate)
	}

	resp, err := p.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: synthesize: %w", err)
	}
	if resp == nil || resp.Body == nil {
		return nil, errors.New("openai: synthesis response missing audio body")
	}
	return tts.NewReaderResource(resp.Body), nil
}

// voiceFor maps the configured voice ID onto the OpenAI voice parameter,
// defaulting to "alloy" when unset.
func voiceFor(v tts.Voice) oai.AudioSpeechNewParamsVoice {
	if v.ID == "" {
		return oai.AudioSpeechNewParamsVoiceAlloy
	}
	return oai.AudioSpeechNewParamsVoice(v.ID)
}

// formatFor maps the configured format onto the OpenAI response format,
// defaulting to raw PCM, which the playback device consumes directly.
func formatFor(v tts.Voice) oai.AudioSpeechNewParamsResponseFormat {
	if v.Format == "" {
		return oai.AudioSpeechNewParamsResponseFormatPCM
	}
	return oai.AudioSpeechNewParamsResponseFormat(v.Format)
}
