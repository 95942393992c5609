package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Voice identifies one synthesis voice and the language it speaks.
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// Synthesizer renders text to audio.
type Synthesizer interface {
	// Voices returns the voices the backend offers.
	Voices(ctx context.Context) ([]Voice, error)
	// Synthesize renders clean (markup-free) text with the given voice.
	Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error)
}

// Player plays a rendered utterance. Play blocks until playback
// completes, fails, or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// preferredVoiceNames orders known higher-quality voices first when
// several match the resolved language.
var preferredVoiceNames = []string{"Google", "Samantha", "Microsoft"}

// SelectVoice picks a voice for the language: a preferred-name voice
// matching the language's base tag wins, then any voice matching it,
// then the first voice at all. ok is false when the catalog is empty.
func SelectVoice(voices []Voice, lang string) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	base := baseLang(lang)

	for _, pref := range preferredVoiceNames {
		for _, v := range voices {
			if strings.HasPrefix(baseLang(v.Lang), base) && strings.Contains(v.Name, pref) {
				return v, true
			}
		}
	}
	for _, v := range voices {
		if strings.HasPrefix(baseLang(v.Lang), base) {
			return v, true
		}
	}
	return voices[0], true
}

const synthesisTimeout = 60 * time.Second

// defaultVoiceCatalog is used when the backend doesn't expose a voices
// endpoint of its own.
var defaultVoiceCatalog = []Voice{
	{Name: "Google US English", Lang: "en-US"},
	{Name: "Samantha", Lang: "en-US"},
	{Name: "Microsoft Zira", Lang: "en-US"},
	{Name: "Google हिन्दी", Lang: "hi-IN"},
	{Name: "Microsoft Kalpana", Lang: "hi-IN"},
}

// HTTPSynthesizer renders speech through an OpenAI-compatible
// text-to-speech endpoint.
type HTTPSynthesizer struct {
	URL     string
	APIKey  string
	Model   string
	Catalog []Voice // defaults to defaultVoiceCatalog
	Client  *http.Client
}

// NewHTTPSynthesizer creates a synthesizer for the given endpoint.
func NewHTTPSynthesizer(url, apiKey, model string) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		URL:    url,
		APIKey: apiKey,
		Model:  model,
		Client: &http.Client{Timeout: synthesisTimeout},
	}
}

func (s *HTTPSynthesizer) Voices(_ context.Context) ([]Voice, error) {
	if len(s.Catalog) > 0 {
		return s.Catalog, nil
	}
	return defaultVoiceCatalog, nil
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	payload, _ := json.Marshal(map[string]string{
		"model": s.Model,
		"input": text,
		"voice": voice.Name,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("synthesizer: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: synthesisTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesizer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("synthesizer: API returned %d: %s", resp.StatusCode, string(body))
	}

	// Audio responses are bounded; voice replies are short utterances.
	return io.ReadAll(io.LimitReader(resp.Body, 25<<20))
}
