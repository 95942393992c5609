package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Recognizer converts captured audio to text.
type Recognizer interface {
	// Transcribe converts an audio capture to text. language is a BCP 47
	// hint; empty lets the backend decide.
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

const (
	defaultRecognitionURL   = "https://api.groq.com/openai/v1/audio/transcriptions"
	defaultRecognitionModel = "whisper-large-v3-turbo"
	recognitionTimeout      = 120 * time.Second
)

// HTTPRecognizer transcribes audio through an OpenAI-compatible
// transcription endpoint.
type HTTPRecognizer struct {
	URL    string
	APIKey string
	Model  string
	Client *http.Client
}

// NewHTTPRecognizer creates a recognizer for the given endpoint. Empty
// url and model fall back to the defaults.
func NewHTTPRecognizer(url, apiKey, model string) *HTTPRecognizer {
	return &HTTPRecognizer{
		URL:    url,
		APIKey: apiKey,
		Model:  model,
		Client: &http.Client{Timeout: recognitionTimeout},
	}
}

func (r *HTTPRecognizer) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	url := r.URL
	if url == "" {
		url = defaultRecognitionURL
	}
	model := r.Model
	if model == "" {
		model = defaultRecognitionModel
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fw, err := w.CreateFormFile("file", "capture.ogg")
	if err != nil {
		return "", fmt.Errorf("recognizer: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("recognizer: %w", err)
	}

	w.WriteField("model", model)
	w.WriteField("response_format", "json")
	if language != "" {
		w.WriteField("language", baseLang(language))
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("recognizer: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+r.APIKey)

	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: recognitionTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("recognizer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("recognizer: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recognizer: API returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("recognizer: parse response: %w", err)
	}
	return result.Text, nil
}
