// Package webhook accepts helpdesk queries over plain HTTP so campus
// systems (the student portal, kiosk terminals) can relay questions
// without a chat platform in between.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/unibot-io/unibot/internal/connector"
)

// Config maps source names to their authentication settings.
// e.g. {"portal": {...}, "kiosk": {...}}
type Config struct {
	Sources map[string]SourceConfig `json:"sources"`
}

// SourceConfig holds per-source webhook authentication.
type SourceConfig struct {
	// Secret enables HMAC-SHA256 verification of the request body
	// against the X-Hub-Signature-256 header.
	Secret string `json:"secret,omitempty"`
	// BearerToken is checked against the Authorization header when
	// Secret is empty.
	BearerToken string `json:"bearer_token,omitempty"`
}

// QueryPayload is the JSON body a source posts.
type QueryPayload struct {
	Student string `json:"student"` // display name of the student asking
	ChatID  string `json:"chat_id"` // source-side conversation key
	Query   string `json:"query"`
}

// QueryReply is the JSON body returned to the source.
type QueryReply struct {
	Reply string `json:"reply"`
}

// Handler serves POST /api/webhook/{source} and answers synchronously.
type Handler struct {
	config  Config
	handler connector.InboundHandler
	logger  *slog.Logger
}

func New(cfg Config, handler connector.InboundHandler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		config:  cfg,
		handler: handler,
		logger:  logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := sourceName(r.URL.Path)
	if name == "" {
		http.Error(w, "missing source name in path", http.StatusBadRequest)
		return
	}

	source, ok := h.config.Sources[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown webhook source: %s", name), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !h.authenticate(r, source, body) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var payload QueryPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if payload.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	inbound := connector.InboundMessage{
		Channel:    "webhook:" + name,
		SenderID:   name,
		SenderName: payload.Student,
		ChatID:     payload.ChatID,
		Content:    payload.Query,
	}
	if inbound.ChatID == "" {
		inbound.ChatID = name
	}

	reply, err := h.handler(r.Context(), inbound)
	if err != nil {
		h.logger.Error("webhook handler error", "source", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(QueryReply{Reply: reply})
}

func (h *Handler) authenticate(r *http.Request, source SourceConfig, body []byte) bool {
	if source.Secret != "" {
		sig := r.Header.Get("X-Hub-Signature-256")
		return verifyHMAC(body, source.Secret, sig)
	}

	if source.BearerToken != "" {
		return r.Header.Get("Authorization") == "Bearer "+source.BearerToken
	}

	// No auth configured, allow (for development)
	return true
}

// verifyHMAC checks an HMAC-SHA256 signature of the form "sha256=<hex>".
func verifyHMAC(body []byte, secret, signature string) bool {
	if signature == "" {
		return false
	}

	sig := strings.TrimPrefix(signature, "sha256=")
	expectedMAC, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expectedMAC)
}

// sourceName gets the last path segment from /api/webhook/{source}.
func sourceName(path string) string {
	path = strings.TrimSuffix(path, "/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// ComputeSignature generates the HMAC-SHA256 signature a source should
// attach to its request body.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
