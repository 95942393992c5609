// Package api exposes the helpdesk over REST plus a websocket event
// stream for staff dashboards.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/unibot-io/unibot/internal/conversation"
	"github.com/unibot-io/unibot/internal/ingest"
	"github.com/unibot-io/unibot/internal/knowledge"
	"github.com/unibot-io/unibot/internal/logbuf"
	"github.com/unibot-io/unibot/internal/speech"
	"github.com/unibot-io/unibot/internal/ticket"
	"github.com/unibot-io/unibot/internal/triage"
	"github.com/unibot-io/unibot/pkg/protocol"
)

// LogQuerier abstracts log entry querying to avoid coupling to logbuf directly.
type LogQuerier interface {
	Query(since time.Time, minLevel slog.Level, limit int) []logbuf.Entry
}

// Config holds API server configuration.
type Config struct {
	Host string
	Port int
	Key  string // API key for Bearer auth
}

// Server is the unibot REST API server.
type Server struct {
	engine   *triage.Engine
	convs    conversation.Store
	tickets  ticket.Store
	faqs     knowledge.Store
	importer *ingest.Importer
	speech   *speech.Coordinator
	hub      *Hub
	cfg      Config
	logger   *slog.Logger
	logs     LogQuerier
	srv      *http.Server

	// inFlight guards against overlapping triage turns on the same
	// conversation. A busy conversation answers 409.
	inFlight inFlightSet
}

// Deps bundles the collaborators the server exposes. importer, coord,
// hub, webhooks and logs may be nil; the matching endpoints degrade.
type Deps struct {
	Engine        *triage.Engine
	Conversations conversation.Store
	Tickets       ticket.Store
	FAQs          knowledge.Store
	Importer      *ingest.Importer
	Speech        *speech.Coordinator
	Hub           *Hub
	Webhooks      http.Handler
	Logs          LogQuerier
}

// NewServer creates a new API server.
func NewServer(deps Deps, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:   deps.Engine,
		convs:    deps.Conversations,
		tickets:  deps.Tickets,
		faqs:     deps.FAQs,
		importer: deps.Importer,
		speech:   deps.Speech,
		hub:      deps.Hub,
		cfg:      cfg,
		logger:   logger,
		logs:     deps.Logs,
		inFlight: newInFlightSet(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/capabilities", s.handleCapabilities)
	mux.HandleFunc("POST /api/chat", s.requireAuth(s.handleChat))
	mux.HandleFunc("GET /api/conversations", s.requireAuth(s.handleListConversations))
	mux.HandleFunc("GET /api/conversations/{id}", s.requireAuth(s.handleGetConversation))
	mux.HandleFunc("GET /api/tickets", s.requireAuth(s.handleListTickets))
	mux.HandleFunc("GET /api/tickets/stats", s.requireAuth(s.handleTicketStats))
	mux.HandleFunc("GET /api/tickets/{id}", s.requireAuth(s.handleGetTicket))
	mux.HandleFunc("POST /api/tickets/{id}/resolve", s.requireAuth(s.handleResolveTicket))
	mux.HandleFunc("POST /api/tickets/{id}/status", s.requireAuth(s.handleTicketStatus))
	mux.HandleFunc("GET /api/faqs", s.requireAuth(s.handleListFAQs))
	mux.HandleFunc("GET /api/faqs/{id}", s.requireAuth(s.handleGetFAQ))
	mux.HandleFunc("POST /api/faqs", s.requireAuth(s.handleSaveFAQ))
	mux.HandleFunc("PUT /api/faqs/{id}", s.requireAuth(s.handleUpdateFAQ))
	mux.HandleFunc("DELETE /api/faqs/{id}", s.requireAuth(s.handleDeleteFAQ))
	mux.HandleFunc("POST /api/faqs/import", s.requireAuth(s.handleImportFAQ))
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleGetLogs))
	if deps.Hub != nil {
		mux.Handle("GET /api/events", deps.Hub)
	}
	if deps.Webhooks != nil {
		mux.Handle("POST /api/webhook/{source}", deps.Webhooks)
	}

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key == "" {
			next(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.cfg.Key {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// --- Chat ---

type chatRequest struct {
	ConversationID string `json:"conversation_id"` // empty = start a new conversation
	Student        string `json:"student"`
	Message        string `json:"message"`
}

type chatResponse struct {
	ConversationID string               `json:"conversation_id"`
	Message        protocol.ChatMessage `json:"message"`
	Ticket         *protocol.Ticket     `json:"ticket,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Student == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "student is required"})
		return
	}

	convID := req.ConversationID
	if convID == "" {
		convID = conversation.NewID()
	}

	if !s.inFlight.acquire(convID) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conversation is busy"})
		return
	}
	defer s.inFlight.release(convID)

	now := time.Now()
	conv, err := s.convs.Get(convID)
	if err != nil {
		conv = &protocol.Conversation{ID: convID, Owner: req.Student, CreatedAt: now}
	}

	userMsg := protocol.ChatMessage{
		ID:        conversation.NewID(),
		Sender:    protocol.SenderUser,
		Text:      req.Message,
		Timestamp: now,
	}
	conv.Messages = append(conv.Messages, userMsg)

	result, err := s.engine.Resolve(r.Context(), req.Message, protocol.Identity{
		Name: req.Student,
		Role: protocol.RoleStudent,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	conv.Messages = append(conv.Messages, result.Message)
	if err := s.convs.Upsert(conv); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(Event{Type: "chat", Data: chatResponse{
			ConversationID: convID,
			Message:        result.Message,
			Ticket:         result.Ticket,
		}})
		if result.Ticket != nil {
			s.hub.Broadcast(Event{Type: "ticket", Data: result.Ticket})
		}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: convID,
		Message:        result.Message,
		Ticket:         result.Ticket,
	})
}

// --- Conversations ---

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	filter := conversation.Filter{Owner: r.URL.Query().Get("owner")}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = n
		}
	}
	convs, err := s.convs.List(filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if convs == nil {
		convs = []*protocol.Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.convs.Get(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// --- Tickets ---

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	filter := ticket.Filter{
		Owner:      r.URL.Query().Get("owner"),
		Department: r.URL.Query().Get("department"),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		ts := protocol.TicketStatus(status)
		filter.Status = &ts
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = n
		}
	}

	tickets, err := s.tickets.List(filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if tickets == nil {
		tickets = []*protocol.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleTicketStats(w http.ResponseWriter, _ *http.Request) {
	stats := make(map[string]int, 3)
	for _, st := range []protocol.TicketStatus{protocol.TicketOpen, protocol.TicketInProgress, protocol.TicketResolved} {
		st := st
		n, err := s.tickets.Count(ticket.Filter{Status: &st})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		stats[string(st)] = n
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.tickets.Get(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket not found"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type resolveRequest struct {
	Response string `json:"response"`
}

func (s *Server) handleResolveTicket(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Response == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "response is required"})
		return
	}

	t, err := s.tickets.Resolve(r.PathValue("id"), req.Response, time.Now())
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket not found"})
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(Event{Type: "ticket", Data: t})
	}
	writeJSON(w, http.StatusOK, t)
}

type statusRequest struct {
	Status protocol.TicketStatus `json:"status"`
}

func (s *Server) handleTicketStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	switch req.Status {
	case protocol.TicketOpen, protocol.TicketInProgress:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be open or in-progress"})
		return
	}

	if err := s.tickets.UpdateStatus(r.PathValue("id"), req.Status); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	t, err := s.tickets.Get(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket not found"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// --- FAQs ---

func (s *Server) handleListFAQs(w http.ResponseWriter, r *http.Request) {
	filter := knowledge.Filter{
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = n
		}
	}
	entries, err := s.faqs.List(filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []protocol.FAQEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetFAQ(w http.ResponseWriter, r *http.Request) {
	entry, err := s.faqs.Get(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "faq not found"})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSaveFAQ(w http.ResponseWriter, r *http.Request) {
	var entry protocol.FAQEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if entry.Question == "" || entry.Answer == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question and answer are required"})
		return
	}
	if entry.ID == "" {
		entry.ID = "faq-" + conversation.NewID()
	}
	if err := s.faqs.Save(&entry); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleUpdateFAQ(w http.ResponseWriter, r *http.Request) {
	var entry protocol.FAQEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	entry.ID = r.PathValue("id")
	if _, err := s.faqs.Get(entry.ID); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "faq not found"})
		return
	}
	if err := s.faqs.Save(&entry); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteFAQ(w http.ResponseWriter, r *http.Request) {
	if err := s.faqs.Delete(r.PathValue("id")); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "faq not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type importRequest struct {
	URL      string `json:"url"`
	Category string `json:"category"`
	DryRun   bool   `json:"dry_run"` // return the draft without saving
}

func (s *Server) handleImportFAQ(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "import not configured"})
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}

	entry, err := s.importer.FromURL(r.Context(), req.URL, req.Category)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	if !req.DryRun {
		if err := s.faqs.Save(entry); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusCreated, entry)
}

// --- Misc ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	caps := speech.Capabilities{}
	if s.speech != nil {
		caps = s.speech.Capabilities()
	}
	writeJSON(w, http.StatusOK, caps)
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	minLevel := slog.LevelDebug
	if lvl := r.URL.Query().Get("level"); lvl != "" {
		switch strings.ToLower(lvl) {
		case "info":
			minLevel = slog.LevelInfo
		case "warn":
			minLevel = slog.LevelWarn
		case "error":
			minLevel = slog.LevelError
		}
	}

	var since time.Time
	if sv := r.URL.Query().Get("since"); sv != "" {
		if ms, err := strconv.ParseInt(sv, 10, 64); err == nil {
			since = time.UnixMilli(ms)
		}
	}

	entries := s.logs.Query(since, minLevel, limit)
	if entries == nil {
		entries = []logbuf.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

type inFlightSet struct {
	mu  *sync.Mutex
	ids map[string]bool
}

func newInFlightSet() inFlightSet {
	return inFlightSet{mu: &sync.Mutex{}, ids: make(map[string]bool)}
}

func (f inFlightSet) acquire(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ids[id] {
		return false
	}
	f.ids[id] = true
	return true
}

func (f inFlightSet) release(id string) {
	f.mu.Lock()
	delete(f.ids, id)
	f.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
