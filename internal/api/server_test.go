package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/unibot-io/unibot/internal/conversation"
	"github.com/unibot-io/unibot/internal/knowledge"
	"github.com/unibot-io/unibot/internal/ticket"
	"github.com/unibot-io/unibot/internal/triage"
	"github.com/unibot-io/unibot/pkg/protocol"
)

// newTestServer wires a server against real sqlite stores in a temp dir.
func newTestServer(t *testing.T, key string) (*Server, Deps) {
	t.Helper()
	dir := t.TempDir()

	faqs, err := knowledge.NewSQLiteStore(filepath.Join(dir, "faqs.db"))
	if err != nil {
		t.Fatalf("open faq store: %v", err)
	}
	tickets, err := ticket.NewSQLiteStore(filepath.Join(dir, "tickets.db"))
	if err != nil {
		t.Fatalf("open ticket store: %v", err)
	}
	convs, err := conversation.NewSQLiteStore(filepath.Join(dir, "conversations.db"))
	if err != nil {
		t.Fatalf("open conversation store: %v", err)
	}

	engine := triage.NewEngine(faqs, tickets, nil)
	engine.NewID = func() string { return "TKT-API001" }

	deps := Deps{
		Engine:        engine,
		Conversations: convs,
		Tickets:       tickets,
		FAQs:          faqs,
		Hub:           NewHub(nil),
	}
	return NewServer(deps, Config{Host: "127.0.0.1", Port: 0, Key: key}, nil), deps
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, "")
	w := do(t, srv, "GET", "/api/health", "")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestChatAnswersFromKnowledgeBase(t *testing.T) {
	srv, deps := newTestServer(t, "")

	w := do(t, srv, "POST", "/api/chat", `{"student":"Asha Verma","message":"how can I pay my fees online?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp chatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Ticket != nil {
		t.Errorf("FAQ answer should not escalate, got ticket %s", resp.Ticket.ID)
	}
	if resp.Message.Sender != protocol.SenderBot {
		t.Errorf("sender = %s", resp.Message.Sender)
	}
	if resp.ConversationID == "" {
		t.Error("expected a conversation id")
	}

	// The turn is persisted with both messages.
	conv, err := deps.Conversations.Get(resp.ConversationID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(conv.Messages))
	}
	if conv.Messages[0].Sender != protocol.SenderUser {
		t.Errorf("first message sender = %s", conv.Messages[0].Sender)
	}
}

func TestChatEscalates(t *testing.T) {
	srv, deps := newTestServer(t, "")

	w := do(t, srv, "POST", "/api/chat", `{"student":"Asha Verma","message":"my graduation gown order never arrived"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp chatResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Ticket == nil {
		t.Fatal("expected an escalation ticket")
	}
	if resp.Ticket.ID != "TKT-API001" {
		t.Errorf("ticket id = %s", resp.Ticket.ID)
	}

	if _, err := deps.Tickets.Get("TKT-API001"); err != nil {
		t.Errorf("ticket not persisted: %v", err)
	}
}

func TestChatContinuesConversation(t *testing.T) {
	srv, deps := newTestServer(t, "")

	w := do(t, srv, "POST", "/api/chat", `{"student":"Asha Verma","message":"hello"}`)
	var first chatResponse
	json.NewDecoder(w.Body).Decode(&first)

	w = do(t, srv, "POST", "/api/chat",
		`{"conversation_id":"`+first.ConversationID+`","student":"Asha Verma","message":"how do I pay my fees?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	conv, err := deps.Conversations.Get(first.ConversationID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if len(conv.Messages) != 4 {
		t.Errorf("got %d messages, want 4", len(conv.Messages))
	}
}

func TestChatMissingStudent(t *testing.T) {
	srv, _ := newTestServer(t, "")
	w := do(t, srv, "POST", "/api/chat", `{"message":"hi"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestChatBusyConversation(t *testing.T) {
	srv, _ := newTestServer(t, "")
	srv.inFlight.acquire("conv-busy")
	defer srv.inFlight.release("conv-busy")

	w := do(t, srv, "POST", "/api/chat", `{"conversation_id":"conv-busy","student":"Asha","message":"hi"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestListConversations(t *testing.T) {
	srv, deps := newTestServer(t, "")

	deps.Conversations.Upsert(&protocol.Conversation{
		ID:        "c1",
		Owner:     "Asha Verma",
		CreatedAt: time.Now(),
		Messages: []protocol.ChatMessage{
			{ID: "m1", Sender: protocol.SenderUser, Text: "hi", Timestamp: time.Now()},
		},
	})

	w := do(t, srv, "GET", "/api/conversations?owner=Asha+Verma", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var convs []*protocol.Conversation
	json.NewDecoder(w.Body).Decode(&convs)
	if len(convs) != 1 {
		t.Errorf("got %d conversations", len(convs))
	}
}

func TestGetConversation_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, "")
	w := do(t, srv, "GET", "/api/conversations/ghost", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestTicketLifecycleOverAPI(t *testing.T) {
	srv, deps := newTestServer(t, "")

	deps.Tickets.Save(&protocol.Ticket{
		ID:         "TKT-AAAAAA",
		Owner:      "Asha Verma",
		Question:   "lost my library card",
		Status:     protocol.TicketOpen,
		Department: "General Inquiry",
		CreatedAt:  time.Now(),
	})

	w := do(t, srv, "GET", "/api/tickets?status=open", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var tickets []*protocol.Ticket
	json.NewDecoder(w.Body).Decode(&tickets)
	if len(tickets) != 1 {
		t.Fatalf("got %d tickets", len(tickets))
	}

	w = do(t, srv, "POST", "/api/tickets/TKT-AAAAAA/status", `{"status":"in-progress"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status update = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, srv, "POST", "/api/tickets/TKT-AAAAAA/resolve", `{"response":"a replacement card is ready at the desk"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve = %d, body = %s", w.Code, w.Body.String())
	}
	var resolved protocol.Ticket
	json.NewDecoder(w.Body).Decode(&resolved)
	if resolved.Status != protocol.TicketResolved {
		t.Errorf("status = %s", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Error("resolved_at not set")
	}

	// Resolved tickets cannot be reopened.
	w = do(t, srv, "POST", "/api/tickets/TKT-AAAAAA/status", `{"status":"open"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("reopen status = %d, want 409", w.Code)
	}
}

func TestTicketStats(t *testing.T) {
	srv, deps := newTestServer(t, "")
	deps.Tickets.Save(&protocol.Ticket{ID: "TKT-S1", Owner: "a", Question: "q", Status: protocol.TicketOpen, Department: "General Inquiry", CreatedAt: time.Now()})
	deps.Tickets.Save(&protocol.Ticket{ID: "TKT-S2", Owner: "a", Question: "q", Status: protocol.TicketOpen, Department: "General Inquiry", CreatedAt: time.Now()})

	w := do(t, srv, "GET", "/api/tickets/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var stats map[string]int
	json.NewDecoder(w.Body).Decode(&stats)
	if stats["open"] != 2 {
		t.Errorf("open = %d, want 2", stats["open"])
	}
}

func TestResolveTicket_EmptyResponse(t *testing.T) {
	srv, _ := newTestServer(t, "")
	w := do(t, srv, "POST", "/api/tickets/TKT-X/resolve", `{"response":""}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestFAQCRUD(t *testing.T) {
	srv, _ := newTestServer(t, "")

	// The store seeds itself; list should not be empty.
	w := do(t, srv, "GET", "/api/faqs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var entries []protocol.FAQEntry
	json.NewDecoder(w.Body).Decode(&entries)
	if len(entries) == 0 {
		t.Fatal("expected seeded FAQ entries")
	}

	w = do(t, srv, "POST", "/api/faqs",
		`{"question":"Where is the sports complex?","answer":"Behind the main auditorium.","category":"Campus","keywords":["sports","gym"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created protocol.FAQEntry
	json.NewDecoder(w.Body).Decode(&created)
	if created.ID == "" {
		t.Fatal("no id assigned")
	}

	w = do(t, srv, "PUT", "/api/faqs/"+created.ID,
		`{"question":"Where is the sports complex?","answer":"Next to the east gate.","category":"Campus","keywords":["sports"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}

	w = do(t, srv, "GET", "/api/faqs/"+created.ID, "")
	var got protocol.FAQEntry
	json.NewDecoder(w.Body).Decode(&got)
	if got.Answer != "Next to the east gate." {
		t.Errorf("answer = %q", got.Answer)
	}

	w = do(t, srv, "DELETE", "/api/faqs/"+created.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = do(t, srv, "GET", "/api/faqs/"+created.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestFAQUpdate_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, "")
	w := do(t, srv, "PUT", "/api/faqs/ghost", `{"question":"q","answer":"a"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestImport_NotConfigured(t *testing.T) {
	srv, _ := newTestServer(t, "")
	w := do(t, srv, "POST", "/api/faqs/import", `{"url":"https://example.edu/faq"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestCapabilities_NoSpeech(t *testing.T) {
	srv, _ := newTestServer(t, "")
	w := do(t, srv, "GET", "/api/capabilities", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var caps map[string]bool
	json.NewDecoder(w.Body).Decode(&caps)
	if caps["recognition"] || caps["synthesis"] {
		t.Errorf("expected no speech capabilities, got %v", caps)
	}
}

func TestAuth_Required(t *testing.T) {
	srv, _ := newTestServer(t, "secret-key")

	// No auth header
	w := do(t, srv, "GET", "/api/tickets", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no auth: status = %d, want 401", w.Code)
	}

	// Wrong key
	req := httptest.NewRequest("GET", "/api/tickets", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", rec.Code)
	}

	// Correct key
	req = httptest.NewRequest("GET", "/api/tickets", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("correct key: status = %d, want 200", rec.Code)
	}
}

func TestHealth_NoAuth(t *testing.T) {
	srv, _ := newTestServer(t, "secret-key")
	w := do(t, srv, "GET", "/api/health", "")

	// Health should NOT require auth
	if w.Code != http.StatusOK {
		t.Errorf("health should not require auth, status = %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t, "")
	w := do(t, srv, "OPTIONS", "/api/tickets", "")

	if w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin = %q", got)
	}
}
