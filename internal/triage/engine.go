package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unibot-io/unibot/internal/knowledge"
	"github.com/unibot-io/unibot/internal/ticket"
	"github.com/unibot-io/unibot/pkg/protocol"
)

// greetings short-circuit triage: a query starting with one of these
// gets a canned reply without touching the matcher or classifier.
var greetings = []string{"hi", "hello", "hey", "good morning", "good afternoon"}

// Result is the outcome of one triage turn: always a bot message, plus
// the created ticket when the query escalated.
type Result struct {
	Message protocol.ChatMessage `json:"message"`
	Ticket  *protocol.Ticket     `json:"ticket,omitempty"`
}

// Engine turns a student query into a direct answer or an escalation.
// It holds no per-conversation state: every call receives everything it
// needs and returns new records.
type Engine struct {
	Knowledge knowledge.Store
	Tickets   ticket.Store
	Delay     Delay
	NewID     func() string    // ticket id generator, defaults to NewTicketID
	Now       func() time.Time // clock, defaults to time.Now
	Logger    *slog.Logger
}

// NewEngine wires an engine with default id generation, clock, and no
// simulated delay.
func NewEngine(kb knowledge.Store, tickets ticket.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Knowledge: kb,
		Tickets:   tickets,
		Delay:     NoDelay{},
		NewID:     NewTicketID,
		Now:       time.Now,
		Logger:    logger,
	}
}

// Resolve answers a query from the knowledge base or escalates it to a
// ticket. The ticket is persisted before the message announcing it is
// returned, so a referenced ticket id always exists in the store.
// Empty and whitespace-only queries fall through to escalation.
func (e *Engine) Resolve(ctx context.Context, query string, requester protocol.Identity) (*Result, error) {
	if e.Delay != nil {
		e.Delay.Sleep(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("triage: %w", err)
	}

	if isGreeting(query) {
		e.Logger.Debug("greeting turn", "requester", requester.Name)
		return &Result{Message: e.botMessage(greetingText(requester.Name))}, nil
	}

	corpus, err := e.Knowledge.List(knowledge.Filter{})
	if err != nil {
		return nil, fmt.Errorf("triage: load knowledge base: %w", err)
	}

	if faq := knowledge.Match(query, corpus); faq != nil {
		e.Logger.Info("query answered from knowledge base",
			"faq", faq.ID,
			"requester", requester.Name,
		)
		return &Result{Message: e.botMessage(faq.Answer)}, nil
	}

	// No match, escalate.
	tk := &protocol.Ticket{
		ID:         e.NewID(),
		Owner:      requester.Name,
		Question:   query,
		Status:     protocol.TicketOpen,
		Department: Classify(query),
		CreatedAt:  e.Now(),
	}
	if err := e.Tickets.Save(tk); err != nil {
		return nil, fmt.Errorf("triage: create ticket: %w", err)
	}

	e.Logger.Info("query escalated",
		"ticket", tk.ID,
		"department", tk.Department,
		"requester", requester.Name,
	)

	return &Result{
		Message: e.botMessage(escalationText(tk)),
		Ticket:  tk,
	}, nil
}

func (e *Engine) botMessage(text string) protocol.ChatMessage {
	return protocol.ChatMessage{
		ID:        uuid.NewString(),
		Sender:    protocol.SenderBot,
		Text:      text,
		Timestamp: e.Now(),
	}
}

func isGreeting(query string) bool {
	q := strings.TrimSpace(strings.ToLower(query))
	for _, g := range greetings {
		if strings.HasPrefix(q, g) {
			return true
		}
	}
	return false
}

func greetingText(name string) string {
	return fmt.Sprintf("Hello %s! I'm UniBot, your university helpdesk assistant. "+
		"I can help you with questions about fees, exams, timetables, scholarships, and more. "+
		"How can I help you today?", name)
}

func escalationText(tk *protocol.Ticket) string {
	return fmt.Sprintf("I'm sorry, I couldn't find a specific answer to your question. "+
		"I've created a support ticket **%s** and escalated it to the **%s** department. "+
		"A staff member will get back to you soon.\n\n"+
		"You can track your ticket status in the \"My Tickets\" section.", tk.ID, tk.Department)
}
