package protocol

import "time"

// TicketStatus represents the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in-progress"
	TicketResolved   TicketStatus = "resolved"
)

// Ticket is an escalated question routed to a department. ResolvedAt and
// Response are set exactly when Status is resolved; a resolved ticket
// never transitions back.
type Ticket struct {
	ID         string       `json:"id"`
	Owner      string       `json:"owner"`
	Question   string       `json:"question"`
	Status     TicketStatus `json:"status"`
	Department string       `json:"department"`
	CreatedAt  time.Time    `json:"created_at"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
	Response   string       `json:"response,omitempty"`
}
