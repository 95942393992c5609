package ticket

import (
	"time"

	"github.com/unibot-io/unibot/pkg/protocol"
)

// Store is the persistence interface for escalated tickets.
type Store interface {
	// Save creates or updates a ticket.
	Save(ticket *protocol.Ticket) error
	// Get retrieves a ticket by ID.
	Get(id string) (*protocol.Ticket, error)
	// List returns tickets matching the filter, newest first.
	List(filter Filter) ([]*protocol.Ticket, error)
	// Count returns the number of tickets matching the filter.
	Count(filter Filter) (int, error)
	// Resolve marks a ticket resolved with the given response text.
	// Resolving an unknown ID is an error; resolving an already-resolved
	// ticket overwrites the response and resolution time (last write wins).
	Resolve(id, response string, at time.Time) (*protocol.Ticket, error)
	// UpdateStatus changes a ticket's status without touching resolution
	// fields. Moving a resolved ticket back is an error.
	UpdateStatus(id string, status protocol.TicketStatus) error
}

// Filter constrains ticket list queries.
type Filter struct {
	Status       *protocol.TicketStatus
	Owner        string    // exact match on owner identity
	Department   string    // exact match on department label
	OpenedBefore time.Time // only tickets created before this instant
	Limit        int       // 0 = no limit
}
