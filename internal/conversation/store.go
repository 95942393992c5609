package conversation

import (
	"github.com/google/uuid"

	"github.com/unibot-io/unibot/pkg/protocol"
)

// Store is the persistence interface for conversation transcripts.
type Store interface {
	// Upsert replaces the record matching the conversation's ID, or
	// appends it if absent. The caller always passes the full message
	// history; message lists from two snapshots are never merged.
	Upsert(conv *protocol.Conversation) error
	// Get retrieves a conversation with its full message sequence.
	Get(id string) (*protocol.Conversation, error)
	// List returns conversations matching the filter, newest first.
	List(filter Filter) ([]*protocol.Conversation, error)
}

// Filter constrains conversation list queries.
type Filter struct {
	Owner string // exact match on owner identity
	Limit int    // 0 = no limit
}

// NewID returns a fresh conversation or message identifier.
func NewID() string {
	return uuid.NewString()
}
