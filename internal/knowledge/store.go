package knowledge

import "github.com/unibot-io/unibot/pkg/protocol"

// Store is the persistence interface for FAQ entries.
type Store interface {
	// List returns entries matching the filter, in insertion order.
	List(filter Filter) ([]protocol.FAQEntry, error)
	// Get retrieves a single entry by ID.
	Get(id string) (*protocol.FAQEntry, error)
	// Save creates or replaces an entry by ID.
	Save(entry *protocol.FAQEntry) error
	// Delete removes an entry. Deleting an unknown ID is an error.
	Delete(id string) error
}

// Filter constrains FAQ list queries.
type Filter struct {
	Category string // exact match on category
	Query    string // substring match on question text
	Limit    int    // 0 = no limit
}
