package protocol

import "time"

// Conversation is the ordered transcript of one chat session. CreatedAt
// is fixed at the first message's timestamp, not at record-save time.
// Messages are strictly ordered by arrival and never reordered.
type Conversation struct {
	ID        string        `json:"id"`
	Owner     string        `json:"owner"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
}
