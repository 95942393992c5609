// Package connector defines the seam between the helpdesk core and the
// student-facing channels (Telegram, campus-portal webhooks).
package connector

import "context"

// Connector is a long-running channel that receives student queries and
// delivers helpdesk replies.
type Connector interface {
	// Name returns the channel name (e.g., "telegram").
	Name() string
	// Start begins listening for inbound queries. Blocks until context is cancelled.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the channel.
	Stop() error
	// Send delivers a helpdesk reply to the channel.
	Send(ctx context.Context, msg OutboundMessage) error
}

// OutboundMessage is a helpdesk reply headed for a channel.
type OutboundMessage struct {
	ChatID  string // channel-specific chat identifier
	Content string // reply text (Markdown)
}

// InboundMessage is a student query received from a channel.
type InboundMessage struct {
	Channel    string // channel name (e.g., "telegram")
	SenderID   string // channel-specific sender identifier
	SenderName string // display name of the student, if the channel knows it
	ChatID     string // channel-specific chat identifier
	Content    string // query text
	Voice      bool   // true when the text came from voice transcription
}

// InboundHandler processes a student query and returns the helpdesk
// reply to send back on the same chat. An empty reply means nothing is
// sent.
type InboundHandler func(ctx context.Context, msg InboundMessage) (string, error)
