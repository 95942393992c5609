package conversation

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/unibot-io/unibot/pkg/protocol"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("conversation store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("conversation store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			owner      TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS conversation_messages (
			id              TEXT NOT NULL,
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			seq             INTEGER NOT NULL,
			sender          TEXT NOT NULL,
			text            TEXT NOT NULL,
			timestamp       TEXT NOT NULL,
			PRIMARY KEY (conversation_id, seq)
		);

		CREATE INDEX IF NOT EXISTS idx_conv_messages ON conversation_messages(conversation_id);
		CREATE INDEX IF NOT EXISTS idx_conv_owner ON conversations(owner);
	`)
	if err != nil {
		return fmt.Errorf("conversation store: migrate: %w", err)
	}
	return nil
}

// Upsert replaces the whole record in one transaction: the message rows
// for the conversation are deleted and rewritten from the snapshot, so
// the stored sequence always mirrors exactly what the caller passed.
func (s *SQLiteStore) Upsert(conv *protocol.Conversation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("conversation store: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO conversations (id, owner, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET owner=excluded.owner, created_at=excluded.created_at
	`, conv.ID, conv.Owner, conv.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("conversation store: upsert: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM conversation_messages WHERE conversation_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("conversation store: clear messages: %w", err)
	}
	for i, m := range conv.Messages {
		_, err := tx.Exec(`
			INSERT INTO conversation_messages (id, conversation_id, seq, sender, text, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)
		`, m.ID, conv.ID, i, string(m.Sender), m.Text, m.Timestamp.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("conversation store: insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("conversation store: commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(id string) (*protocol.Conversation, error) {
	row := s.db.QueryRow(`SELECT id, owner, created_at FROM conversations WHERE id = ?`, id)

	var c protocol.Conversation
	var createdAtStr string
	err := row.Scan(&c.ID, &c.Owner, &createdAtStr)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("conversation %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("conversation store: get: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)

	msgs, err := s.loadMessages(id)
	if err != nil {
		return nil, err
	}
	c.Messages = msgs
	return &c, nil
}

func (s *SQLiteStore) List(filter Filter) ([]*protocol.Conversation, error) {
	query := "SELECT id, owner, created_at FROM conversations WHERE 1=1"
	var args []any
	if filter.Owner != "" {
		query += " AND owner = ?"
		args = append(args, filter.Owner)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("conversation store: list: %w", err)
	}
	defer rows.Close()

	var convs []*protocol.Conversation
	for rows.Next() {
		var c protocol.Conversation
		var createdAtStr string
		if err := rows.Scan(&c.ID, &c.Owner, &createdAtStr); err != nil {
			return nil, fmt.Errorf("conversation store: list scan: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
		convs = append(convs, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range convs {
		msgs, err := s.loadMessages(c.ID)
		if err != nil {
			return nil, err
		}
		c.Messages = msgs
	}
	return convs, nil
}

// DB returns the underlying database connection (for testing or direct access).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// loadMessages returns a conversation's messages in stored order.
func (s *SQLiteStore) loadMessages(convID string) ([]protocol.ChatMessage, error) {
	rows, err := s.db.Query(`SELECT id, sender, text, timestamp FROM conversation_messages WHERE conversation_id = ? ORDER BY seq`, convID)
	if err != nil {
		return nil, fmt.Errorf("conversation store: load messages: %w", err)
	}
	defer rows.Close()

	var msgs []protocol.ChatMessage
	for rows.Next() {
		var m protocol.ChatMessage
		var sender, ts string
		if err := rows.Scan(&m.ID, &sender, &m.Text, &ts); err != nil {
			return nil, fmt.Errorf("conversation store: scan message: %w", err)
		}
		m.Sender = protocol.Sender(sender)
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
