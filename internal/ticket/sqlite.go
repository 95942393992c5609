package ticket

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
		return nil, fmt.Errorf("ticket store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ticket store: wal: %w", err)
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
		CREATE TABLE IF NOT EXISTS tickets (
			id          TEXT PRIMARY KEY,
			owner       TEXT NOT NULL,
			question    TEXT NOT NULL,
			status      TEXT NOT NULL DEFAULT 'open',
			department  TEXT NOT NULL DEFAULT 'General Inquiry',
			created_at  TEXT NOT NULL,
			resolved_at TEXT,
			response    TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
		CREATE INDEX IF NOT EXISTS idx_tickets_owner ON tickets(owner);
	`)
	if err != nil {
		return fmt.Errorf("ticket store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(t *protocol.Ticket) error {
	var resolvedAt *string
	if t.ResolvedAt != nil {
		v := t.ResolvedAt.Format(time.RFC3339)
		resolvedAt = &v
	}

	_, err := s.db.Exec(`
		INSERT INTO tickets (id, owner, question, status, department, created_at, resolved_at, response)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner=excluded.owner, question=excluded.question, status=excluded.status,
			department=excluded.department, resolved_at=excluded.resolved_at, response=excluded.response
	`, t.ID, t.Owner, t.Question, string(t.Status), t.Department,
		t.CreatedAt.Format(time.RFC3339), resolvedAt, t.Response)
	if err != nil {
		return fmt.Errorf("ticket store: save: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(id string) (*protocol.Ticket, error) {
	row := s.db.QueryRow(`SELECT id, owner, question, status, department, created_at, resolved_at, response FROM tickets WHERE id = ?`, id)

	t, err := scanTicket(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("ticket %q not found", id)
		}
		return nil, fmt.Errorf("ticket store: get: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) List(filter Filter) ([]*protocol.Ticket, error) {
	query := "SELECT id, owner, question, status, department, created_at, resolved_at, response FROM tickets WHERE 1=1"
	query, args := applyFilter(query, filter)
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ticket store: list: %w", err)
	}
	defer rows.Close()

	var tickets []*protocol.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("ticket store: list scan: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (s *SQLiteStore) Count(filter Filter) (int, error) {
	query, args := applyFilter("SELECT COUNT(*) FROM tickets WHERE 1=1", filter)

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ticket store: count: %w", err)
	}
	return count, nil
}

// Resolve is a single UPDATE against the latest persisted row, so
// concurrent resolves of different tickets never clobber each other.
func (s *SQLiteStore) Resolve(id, response string, at time.Time) (*protocol.Ticket, error) {
	result, err := s.db.Exec(`UPDATE tickets SET status = ?, resolved_at = ?, response = ? WHERE id = ?`,
		string(protocol.TicketResolved), at.Format(time.RFC3339), response, id)
	if err != nil {
		return nil, fmt.Errorf("ticket store: resolve: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return nil, fmt.Errorf("ticket %q not found", id)
	}
	return s.Get(id)
}

func (s *SQLiteStore) UpdateStatus(id string, status protocol.TicketStatus) error {
	// Resolved is terminal; Resolve is the only way to reach it because it
	// must set resolved_at and response atomically.
	if status == protocol.TicketResolved {
		return fmt.Errorf("ticket store: use Resolve to mark tickets resolved")
	}

	result, err := s.db.Exec(`UPDATE tickets SET status = ? WHERE id = ? AND status != ?`,
		string(status), id, string(protocol.TicketResolved))
	if err != nil {
		return fmt.Errorf("ticket store: update status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		if _, getErr := s.Get(id); getErr != nil {
			return fmt.Errorf("ticket %q not found", id)
		}
		return fmt.Errorf("ticket %q is resolved and cannot change status", id)
	}
	return nil
}

// DB returns the underlying database connection (for testing or direct access).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// --- helpers ---

func applyFilter(query string, filter Filter) (string, []any) {
	var args []any
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	if filter.Owner != "" {
		query += " AND owner = ?"
		args = append(args, filter.Owner)
	}
	if filter.Department != "" {
		query += " AND department = ?"
		args = append(args, filter.Department)
	}
	if !filter.OpenedBefore.IsZero() {
		query += " AND created_at < ?"
		args = append(args, filter.OpenedBefore.Format(time.RFC3339))
	}
	return query, args
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTicket(s scannable) (*protocol.Ticket, error) {
	var t protocol.Ticket
	var status, createdAtStr string
	var resolvedAtStr *string

	err := s.Scan(&t.ID, &t.Owner, &t.Question, &status, &t.Department,
		&createdAtStr, &resolvedAtStr, &t.Response)
	if err != nil {
		return nil, err
	}

	t.Status = protocol.TicketStatus(status)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
	if resolvedAtStr != nil {
		rt, _ := time.Parse(time.RFC3339, *resolvedAtStr)
		t.ResolvedAt = &rt
	}
	return &t, nil
}
