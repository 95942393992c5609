package knowledge

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/unibot-io/unibot/pkg/protocol"
)

// SQLiteStore implements Store using SQLite. The first open of an empty
// database seeds the default FAQ set.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database, runs migrations,
// and seeds the default entries if the table is empty.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("knowledge store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.seedIfEmpty(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS faqs (
			id       TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			answer   TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '[]',
			seq      INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_faqs_category ON faqs(category);
	`)
	if err != nil {
		return fmt.Errorf("knowledge store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) seedIfEmpty() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM faqs`).Scan(&count); err != nil {
		return fmt.Errorf("knowledge store: seed check: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, e := range DefaultFAQs {
		entry := e
		if err := s.Save(&entry); err != nil {
			return fmt.Errorf("knowledge store: seed: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) List(filter Filter) ([]protocol.FAQEntry, error) {
	query := "SELECT id, question, answer, category, keywords FROM faqs WHERE 1=1"
	var args []any

	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.Query != "" {
		query += " AND question LIKE ?"
		args = append(args, fmt.Sprintf("%%%s%%", filter.Query))
	}
	query += " ORDER BY seq, rowid"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: list: %w", err)
	}
	defer rows.Close()

	var entries []protocol.FAQEntry
	for rows.Next() {
		var e protocol.FAQEntry
		var keywordsJSON string
		if err := rows.Scan(&e.ID, &e.Question, &e.Answer, &e.Category, &keywordsJSON); err != nil {
			return nil, fmt.Errorf("knowledge store: list scan: %w", err)
		}
		json.Unmarshal([]byte(keywordsJSON), &e.Keywords)
		if e.Keywords == nil {
			e.Keywords = []string{}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Get(id string) (*protocol.FAQEntry, error) {
	row := s.db.QueryRow(`SELECT id, question, answer, category, keywords FROM faqs WHERE id = ?`, id)

	var e protocol.FAQEntry
	var keywordsJSON string
	err := row.Scan(&e.ID, &e.Question, &e.Answer, &e.Category, &keywordsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("faq %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("knowledge store: get: %w", err)
	}
	json.Unmarshal([]byte(keywordsJSON), &e.Keywords)
	if e.Keywords == nil {
		e.Keywords = []string{}
	}
	return &e, nil
}

func (s *SQLiteStore) Save(entry *protocol.FAQEntry) error {
	keywords, _ := json.Marshal(entry.Keywords)
	_, err := s.db.Exec(`
		INSERT INTO faqs (id, question, answer, category, keywords, seq)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM faqs))
		ON CONFLICT(id) DO UPDATE SET
			question=excluded.question, answer=excluded.answer,
			category=excluded.category, keywords=excluded.keywords
	`, entry.ID, entry.Question, entry.Answer, entry.Category, string(keywords))
	if err != nil {
		return fmt.Errorf("knowledge store: save: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM faqs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("knowledge store: delete: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("faq %q not found", id)
	}
	return nil
}

// DB returns the underlying database connection (for testing or direct access).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}
