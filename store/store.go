package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store runs translation memory queries against a database or an open
// transaction.
type Store struct {
	db  *sql.DB
	q   DBTX
	now func() time.Time
}

// New returns a store backed by db.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db, now: func() time.Time { return time.Now().UTC() }}
}

// InTx reports whether the store is bound to a transaction.
func (s *Store) InTx() bool {
	return s.q != s.db
}

// WithTx runs fn inside a transaction. The store passed to fn issues all its
// queries on that transaction. If s is already bound to one, fn joins it.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.InTx() {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Store{db: s.db, q: tx, now: s.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// String is a unique source text in a locale, stored as HTML with ids.
type String struct {
	ID       int64
	Locale   string
	DataHash string
	Data     string
}

// Context is the location of a string inside an object.
type Context struct {
	ID        int64
	ObjectKey string
	Path      string
}

// Template is a deduplicated rich text skeleton.
type Template struct {
	ID          int64
	Format      string
	Template    string
	Hash        string
	StringCount int
}

// Source is the snapshot of an object submitted for translation.
type Source struct {
	ID             int64
	ContentType    string
	TranslationKey string
	Locale         string
	ContentJSON    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Translation is a job translating a source into one target locale.
type Translation struct {
	ID            int64
	UUID          string
	SourceID      int64
	TargetLocale  string
	PublishedJSON string
	PublishedAt   sql.NullTime
	CreatedAt     time.Time
}

// Translation types recorded on a StringTranslation.
const (
	TypeManual  = "manual"
	TypeMachine = "machine"
)

// StringTranslation is the translation of a String in a Context.
type StringTranslation struct {
	ID               int64
	StringID         int64
	ContextID        int64
	Locale           string
	Data             string
	TranslationType  string
	ToolName         string
	LastTranslatedBy string
	HasError         bool
	FieldError       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Progress counts the strings of a translation.
type Progress struct {
	Total      int `json:"total"`
	Translated int `json:"translated"`
	Errors     int `json:"errors"`
}

// Complete reports whether every string is translated.
func (p Progress) Complete() bool {
	return p.Translated >= p.Total
}
