package plugin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Record is a persisted plugin row. Custom plugins are stored so the
// gateway can reload them at startup; system plugins are stored so the
// management API lists one consistent inventory.
type Record struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Path        string    `json:"path,omitempty"`
	Kind        Kind      `json:"kind"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository persists the plugin inventory.
type Repository interface {
	// Create inserts a plugin record and assigns its ID. A name collision
	// surfaces as ErrDuplicateProtocol.
	Create(ctx context.Context, rec *Record) error

	// GetByName retrieves a plugin record by protocol name.
	GetByName(ctx context.Context, name string) (*Record, error)

	// List retrieves all plugin records ordered by name.
	List(ctx context.Context) ([]Record, error)

	// ListByKind retrieves plugin records of one kind ordered by name.
	ListByKind(ctx context.Context, kind Kind) ([]Record, error)

	// DeleteByName removes a plugin record.
	DeleteByName(ctx context.Context, name string) error
}

// SQLiteRepository implements Repository on the plugins table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed plugin repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const pluginColumns = "id, name, path, kind, description, created_at"

// Create inserts a plugin record and assigns its ID.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	rec.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO plugins (name, path, kind, description, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.Name, rec.Path, string(rec.Kind), rec.Description,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		// UNIQUE constraint on name; the driver has no typed error for it.
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateProtocol, rec.Name)
		}
		return fmt.Errorf("inserting plugin: %w", err)
	}

	rec.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading plugin id: %w", err)
	}
	return nil
}

// GetByName retrieves a plugin record by protocol name.
func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+pluginColumns+" FROM plugins WHERE name = ?", name)

	rec, err := scanPlugin(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrProtocolNotFound, name)
		}
		return nil, fmt.Errorf("querying plugin by name: %w", err)
	}
	return rec, nil
}

// List retrieves all plugin records ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	return r.queryPlugins(ctx,
		"SELECT "+pluginColumns+" FROM plugins ORDER BY name")
}

// ListByKind retrieves plugin records of one kind ordered by name.
func (r *SQLiteRepository) ListByKind(ctx context.Context, kind Kind) ([]Record, error) {
	return r.queryPlugins(ctx,
		"SELECT "+pluginColumns+" FROM plugins WHERE kind = ? ORDER BY name",
		string(kind))
}

// DeleteByName removes a plugin record.
func (r *SQLiteRepository) DeleteByName(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM plugins WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting plugin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrProtocolNotFound, name)
	}
	return nil
}

func (r *SQLiteRepository) queryPlugins(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying plugins: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var records []Record
	for rows.Next() {
		rec, err := scanPlugin(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning plugin: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlugin(row rowScanner) (*Record, error) {
	var (
		rec       Record
		kind      string
		createdAt string
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Path, &kind,
		&rec.Description, &createdAt); err != nil {
		return nil, err
	}
	rec.Kind = Kind(kind)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt) //nolint:errcheck // Format is controlled
	return &rec, nil
}

// isUniqueViolation sniffs the SQLite unique-constraint message so we do
// not depend on driver-specific error types here.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
