package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrNotFound = errors.New("design not found")

// Design описывает запись о дизайне без сохраненного состояния.
type Design struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ============================================================
// SQLite Repository
// ============================================================

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init применяет встроенные миграции по порядку имен.
func (r *Repository) Init(ctx context.Context) error {
	if err := r.runMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (r *Repository) CreateDesign(ctx context.Context, id, name string) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO designs (id, name)
        VALUES (?, ?)
    `, id, name)
	if err != nil {
		return fmt.Errorf("create design %s: %w", id, err)
	}
	return nil
}

// SaveDesign записывает состояние, создавая запись при необходимости.
func (r *Repository) SaveDesign(ctx context.Context, id, state string) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO designs (id, state)
        VALUES (?, ?)
        ON CONFLICT(id) DO UPDATE SET
            state = excluded.state,
            updated_at = datetime('now')
    `, id, state)
	if err != nil {
		return fmt.Errorf("save design %s: %w", id, err)
	}
	return nil
}

// LoadState возвращает сохраненное состояние. false, если записи нет.
func (r *Repository) LoadState(ctx context.Context, id string) (string, bool, error) {
	var state string
	err := r.db.QueryRowContext(ctx, `SELECT state FROM designs WHERE id = ?`, id).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("load design %s: %w", id, err)
	}
	return state, true, nil
}

func (r *Repository) GetDesign(ctx context.Context, id string) (*Design, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, name, created_at, updated_at
        FROM designs
        WHERE id = ?
    `, id)

	var d Design
	if err := row.Scan(&d.ID, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get design %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &d, nil
}

func (r *Repository) ListDesigns(ctx context.Context) ([]Design, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, created_at, updated_at
        FROM designs
        ORDER BY updated_at DESC, id
    `)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	defer rows.Close()

	out := []Design{}
	for rows.Next() {
		var d Design
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list designs: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteDesign(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM designs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete design %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete design %s: %w", id, ErrNotFound)
	}
	return nil
}

// ============================================================
// Migrations
// ============================================================

func (r *Repository) runMigrations(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
