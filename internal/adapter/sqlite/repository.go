// Package sqlite implements the wiki registry on a SQLite cw_wikis table.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/farmconf/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time checks: Repository serves both sides of the registry.
var (
	_ domain.Registry       = (*Repository)(nil)
	_ domain.WikiRepository = (*Repository)(nil)
)

// Repository is the SQLite-backed wiki registry.
type Repository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*Repository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*Repository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *Repository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05Z"

const selectWikis = `SELECT wiki_dbname, wiki_sitename, wiki_dbcluster, wiki_url, wiki_version,
	wiki_closed, wiki_inactive, wiki_deleted, wiki_locked, wiki_private, wiki_experimental,
	wiki_creation, wiki_updated
	FROM cw_wikis`

// statusClause selects the rows projecting onto each status.
var statusClause = map[domain.Status]string{
	domain.StatusActive:   `wiki_deleted = 0 AND wiki_closed = 0 AND wiki_inactive = 0`,
	domain.StatusClosed:   `wiki_deleted = 0 AND wiki_closed = 1`,
	domain.StatusInactive: `wiki_deleted = 0 AND wiki_closed = 0 AND wiki_inactive = 1`,
	domain.StatusDeleted:  `wiki_deleted = 1`,
}

func (r *Repository) Create(ctx context.Context, w domain.Wiki) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cw_wikis (wiki_dbname, wiki_sitename, wiki_dbcluster, wiki_url, wiki_version,
			wiki_closed, wiki_inactive, wiki_deleted, wiki_locked, wiki_private, wiki_experimental,
			wiki_creation, wiki_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.DBName, w.SiteName, w.Cluster, nullable(w.URL), nullable(w.Version),
		w.Closed(), w.Inactive(), w.Deleted(), w.Locked, w.Private, w.Experimental,
		w.CreatedAt.UTC().Format(timeFormat),
		w.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.WikiExistsError{DBName: w.DBName}
		}
		return fmt.Errorf("inserting wiki: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, dbname string) (domain.Wiki, error) {
	w, err := scanWiki(r.db.QueryRowContext(ctx, selectWikis+` WHERE wiki_dbname = ?`, dbname))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Wiki{}, domain.ErrWikiNotFound
	}
	return w, err
}

func (r *Repository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Wiki, error) {
	query := selectWikis
	var args []any

	if filter.Status != nil {
		clause, ok := statusClause[*filter.Status]
		if !ok {
			return nil, fmt.Errorf("listing wikis: unknown status %q", *filter.Status)
		}
		query += ` WHERE ` + clause
	}

	query += ` ORDER BY wiki_dbname`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	return r.query(ctx, query, args...)
}

func (r *Repository) Update(ctx context.Context, w domain.Wiki) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cw_wikis SET wiki_sitename = ?, wiki_dbcluster = ?, wiki_url = ?, wiki_version = ?,
			wiki_closed = ?, wiki_inactive = ?, wiki_deleted = ?,
			wiki_locked = ?, wiki_private = ?, wiki_experimental = ?, wiki_updated = ?
		 WHERE wiki_dbname = ?`,
		w.SiteName, w.Cluster, nullable(w.URL), nullable(w.Version),
		w.Closed(), w.Inactive(), w.Deleted(),
		w.Locked, w.Private, w.Experimental,
		time.Now().UTC().Format(timeFormat), w.DBName,
	)
	if err != nil {
		return fmt.Errorf("updating wiki: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrWikiNotFound
	}

	return nil
}

// ActiveWikis returns wikis that are neither closed, inactive nor deleted.
func (r *Repository) ActiveWikis(ctx context.Context) ([]domain.Wiki, error) {
	return r.query(ctx, selectWikis+` WHERE `+statusClause[domain.StatusActive]+` ORDER BY wiki_dbname`)
}

// CombiWikis returns every non-deleted wiki, restricted to version when set.
func (r *Repository) CombiWikis(ctx context.Context, version string) ([]domain.Wiki, error) {
	if version == "" {
		return r.query(ctx, selectWikis+` WHERE wiki_deleted = 0 ORDER BY wiki_dbname`)
	}
	return r.query(ctx, selectWikis+` WHERE wiki_deleted = 0 AND wiki_version = ? ORDER BY wiki_dbname`, version)
}

// DeletedWikis returns deleted wikis only.
func (r *Repository) DeletedWikis(ctx context.Context) ([]domain.Wiki, error) {
	return r.query(ctx, selectWikis+` WHERE `+statusClause[domain.StatusDeleted]+` ORDER BY wiki_dbname`)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]domain.Wiki, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing wikis: %w", err)
	}
	defer rows.Close()

	var wikis []domain.Wiki
	for rows.Next() {
		w, err := scanWiki(rows)
		if err != nil {
			return nil, err
		}
		wikis = append(wikis, w)
	}

	return wikis, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanWiki(s scanner) (domain.Wiki, error) {
	var w domain.Wiki
	var url, version sql.NullString
	var closed, inactive, deleted bool
	var createdAt, updatedAt string

	err := s.Scan(&w.DBName, &w.SiteName, &w.Cluster, &url, &version,
		&closed, &inactive, &deleted, &w.Locked, &w.Private, &w.Experimental,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Wiki{}, err
		}
		return domain.Wiki{}, fmt.Errorf("scanning wiki: %w", err)
	}

	w.URL = url.String
	w.Version = version.String
	w.Status = statusOf(closed, inactive, deleted)
	w.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	w.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return w, nil
}

// statusOf folds the registry flag columns into one status. Deleted wins over
// closed, which wins over inactive.
func statusOf(closed, inactive, deleted bool) domain.Status {
	switch {
	case deleted:
		return domain.StatusDeleted
	case closed:
		return domain.StatusClosed
	case inactive:
		return domain.StatusInactive
	default:
		return domain.StatusActive
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
