// Package dal is the host's data access layer: one SQLite database per
// project, kept in a single projects directory.
package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/berrythewa/deskbridge/internal/types"
)

const projectExt = ".db"

var (
	ErrInvalidProjectName = errors.New("invalid project name")
	ErrProjectExists      = errors.New("project already exists")
	ErrProjectNotFound    = errors.New("project not found")
	ErrEntryNotFound      = errors.New("entry not found")
)

const createEntriesTable = `
CREATE TABLE entries (
	id INTEGER PRIMARY KEY NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	published INTEGER NOT NULL
);`

// DAL gives access to the projects under one directory. Open project
// handles are cached and shared.
type DAL struct {
	dir    string
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]*Project
}

// New creates a DAL rooted at dir, creating the directory if needed.
func New(dir string, logger *zap.Logger) (*DAL, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("projects directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create projects directory: %w", err)
	}
	return &DAL{
		dir:    filepath.Clean(dir),
		logger: logger,
		cache:  make(map[string]*Project),
	}, nil
}

// Dir returns the projects directory.
func (d *DAL) Dir() string {
	return d.dir
}

// CreateProject creates a new, empty project. It fails if the project
// already exists, so an existing project is never overwritten.
func (d *DAL) CreateProject(ctx context.Context, name string) (*Project, error) {
	path, err := d.projectPath(name)
	if err != nil {
		return nil, err
	}

	// The file must exist before the pool connects
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProjectExists, name)
		}
		return nil, fmt.Errorf("failed to create project file: %w", err)
	}
	f.Close()

	p, err := openProject(ctx, path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	if _, err := p.db.ExecContext(ctx, createEntriesTable); err != nil {
		p.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to create entries table: %w", err)
	}

	d.mu.Lock()
	d.cache[name] = p
	d.mu.Unlock()

	d.logger.Info("Project created", zap.String("project", name), zap.String("path", path))
	return p, nil
}

// DeleteProject closes and removes a project.
func (d *DAL) DeleteProject(name string) error {
	path, err := d.projectPath(name)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if p, ok := d.cache[name]; ok {
		delete(d.cache, name)
		if err := p.Close(); err != nil {
			d.logger.Warn("Failed to close project", zap.String("project", name), zap.Error(err))
		}
	}
	d.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, name)
		}
		return fmt.Errorf("failed to remove project: %w", err)
	}
	d.logger.Info("Project deleted", zap.String("project", name))
	return nil
}

// Projects lists project names in sorted order. Files that are not
// project databases are ignored.
func (d *DAL) Projects() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read projects directory: %w", err)
	}

	projects := []string{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != projectExt {
			continue
		}
		projects = append(projects, strings.TrimSuffix(entry.Name(), projectExt))
	}
	sort.Strings(projects)
	return projects, nil
}

// Project returns the handle for an existing project, opening it on first use.
func (d *DAL) Project(ctx context.Context, name string) (*Project, error) {
	path, err := d.projectPath(name)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	p, ok := d.cache[name]
	d.mu.RUnlock()
	if ok {
		return p, nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, name)
		}
		return nil, fmt.Errorf("failed to stat project: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// Another caller may have opened it meanwhile
	if p, ok := d.cache[name]; ok {
		return p, nil
	}
	p, err = openProject(ctx, path)
	if err != nil {
		return nil, err
	}
	d.cache[name] = p
	return p, nil
}

// Close closes every cached project handle.
func (d *DAL) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for name, p := range d.cache {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close project %s: %w", name, err))
		}
		delete(d.cache, name)
	}
	return errors.Join(errs...)
}

func (d *DAL) projectPath(name string) (string, error) {
	if err := ValidateProjectName(name); err != nil {
		return "", err
	}
	return filepath.Join(d.dir, name+projectExt), nil
}

// ValidateProjectName rejects names that would escape the projects directory.
func ValidateProjectName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidProjectName)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidProjectName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidProjectName, name)
	}
	return nil
}

// Project provides access to the database of one project. The pool holds
// a single connection.
type Project struct {
	db *sql.DB
}

func openProject(ctx context.Context, path string) (*Project, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open project database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to project database: %w", err)
	}
	return &Project{db: db}, nil
}

// Close closes the project's pool.
func (p *Project) Close() error {
	return p.db.Close()
}

// CreateEntry inserts an entry and returns its id.
func (p *Project) CreateEntry(ctx context.Context, e types.CreateEntry) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		"INSERT INTO entries (title, body, published) VALUES (?, ?, ?)",
		e.Title, e.Body, e.Published)
	if err != nil {
		return 0, fmt.Errorf("failed to insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read entry id: %w", err)
	}
	return id, nil
}

// DeleteEntry removes the entry with id. Deleting a missing entry is not an error.
func (p *Project) DeleteEntry(ctx context.Context, id int64) error {
	if _, err := p.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

// Entries returns all entries ordered by id.
func (p *Project) Entries(ctx context.Context) ([]types.Entry, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT id, title, body, published FROM entries ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []types.Entry{}
	for rows.Next() {
		var e types.Entry
		if err := rows.Scan(&e.ID, &e.Title, &e.Body, &e.Published); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

// Entry returns the entry with id, or ErrEntryNotFound.
func (p *Project) Entry(ctx context.Context, id int64) (types.Entry, error) {
	var e types.Entry
	err := p.db.QueryRowContext(ctx,
		"SELECT id, title, body, published FROM entries WHERE id = ?", id).
		Scan(&e.ID, &e.Title, &e.Body, &e.Published)
	if errors.Is(err, sql.ErrNoRows) {
		return e, fmt.Errorf("%w: %d", ErrEntryNotFound, id)
	}
	if err != nil {
		return e, fmt.Errorf("failed to query entry: %w", err)
	}
	return e, nil
}
