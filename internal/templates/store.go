// Package templates provides persistent prompt templates that users
// attach to generation and review prompts. Templates are stored in
// SQLite and applied around a base prompt at request time.
package templates

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxContentLength caps template content. Longer content is truncated
// during sanitization so a single template cannot crowd out the base
// prompt.
const MaxContentLength = 2000

// Template is a user-managed prompt fragment.
type Template struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Target    string    `json:"target"`   // automation, dashboard, review, system
	Position  string    `json:"position"` // prepend or append
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store manages template persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a template store using the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// NewStoreWithDB creates a template store using an existing database connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS templates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			content TEXT NOT NULL,
			target TEXT NOT NULL,
			position TEXT NOT NULL DEFAULT 'append',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_templates_target ON templates(target);
		CREATE INDEX IF NOT EXISTS idx_templates_name ON templates(name);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create stores a new template. Content is sanitized first. The
// position defaults to append when unset.
func (s *Store) Create(t Template) (*Template, error) {
	now := time.Now().UTC()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	t.ID = id
	t.Content = SanitizeContent(t.Content)
	if t.Position == "" {
		t.Position = "append"
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err = s.db.Exec(`
		INSERT INTO templates (id, name, content, target, position, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID.String(), t.Name, t.Content, t.Target, t.Position, boolToInt(t.Enabled),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}

	return &t, nil
}

// Get retrieves a template by ID. Returns nil when not found.
func (s *Store) Get(id uuid.UUID) (*Template, error) {
	row := s.db.QueryRow(`
		SELECT id, name, content, target, position, enabled, created_at, updated_at
		FROM templates WHERE id = ?
	`, id.String())

	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

// List returns all templates ordered by name.
func (s *Store) List() ([]Template, error) {
	rows, err := s.db.Query(`
		SELECT id, name, content, target, position, enabled, created_at, updated_at
		FROM templates ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	return collectTemplates(rows)
}

// updatableFields are the columns Update may touch. ID and created_at
// are immutable.
var updatableFields = map[string]bool{
	"name":     true,
	"content":  true,
	"target":   true,
	"position": true,
	"enabled":  true,
}

// Update modifies the given fields on a template. Unknown fields are
// silently ignored. Returns nil when the template does not exist.
func (s *Store) Update(id uuid.UUID, fields map[string]any) (*Template, error) {
	var sets []string
	var args []any

	for key, value := range fields {
		if !updatableFields[key] {
			continue
		}
		switch key {
		case "content":
			if str, ok := value.(string); ok {
				value = SanitizeContent(str)
			}
		case "enabled":
			if b, ok := value.(bool); ok {
				value = boolToInt(b)
			}
		}
		sets = append(sets, key+" = ?")
		args = append(args, value)
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, time.Now().UTC().Format(time.RFC3339))
		args = append(args, id.String())

		query := "UPDATE templates SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		res, err := s.db.Exec(query, args...)
		if err != nil {
			return nil, fmt.Errorf("update template: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, nil
		}
	}

	return s.Get(id)
}

// Delete removes a template. Returns false when it did not exist.
func (s *Store) Delete(id uuid.UUID) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM templates WHERE id = ?`, id.String())
	if err != nil {
		return false, fmt.Errorf("delete template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Active returns the enabled templates for a target, ordered by name.
func (s *Store) Active(target string) ([]Template, error) {
	rows, err := s.db.Query(`
		SELECT id, name, content, target, position, enabled, created_at, updated_at
		FROM templates WHERE target = ? AND enabled = 1 ORDER BY name
	`, target)
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	defer rows.Close()

	return collectTemplates(rows)
}

// Apply wraps a base prompt with templates: prepend templates first in
// order, then the base prompt, then append templates, joined by blank
// lines.
func Apply(base string, templates []Template) string {
	var prepends, appends []string
	for _, t := range templates {
		if t.Position == "prepend" {
			prepends = append(prepends, t.Content)
		} else {
			appends = append(appends, t.Content)
		}
	}

	parts := make([]string, 0, len(templates)+1)
	parts = append(parts, prepends...)
	parts = append(parts, base)
	parts = append(parts, appends...)
	return strings.Join(parts, "\n\n")
}

// SanitizeContent strips markdown code fences and surrounding
// whitespace, then truncates to MaxContentLength runes.
func SanitizeContent(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}

	result := strings.TrimSpace(strings.Join(kept, "\n"))
	runes := []rune(result)
	if len(runes) > MaxContentLength {
		result = string(runes[:MaxContentLength])
	}
	return result
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (*Template, error) {
	var t Template
	var idStr, createdAt, updatedAt string
	var enabled int

	err := row.Scan(&idStr, &t.Name, &t.Content, &t.Target, &t.Position, &enabled, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse template id: %w", err)
	}
	t.Enabled = enabled != 0
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &t, nil
}

func collectTemplates(rows *sql.Rows) ([]Template, error) {
	templates := []Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
