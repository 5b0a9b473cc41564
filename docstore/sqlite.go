package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/pilotsite/apperr"
)

// Fixed-width so lexical order in SQLite matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const postColumns = `id, title, summary, content, image, social, tags, slug, status, author_id, date, created_at, updated_at`

// SQLite stores every collection in a local SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path, ensures the data
// directory exists, and runs schema migrations.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "data/site.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the feed read while the editor writes; busy_timeout makes
	// writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &SQLite{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) ensureSchema() error {
	for _, coll := range []string{Blogs, Posts} {
		_, err := s.db.Exec(fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    image TEXT NOT NULL DEFAULT '',
    social TEXT NOT NULL DEFAULT '{}',
    tags TEXT NOT NULL DEFAULT ',',
    slug TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT '',
    author_id TEXT NOT NULL DEFAULT '',
    date TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS %[1]s_slug ON %[1]s (slug);
CREATE INDEX IF NOT EXISTS %[1]s_author ON %[1]s (author_id, updated_at);
`, coll))
		if err != nil {
			return err
		}
	}
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS org_users (
    uid TEXT PRIMARY KEY,
    role TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS accounts (
    uid TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`)
	return err
}

// List returns posts of coll, optionally filtered by author and ordered.
func (s *SQLite) List(ctx context.Context, coll string, q Query) ([]Post, error) {
	if err := checkCollection(coll); err != nil {
		return nil, err
	}
	if err := checkOrder(q.OrderBy); err != nil {
		return nil, err
	}
	stmt := `SELECT ` + postColumns + ` FROM ` + coll
	var args []any
	if q.AuthorID != "" {
		stmt += ` WHERE author_id = ?`
		args = append(args, q.AuthorID)
	}
	if q.OrderBy != "" {
		col := "created_at"
		if q.OrderBy == ByUpdated {
			col = "updated_at"
		}
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		stmt += ` ORDER BY ` + col + ` ` + dir
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Get returns a post by id.
func (s *SQLite) Get(ctx context.Context, coll, id string) (Post, error) {
	if err := checkCollection(coll); err != nil {
		return Post{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM `+coll+` WHERE id = ?`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, apperr.E(apperr.NotFound, "get "+coll, err)
	}
	return p, err
}

// GetBySlug returns the newest post carrying slug.
func (s *SQLite) GetBySlug(ctx context.Context, coll, slug string) (Post, error) {
	if err := checkCollection(coll); err != nil {
		return Post{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM `+coll+` WHERE slug = ? ORDER BY created_at DESC LIMIT 1`, slug)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, apperr.E(apperr.NotFound, "get "+coll, err)
	}
	return p, err
}

// Insert stores a new post.
func (s *SQLite) Insert(ctx context.Context, coll string, p Post) (Post, error) {
	if err := checkCollection(coll); err != nil {
		return Post{}, err
	}
	if p.ID == "" {
		p.ID = NewID()
	}
	ts := now()
	p.CreatedAt, p.UpdatedAt = ts, ts
	social, err := encodeSocial(p.Social)
	if err != nil {
		return Post{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO `+coll+` (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Summary, p.Content, p.Image, social, joinTags(p.Tags), p.Slug, string(p.Status),
		p.AuthorID, p.Date, ts.Format(timeLayout), ts.Format(timeLayout))
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

// Update writes the non-nil fields of patch.
func (s *SQLite) Update(ctx context.Context, coll, id string, patch Patch) error {
	if err := checkCollection(coll); err != nil {
		return err
	}
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Summary != nil {
		set("summary", *patch.Summary)
	}
	if patch.Content != nil {
		set("content", *patch.Content)
	}
	if patch.Image != nil {
		set("image", *patch.Image)
	}
	if patch.Slug != nil {
		set("slug", *patch.Slug)
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.Tags != nil {
		set("tags", joinTags(*patch.Tags))
	}
	if patch.Social != nil {
		social, err := encodeSocial(patch.Social)
		if err != nil {
			return err
		}
		set("social", social)
	}
	set("updated_at", now().Format(timeLayout))
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE `+coll+` SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	return requireRow(res, "update "+coll)
}

// Delete removes a post by id.
func (s *SQLite) Delete(ctx context.Context, coll, id string) error {
	if err := checkCollection(coll); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+coll+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "delete "+coll)
}

// OrgRole returns the role of uid, or RoleNone without a record.
func (s *SQLite) OrgRole(ctx context.Context, uid string) (Role, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM org_users WHERE uid = ?`, uid).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return RoleNone, nil
	}
	if err != nil {
		return RoleNone, err
	}
	return ParseRole(role), nil
}

// SetOrgRole grants role to uid. RoleNone removes the record.
func (s *SQLite) SetOrgRole(ctx context.Context, uid string, role Role) error {
	if role == RoleNone {
		_, err := s.db.ExecContext(ctx, `DELETE FROM org_users WHERE uid = ?`, uid)
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO org_users (uid, role) VALUES (?, ?)`, uid, string(role))
	return err
}

// FindAccount looks up a credential by email.
func (s *SQLite) FindAccount(ctx context.Context, email string) (Account, error) {
	var a Account
	var created string
	err := s.db.QueryRowContext(ctx, `SELECT uid, email, password_hash, created_at FROM accounts WHERE email = ?`, NormalizeEmail(email)).
		Scan(&a.UID, &a.Email, &a.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, apperr.E(apperr.NotFound, "find account", err)
	}
	if err != nil {
		return Account{}, err
	}
	a.CreatedAt = parseTime(created)
	return a, nil
}

// SaveAccount upserts a credential keyed by uid.
func (s *SQLite) SaveAccount(ctx context.Context, a Account) error {
	if a.UID == "" {
		a.UID = NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO accounts (uid, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		a.UID, NormalizeEmail(a.Email), a.PasswordHash, a.CreatedAt.UTC().Format(timeLayout))
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(r scanner) (Post, error) {
	var p Post
	var social, tags, status, created, updated string
	if err := r.Scan(&p.ID, &p.Title, &p.Summary, &p.Content, &p.Image, &social, &tags, &p.Slug,
		&status, &p.AuthorID, &p.Date, &created, &updated); err != nil {
		return Post{}, err
	}
	if social != "" && social != "{}" {
		if err := json.Unmarshal([]byte(social), &p.Social); err != nil {
			return Post{}, fmt.Errorf("decode social links of %s: %w", p.ID, err)
		}
	}
	p.Tags = ParseTags(tags)
	p.Status = Status(status)
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.E(apperr.NotFound, op, sql.ErrNoRows)
	}
	return nil
}

func encodeSocial(m map[string]string) (string, error) {
	clean := make(map[string]string, len(m))
	for k, v := range m {
		if v = strings.TrimSpace(v); v != "" {
			clean[k] = v
		}
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func joinTags(tags []string) string {
	var clean []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			clean = append(clean, t)
		}
	}
	return "," + strings.Join(clean, ",") + ","
}

// ParseTags splits a comma-delimited tag string (e.g. ",go,web,") into a slice.
func ParseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return nil
	}
	parts := strings.Split(tagString, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
