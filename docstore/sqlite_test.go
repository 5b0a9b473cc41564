package docstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pilotsite/apperr"
)

func setupTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "site.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	in := Post{
		Title:   "Pilots in Tempe",
		Summary: "A short summary",
		Image:   "https://example.com/a.png",
		Social:  map[string]string{"facebook": "https://facebook.com/x", "linkedin": " "},
		Tags:    []string{"events", " news "},
		Slug:    "pilots-in-tempe",
	}
	got, err := s.Insert(ctx, Blogs, in)
	require.NoError(t, err)
	require.NotEmpty(t, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))

	loaded, err := s.Get(ctx, Blogs, got.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pilots in Tempe", loaded.Title)
	assert.Equal(t, []string{"events", "news"}, loaded.Tags)
	assert.Equal(t, map[string]string{"facebook": "https://facebook.com/x"}, loaded.Social)
	assert.True(t, loaded.CreatedAt.Equal(got.CreatedAt))

	bySlug, err := s.GetBySlug(ctx, Blogs, "pilots-in-tempe")
	require.NoError(t, err)
	assert.Equal(t, got.ID, bySlug.ID)
}

func TestInsertKeepsPreallocatedID(t *testing.T) {
	s := setupTestStore(t)
	id := NewID()
	got, err := s.Insert(context.Background(), Posts, Post{ID: id, Title: "Draft"})
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
}

func TestUpdateWritesOnlyPatchedFields(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	created, err := s.Insert(ctx, Blogs, Post{Title: "Old", Summary: "keep me", Date: "March 3, 2025"})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.Update(ctx, Blogs, created.ID, Patch{Title: Str("New")}))

	got, err := s.Get(ctx, Blogs, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, "keep me", got.Summary)
	assert.Equal(t, "March 3, 2025", got.Date)
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt), "createdAt must not change on update")
	assert.True(t, got.UpdatedAt.After(created.UpdatedAt))
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, Posts, "nope", Patch{Title: Str("x")})
	assert.True(t, apperr.Is(err, apperr.NotFound))

	err = s.Delete(ctx, Posts, "nope")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = s.Get(ctx, Posts, "nope")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestListOrderingAndAuthorFilter(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, err := s.Insert(ctx, Posts, Post{Title: "first", AuthorID: "u1"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = s.Insert(ctx, Posts, Post{Title: "second", AuthorID: "u1"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = s.Insert(ctx, Posts, Post{Title: "other", AuthorID: "u2"})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.Update(ctx, Posts, first.ID, Patch{Content: Str("touched")}))

	got, err := s.List(ctx, Posts, Query{AuthorID: "u1", OrderBy: ByUpdated, Desc: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Title)
	assert.Equal(t, "second", got[1].Title)

	got, err = s.List(ctx, Posts, Query{OrderBy: ByCreated, Desc: true})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "other", got[0].Title)
}

func TestListRejectsUnknownOrder(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.List(context.Background(), Blogs, Query{OrderBy: "title"})
	assert.Error(t, err)
	_, err = s.List(context.Background(), "widgets", Query{})
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	p, err := s.Insert(ctx, Blogs, Post{Title: "gone soon"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, Blogs, p.ID))
	_, err = s.Get(ctx, Blogs, p.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestOrgRoles(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	role, err := s.OrgRole(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, RoleNone, role)
	assert.False(t, role.CanWrite())

	require.NoError(t, s.SetOrgRole(ctx, "u1", RoleBlogAdmin))
	role, err = s.OrgRole(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, role.CanWrite())

	require.NoError(t, s.SetOrgRole(ctx, "u1", RoleNone))
	role, err = s.OrgRole(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, RoleNone, role)
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleOrgMember, ParseRole("OrgMember"))
	assert.Equal(t, RoleNone, ParseRole("Viewer"))
	assert.Equal(t, RoleNone, ParseRole("orgmember"))
}

func TestAccounts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAccount(ctx, Account{UID: "u9", Email: " Ada@Example.com ", PasswordHash: "h"}))
	a, err := s.FindAccount(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u9", a.UID)
	assert.Equal(t, "ada@example.com", a.Email)

	_, err = s.FindAccount(ctx, "nobody@example.com")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestParseTags(t *testing.T) {
	assert.Nil(t, ParseTags(","))
	assert.Equal(t, []string{"go", "web"}, ParseTags(",go, web,"))
}
