// Package docstore is the gateway to the document database holding blog posts,
// dashboard drafts, org roles and sign-in accounts.
package docstore

import (
	"time"

	"github.com/google/uuid"
)

// Collection names.
const (
	Blogs    = "blogs"
	Posts    = "posts"
	OrgUsers = "orgUsers"
	Accounts = "accounts"
)

// Order fields accepted by Query.OrderBy.
const (
	ByCreated = "createdAt"
	ByUpdated = "updatedAt"
)

// Status is the publication state of a post.
type Status string

const (
	Draft     Status = "draft"
	Published Status = "published"
)

// Post is a document in the blogs or posts collection. Image holds the
// cover URL for dashboard drafts.
type Post struct {
	ID        string            `bson:"_id" json:"id"`
	Title     string            `bson:"title" json:"title"`
	Summary   string            `bson:"summary,omitempty" json:"summary,omitempty"`
	Content   string            `bson:"content,omitempty" json:"content,omitempty"`
	Image     string            `bson:"image,omitempty" json:"image,omitempty"`
	Social    map[string]string `bson:"social,omitempty" json:"social,omitempty"`
	Tags      []string          `bson:"tags,omitempty" json:"tags,omitempty"`
	Slug      string            `bson:"slug,omitempty" json:"slug,omitempty"`
	Status    Status            `bson:"status,omitempty" json:"status,omitempty"`
	AuthorID  string            `bson:"authorId,omitempty" json:"authorId,omitempty"`
	Date      string            `bson:"date,omitempty" json:"date,omitempty"`
	CreatedAt time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// Patch lists the fields an update writes. Nil fields are left untouched.
type Patch struct {
	Title   *string
	Summary *string
	Content *string
	Image   *string
	Slug    *string
	Status  *Status
	Tags    *[]string
	Social  map[string]string
}

// Query selects and orders documents for List.
type Query struct {
	AuthorID string
	OrderBy  string
	Desc     bool
}

// Role is an authorization role from the orgUsers collection.
type Role string

const (
	RoleNone      Role = ""
	RoleOrgMember Role = "OrgMember"
	RoleBlogAdmin Role = "BlogAdmin"
)

// CanWrite reports whether the role grants editor and dashboard access.
func (r Role) CanWrite() bool {
	return r == RoleOrgMember || r == RoleBlogAdmin
}

// ParseRole accepts the stored role spelling. Unknown values map to RoleNone.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleOrgMember, RoleBlogAdmin:
		return Role(s)
	default:
		return RoleNone
	}
}

// OrgUser maps an authenticated user id to a role.
type OrgUser struct {
	UID  string `bson:"_id"`
	Role Role   `bson:"role"`
}

// Account is a local email/password credential.
type Account struct {
	UID          string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// NewID allocates a document id ahead of an insert, e.g. to derive an upload
// path for a draft that does not exist yet.
func NewID() string {
	return uuid.NewString()
}

// Str returns a pointer to s, for building a Patch.
func Str(s string) *string { return &s }
