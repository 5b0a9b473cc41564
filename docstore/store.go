package docstore

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store is implemented by the SQLite and MongoDB backends.
type Store interface {
	List(ctx context.Context, coll string, q Query) ([]Post, error)
	Get(ctx context.Context, coll, id string) (Post, error)
	GetBySlug(ctx context.Context, coll, slug string) (Post, error)
	// Insert stores p, assigning an id when p.ID is empty and setting both
	// timestamps to the store clock.
	Insert(ctx context.Context, coll string, p Post) (Post, error)
	// Update writes the non-nil fields of patch and refreshes UpdatedAt.
	Update(ctx context.Context, coll, id string, patch Patch) error
	Delete(ctx context.Context, coll, id string) error

	OrgRole(ctx context.Context, uid string) (Role, error)
	SetOrgRole(ctx context.Context, uid string, role Role) error

	FindAccount(ctx context.Context, email string) (Account, error)
	SaveAccount(ctx context.Context, a Account) error

	Close() error
}

// Open picks a backend by driver name ("sqlite" or "mongo").
func Open(ctx context.Context, driver, dsn, database string) (Store, error) {
	switch driver {
	case "", "sqlite":
		return OpenSQLite(dsn)
	case "mongo", "mongodb":
		return OpenMongo(ctx, dsn, database)
	default:
		return nil, fmt.Errorf("docstore: unknown driver %q", driver)
	}
}

func checkCollection(coll string) error {
	if coll != Blogs && coll != Posts {
		return fmt.Errorf("docstore: unknown collection %q", coll)
	}
	return nil
}

func checkOrder(field string) error {
	switch field {
	case "", ByCreated, ByUpdated:
		return nil
	default:
		return fmt.Errorf("docstore: cannot order by %q", field)
	}
}

// NormalizeEmail lowercases and trims an address for account lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func now() time.Time {
	return time.Now().UTC()
}
