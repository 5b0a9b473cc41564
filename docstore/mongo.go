package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eringen/pilotsite/apperr"
)

// Mongo keeps each collection in a MongoDB database. Document ids are the
// same UUID strings the SQLite backend uses.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to uri and prepares indexes on database.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	if database == "" {
		database = "pilotsite"
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	m := &Mongo{client: client, db: client.Database(database)}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	for _, coll := range []string{Blogs, Posts} {
		_, err := m.db.Collection(coll).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "slug", Value: 1}}},
			{Keys: bson.D{{Key: "authorId", Value: 1}, {Key: "updatedAt", Value: -1}}},
		})
		if err != nil {
			return mapMongoErr("create indexes", err)
		}
	}
	_, err := m.db.Collection(Accounts).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return mapMongoErr("create indexes", err)
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	return m.client.Disconnect(context.Background())
}

// List returns posts of coll, optionally filtered by author and ordered.
func (m *Mongo) List(ctx context.Context, coll string, q Query) ([]Post, error) {
	if err := checkCollection(coll); err != nil {
		return nil, err
	}
	if err := checkOrder(q.OrderBy); err != nil {
		return nil, err
	}
	filter := bson.M{}
	if q.AuthorID != "" {
		filter["authorId"] = q.AuthorID
	}
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}
	cur, err := m.db.Collection(coll).Find(ctx, filter, opts)
	if err != nil {
		return nil, mapMongoErr("list "+coll, err)
	}
	defer cur.Close(ctx)

	var posts []Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, mapMongoErr("list "+coll, err)
	}
	return posts, nil
}

// Get returns a post by id.
func (m *Mongo) Get(ctx context.Context, coll, id string) (Post, error) {
	if err := checkCollection(coll); err != nil {
		return Post{}, err
	}
	var p Post
	err := m.db.Collection(coll).FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	return p, mapMongoErr("get "+coll, err)
}

// GetBySlug returns the newest post carrying slug.
func (m *Mongo) GetBySlug(ctx context.Context, coll, slug string) (Post, error) {
	if err := checkCollection(coll); err != nil {
		return Post{}, err
	}
	var p Post
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	err := m.db.Collection(coll).FindOne(ctx, bson.M{"slug": slug}, opts).Decode(&p)
	return p, mapMongoErr("get "+coll, err)
}

// Insert stores a new post.
func (m *Mongo) Insert(ctx context.Context, coll string, p Post) (Post, error) {
	if err := checkCollection(coll); err != nil {
		return Post{}, err
	}
	if p.ID == "" {
		p.ID = NewID()
	}
	// Mongo keeps millisecond precision.
	ts := now().Truncate(time.Millisecond)
	p.CreatedAt, p.UpdatedAt = ts, ts
	if _, err := m.db.Collection(coll).InsertOne(ctx, p); err != nil {
		return Post{}, mapMongoErr("insert "+coll, err)
	}
	return p, nil
}

// Update writes the non-nil fields of patch with $set.
func (m *Mongo) Update(ctx context.Context, coll, id string, patch Patch) error {
	if err := checkCollection(coll); err != nil {
		return err
	}
	set := bson.M{"updatedAt": now().Truncate(time.Millisecond)}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Summary != nil {
		set["summary"] = *patch.Summary
	}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}
	if patch.Slug != nil {
		set["slug"] = *patch.Slug
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Tags != nil {
		set["tags"] = *patch.Tags
	}
	if patch.Social != nil {
		set["social"] = patch.Social
	}
	res, err := m.db.Collection(coll).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return mapMongoErr("update "+coll, err)
	}
	if res.MatchedCount == 0 {
		return apperr.E(apperr.NotFound, "update "+coll, mongo.ErrNoDocuments)
	}
	return nil
}

// Delete removes a post by id.
func (m *Mongo) Delete(ctx context.Context, coll, id string) error {
	if err := checkCollection(coll); err != nil {
		return err
	}
	res, err := m.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapMongoErr("delete "+coll, err)
	}
	if res.DeletedCount == 0 {
		return apperr.E(apperr.NotFound, "delete "+coll, mongo.ErrNoDocuments)
	}
	return nil
}

// OrgRole returns the role of uid, or RoleNone without a record.
func (m *Mongo) OrgRole(ctx context.Context, uid string) (Role, error) {
	var u struct {
		Role string `bson:"role"`
	}
	err := m.db.Collection(OrgUsers).FindOne(ctx, bson.M{"_id": uid}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return RoleNone, nil
	}
	if err != nil {
		return RoleNone, mapMongoErr("get role", err)
	}
	return ParseRole(u.Role), nil
}

// SetOrgRole grants role to uid. RoleNone removes the record.
func (m *Mongo) SetOrgRole(ctx context.Context, uid string, role Role) error {
	coll := m.db.Collection(OrgUsers)
	if role == RoleNone {
		_, err := coll.DeleteOne(ctx, bson.M{"_id": uid})
		return mapMongoErr("set role", err)
	}
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": uid}, OrgUser{UID: uid, Role: role}, options.Replace().SetUpsert(true))
	return mapMongoErr("set role", err)
}

// FindAccount looks up a credential by email.
func (m *Mongo) FindAccount(ctx context.Context, email string) (Account, error) {
	var a Account
	err := m.db.Collection(Accounts).FindOne(ctx, bson.M{"email": NormalizeEmail(email)}).Decode(&a)
	return a, mapMongoErr("find account", err)
}

// SaveAccount upserts a credential keyed by uid.
func (m *Mongo) SaveAccount(ctx context.Context, a Account) error {
	if a.UID == "" {
		a.UID = NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}
	a.Email = NormalizeEmail(a.Email)
	_, err := m.db.Collection(Accounts).ReplaceOne(ctx, bson.M{"_id": a.UID}, a, options.Replace().SetUpsert(true))
	return mapMongoErr("save account", err)
}

// mapMongoErr classifies driver errors. Code 13 is Unauthorized.
func mapMongoErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.E(apperr.NotFound, op, err)
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && (cmdErr.Code == 13 || strings.Contains(cmdErr.Message, "not authorized")) {
		return apperr.E(apperr.Permission, op, err)
	}
	if mongo.IsTimeout(err) {
		return apperr.E(apperr.Timeout, op, err)
	}
	if mongo.IsNetworkError(err) {
		return apperr.E(apperr.Network, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
