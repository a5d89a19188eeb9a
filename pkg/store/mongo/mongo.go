// Package mongo is the MongoDB [store.Store] backend.
//
// Gaskets and circles live in separate collections. Integer ids are drawn
// from a counters collection so that circle ids stay globally unique, as
// they are in the SQL backend.
package mongo

import (
	"context"
	stderrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/gasket"
	"github.com/matzehuels/gasket/pkg/store"
)

const (
	collGaskets  = "gaskets"
	collCircles  = "circles"
	collCounters = "counters"

	counterGasket = "gasket_id"
	counterCircle = "circle_id"
)

// DefaultDatabase is used when Config.Database is empty.
const DefaultDatabase = "gasket"

// Config holds the connection settings.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Store implements store.Store on MongoDB.
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	gaskets  *mongo.Collection
	circles  *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

type gasketDoc struct {
	ID             int64      `bson:"_id"`
	Hash           string     `bson:"hash"`
	Curvatures     []string   `bson:"initial_curvatures"`
	NumCircles     int        `bson:"num_circles"`
	MaxDepthCached int        `bson:"max_depth_cached"`
	AccessCount    int        `bson:"access_count"`
	CreatedAt      time.Time  `bson:"created_at"`
	LastAccessed   *time.Time `bson:"last_accessed_at,omitempty"`
}

func (d gasketDoc) gasket() *store.Gasket {
	return &store.Gasket{
		ID:             d.ID,
		Hash:           d.Hash,
		Curvatures:     d.Curvatures,
		NumCircles:     d.NumCircles,
		MaxDepthCached: d.MaxDepthCached,
		AccessCount:    d.AccessCount,
		CreatedAt:      d.CreatedAt,
		LastAccessed:   d.LastAccessed,
	}
}

// Open connects to MongoDB, verifies the connection and ensures indexes.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetTimeout(cfg.Timeout))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongodb")
	}

	s := newStore(client, cfg.Database)
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func newStore(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:   client,
		db:       db,
		gaskets:  db.Collection(collGaskets),
		circles:  db.Collection(collCircles),
		counters: db.Collection(collCounters),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.gaskets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "hash", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "create gasket hash index")
	}
	_, err = s.circles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "gasket_id", Value: 1}, {Key: "generation", Value: 1}}},
		{Keys: bson.D{{Key: "curvature.num", Value: 1}, {Key: "curvature.den", Value: 1}}},
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "create circle indexes")
	}
	return nil
}

// Database exposes the underlying database, used by tests to drop it.
func (s *Store) Database() *mongo.Database { return s.db }

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// reserve advances the named counter by n and returns the first id of the
// reserved block.
func (s *Store) reserve(ctx context.Context, name string, n int64) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": n}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStorage, err, "reserve %d ids from %s", n, name)
	}
	return doc.Seq - n + 1, nil
}

// Save inserts g, or replaces the gasket with the same hash, together with
// its circles. The replace is not transactional: standalone servers do not
// support multi-document transactions.
func (s *Store) Save(ctx context.Context, g *store.Gasket, circles []*gasket.Circle) error {
	now := s.now()

	var existing gasketDoc
	err := s.gaskets.FindOne(ctx, bson.M{"hash": g.Hash}).Decode(&existing)
	switch {
	case err == nil:
		g.ID = existing.ID
		g.CreatedAt = existing.CreatedAt
		g.AccessCount = existing.AccessCount + 1
		if _, err := s.circles.DeleteMany(ctx, bson.M{"gasket_id": g.ID}); err != nil {
			return errors.Wrap(errors.ErrCodeStorage, err, "clear circles of gasket %d", g.ID)
		}
	case stderrors.Is(err, mongo.ErrNoDocuments):
		id, err := s.reserve(ctx, counterGasket, 1)
		if err != nil {
			return err
		}
		g.ID = id
		g.CreatedAt = now
		g.AccessCount = 1
	default:
		return errors.Wrap(errors.ErrCodeStorage, err, "find gasket %s", g.Hash)
	}
	g.NumCircles = len(circles)
	g.LastAccessed = &now

	doc := gasketDoc{
		ID:             g.ID,
		Hash:           g.Hash,
		Curvatures:     g.Curvatures,
		NumCircles:     g.NumCircles,
		MaxDepthCached: g.MaxDepthCached,
		AccessCount:    g.AccessCount,
		CreatedAt:      g.CreatedAt,
		LastAccessed:   g.LastAccessed,
	}
	_, err = s.gaskets.ReplaceOne(ctx, bson.M{"_id": g.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "upsert gasket %s", g.Hash)
	}

	if len(circles) == 0 {
		return nil
	}
	first, err := s.reserve(ctx, counterCircle, int64(len(circles)))
	if err != nil {
		return err
	}
	store.AssignIDs(circles, first)

	docs := make([]any, len(circles))
	for i, c := range circles {
		docs[i] = store.Project(c, g.ID)
	}
	if _, err := s.circles.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false)); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "insert circles of gasket %d", g.ID)
	}
	return nil
}

func (s *Store) findGasket(ctx context.Context, filter bson.M, what string) (*store.Gasket, error) {
	var doc gasketDoc
	err := s.gaskets.FindOne(ctx, filter).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.New(errors.ErrCodeNotFound, "gasket %s not found", what)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "find gasket %s", what)
	}
	return doc.gasket(), nil
}

// GasketByHash returns the gasket with the given seed hash.
func (s *Store) GasketByHash(ctx context.Context, hash string) (*store.Gasket, error) {
	return s.findGasket(ctx, bson.M{"hash": hash}, "with hash "+hash)
}

// GasketByID returns the gasket with the given id.
func (s *Store) GasketByID(ctx context.Context, id int64) (*store.Gasket, error) {
	g, err := s.findGasket(ctx, bson.M{"_id": id}, "")
	if errors.Is(err, errors.ErrCodeNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "gasket %d not found", id)
	}
	return g, err
}

// List returns up to limit gaskets, most recently accessed first.
func (s *Store) List(ctx context.Context, limit int) ([]*store.Gasket, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "last_accessed_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.gaskets.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list gaskets")
	}
	var docs []gasketDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list gaskets")
	}

	out := make([]*store.Gasket, len(docs))
	for i, d := range docs {
		out[i] = d.gasket()
	}
	return out, nil
}

// Circles loads the circles of a gasket up to maxDepth.
func (s *Store) Circles(ctx context.Context, gasketID int64, maxDepth int) ([]*gasket.Circle, error) {
	filter := bson.M{"gasket_id": gasketID, "generation": bson.M{"$lte": maxDepth}}
	cur, err := s.circles.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "query circles of gasket %d", gasketID)
	}
	var recs []store.CircleRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode circles of gasket %d", gasketID)
	}

	out := make([]*gasket.Circle, 0, len(recs))
	for _, rec := range recs {
		c, err := store.Restore(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	store.Relink(out)
	return out, nil
}

// Touch records an access.
func (s *Store) Touch(ctx context.Context, id int64) error {
	res, err := s.gaskets.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"access_count": 1},
		"$set": bson.M{"last_accessed_at": s.now()},
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "touch gasket %d", id)
	}
	if res.MatchedCount == 0 {
		return errors.New(errors.ErrCodeNotFound, "gasket %d not found", id)
	}
	return nil
}

// Delete removes a gasket and its circles.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.gaskets.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete gasket %d", id)
	}
	if res.DeletedCount == 0 {
		return errors.New(errors.ErrCodeNotFound, "gasket %d not found", id)
	}
	if _, err := s.circles.DeleteMany(ctx, bson.M{"gasket_id": id}); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete circles of gasket %d", id)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
