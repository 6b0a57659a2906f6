// Package mongo implements the song catalog on MongoDB.
//
// Songs keep integer ids, allocated from a counters collection, so that ids
// look the same whichever backend a catalog lives in.
package mongo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ponchocards/ponchocards/pkg/cache"
	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/song"
	"github.com/ponchocards/ponchocards/pkg/store"
)

// Defaults for Config.
const (
	DefaultDatabase   = "ponchocards"
	DefaultCollection = "songs"
	countersName      = "counters"
	connectTimeout    = 10 * time.Second
)

// Config configures the Mongo backend.
type Config struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Store is a store.Store backed by MongoDB.
type Store struct {
	client   *mongo.Client
	songs    *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

// document is the stored shape of a song.
type document struct {
	ID        int64     `bson:"_id"`
	Artist    string    `bson:"artist"`
	Title     string    `bson:"title"`
	Year      *int      `bson:"year"`
	Link      string    `bson:"youtube_url"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d document) song() song.Song {
	return song.Song{
		ID:        d.ID,
		Record:    song.Record{Artist: d.Artist, Title: d.Title, Year: d.Year, Link: d.Link},
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// Open connects to MongoDB, retrying transient failures, and ensures the
// unique index on the link.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo: uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(connectTimeout))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "mongo connect")
	}

	err = cache.RetryWithBackoff(ctx, func() error {
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return cache.Retryable(fmt.Errorf("%w: %v", cache.ErrUnavailable, err))
		}
		return nil
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStore, err, "mongo ping")
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:   client,
		songs:    db.Collection(cfg.Collection),
		counters: db.Collection(countersName),
		now:      time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.songs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "youtube_url", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "year", Value: 1}}},
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "create indexes")
	}
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// List implements store.Store.
func (s *Store) List(ctx context.Context, q store.Query) (*store.Page, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	f := Filter(q)
	total, err := s.songs.CountDocuments(ctx, f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "count songs")
	}

	opts := options.Find().
		SetSort(SortSpec(q)).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.PageSize)).
		SetCollation(caseInsensitive())
	songs, err := s.find(ctx, f, opts)
	if err != nil {
		return nil, err
	}
	return &store.Page{Songs: songs, Total: int(total), Page: q.Page, PageSize: q.PageSize}, nil
}

// Filter translates q into a query document. Search is an escaped,
// case-insensitive regular expression over artist, title and link.
func Filter(q store.Query) bson.D {
	f := bson.D{}
	if q.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		f = append(f, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "artist", Value: re}},
			bson.D{{Key: "title", Value: re}},
			bson.D{{Key: "youtube_url", Value: re}},
		}})
	}
	if q.Year != nil {
		f = append(f, bson.E{Key: "year", Value: *q.Year})
	}
	return f
}

// SortSpec translates q's ordering into a sort document with _id as the
// tiebreak.
func SortSpec(q store.Query) bson.D {
	dir := 1
	if q.Desc {
		dir = -1
	}
	switch q.Sort {
	case store.SortArtist, store.SortTitle, store.SortYear:
		return bson.D{{Key: string(q.Sort), Value: dir}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "_id", Value: dir}}
	}
}

func caseInsensitive() *options.Collation {
	return &options.Collation{Locale: "en", Strength: 2}
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, id int64) (*song.Song, error) {
	var d document
	err := s.songs.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "get song %d", id)
	}
	sg := d.song()
	return &sg, nil
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, r song.Record) (*song.Song, error) {
	r, err := store.Prepare(r)
	if err != nil {
		return nil, err
	}
	id, err := s.reserveIDs(ctx, 1)
	if err != nil {
		return nil, err
	}
	now := s.stamp()
	d := document{ID: id, Artist: r.Artist, Title: r.Title, Year: r.Year, Link: r.Link, CreatedAt: now, UpdatedAt: now}
	if _, err := s.songs.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.Conflict(r.Link)
		}
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create song")
	}
	sg := d.song()
	return &sg, nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, id int64, r song.Record) (*song.Song, error) {
	r, err := store.Prepare(r)
	if err != nil {
		return nil, err
	}
	res, err := s.songs.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: fields(r, s.stamp())}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.Conflict(r.Link)
		}
		return nil, errors.Wrap(errors.ErrCodeStore, err, "update song %d", id)
	}
	if res.MatchedCount == 0 {
		return nil, store.NotFound(id)
	}
	return s.Get(ctx, id)
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.songs.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete song %d", id)
	}
	if res.DeletedCount == 0 {
		return store.NotFound(id)
	}
	return nil
}

// BulkUpsert implements store.Store. Records are validated before anything
// is written; the writes themselves go out as one ordered bulk operation.
func (s *Store) BulkUpsert(ctx context.Context, records []song.Record) (int, error) {
	records, err := store.PrepareAll(records)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	last, err := s.reserveIDs(ctx, len(records))
	if err != nil {
		return 0, err
	}
	first := last - int64(len(records)) + 1

	models := UpsertModels(records, first, s.stamp())
	if _, err := s.songs.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return 0, errors.Wrap(errors.ErrCodeStore, err, "import songs")
	}
	return len(records), nil
}

// UpsertModels builds one upsert per record keyed on the link. New songs
// take consecutive ids starting at firstID.
func UpsertModels(records []song.Record, firstID int64, now time.Time) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(records))
	for i, r := range records {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "youtube_url", Value: r.Link}}).
			SetUpdate(bson.D{
				{Key: "$set", Value: fields(r, now)},
				{Key: "$setOnInsert", Value: bson.D{
					{Key: "_id", Value: firstID + int64(i)},
					{Key: "created_at", Value: now},
				}},
			}).
			SetUpsert(true))
	}
	return models
}

func fields(r song.Record, now time.Time) bson.D {
	return bson.D{
		{Key: "artist", Value: r.Artist},
		{Key: "title", Value: r.Title},
		{Key: "year", Value: r.Year},
		{Key: "youtube_url", Value: r.Link},
		{Key: "updated_at", Value: now},
	}
}

// All implements store.Store.
func (s *Store) All(ctx context.Context) ([]song.Song, error) {
	return s.find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (s *Store) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]song.Song, error) {
	cur, err := s.songs.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "query songs")
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "read songs")
	}
	songs := make([]song.Song, 0, len(docs))
	for _, d := range docs {
		songs = append(songs, d.song())
	}
	return songs, nil
}

// reserveIDs advances the song counter by n and returns the last id
// reserved.
func (s *Store) reserveIDs(ctx context.Context, n int) (int64, error) {
	var c struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: s.songs.Name()}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(n)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStore, err, "allocate song id")
	}
	return c.Seq, nil
}

// stamp is millisecond precision, matching BSON dates.
func (s *Store) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

var _ store.Store = (*Store)(nil)
