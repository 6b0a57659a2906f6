// Package sqlite implements the song catalog on a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/song"
	"github.com/ponchocards/ponchocards/pkg/store"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const columns = "id, artist, title, year, youtube_url, created_at, updated_at"

// Store is a store.Store backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != MemoryPath {
		dsn = "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "open %s", path)
	}
	if path == MemoryPath {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect %s", path)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeStore, err, "migrate %s", path)
	}
	return &Store{db: db, now: time.Now}, nil
}

// DB exposes the underlying handle for maintenance commands.
func (s *Store) DB() *sql.DB { return s.db }

// Close implements store.Store.
func (s *Store) Close() error { return s.db.Close() }

// List implements store.Store.
func (s *Store) List(ctx context.Context, q store.Query) (*store.Page, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	where, args := whereClause(q)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM songs"+where, args...).Scan(&total); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "count songs")
	}

	query := "SELECT " + columns + " FROM songs" + where + orderClause(q) + " LIMIT ? OFFSET ?"
	songs, err := s.query(ctx, query, append(args, q.PageSize, q.Offset())...)
	if err != nil {
		return nil, err
	}
	return &store.Page{Songs: songs, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

// whereClause builds the filter for q. Search terms are matched against
// lowercased columns with LIKE wildcards escaped.
func whereClause(q store.Query) (string, []any) {
	var conds []string
	var args []any
	if q.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		conds = append(conds,
			`(LOWER(artist) LIKE ? ESCAPE '\' OR LOWER(title) LIKE ? ESCAPE '\' OR LOWER(youtube_url) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if q.Year != nil {
		conds = append(conds, "year = ?")
		args = append(args, *q.Year)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(q store.Query) string {
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	switch q.Sort {
	case store.SortArtist:
		return " ORDER BY artist COLLATE NOCASE " + dir + ", id ASC"
	case store.SortTitle:
		return " ORDER BY title COLLATE NOCASE " + dir + ", id ASC"
	case store.SortYear:
		return " ORDER BY year " + dir + ", id ASC"
	default:
		return " ORDER BY id " + dir
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, id int64) (*song.Song, error) {
	songs, err := s.query(ctx, "SELECT "+columns+" FROM songs WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(songs) == 0 {
		return nil, store.NotFound(id)
	}
	return &songs[0], nil
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, r song.Record) (*song.Song, error) {
	r, err := store.Prepare(r)
	if err != nil {
		return nil, err
	}
	now := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO songs (artist, title, year, youtube_url, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.Artist, r.Title, nullYear(r.Year), r.Link, now, now)
	if err != nil {
		return nil, writeError(err, r.Link, "create song")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create song")
	}
	return s.Get(ctx, id)
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, id int64, r song.Record) (*song.Song, error) {
	r, err := store.Prepare(r)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE songs SET artist = ?, title = ?, year = ?, youtube_url = ?, updated_at = ? WHERE id = ?`,
		r.Artist, r.Title, nullYear(r.Year), r.Link, s.stamp(), id)
	if err != nil {
		return nil, writeError(err, r.Link, "update song %d", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, store.NotFound(id)
	}
	return s.Get(ctx, id)
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM songs WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete song %d", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.NotFound(id)
	}
	return nil
}

// BulkUpsert implements store.Store. Every record is written in a single
// transaction keyed on the link.
func (s *Store) BulkUpsert(ctx context.Context, records []song.Record) (int, error) {
	records, err := store.PrepareAll(records)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStore, err, "begin import")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO songs (artist, title, year, youtube_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(youtube_url) DO UPDATE SET
			artist = excluded.artist,
			title = excluded.title,
			year = excluded.year,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStore, err, "prepare import")
	}
	defer stmt.Close()

	now := s.stamp()
	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Artist, r.Title, nullYear(r.Year), r.Link, now, now); err != nil {
			return 0, errors.Wrap(errors.ErrCodeStore, err, "import record %d", i+1)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(errors.ErrCodeStore, err, "commit import")
	}
	return len(records), nil
}

// All implements store.Store.
func (s *Store) All(ctx context.Context) ([]song.Song, error) {
	return s.query(ctx, "SELECT "+columns+" FROM songs ORDER BY id ASC")
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]song.Song, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "query songs")
	}
	defer rows.Close()

	songs := []song.Song{}
	for rows.Next() {
		var (
			sg               song.Song
			year             sql.NullInt64
			created, updated string
		)
		if err := rows.Scan(&sg.ID, &sg.Artist, &sg.Title, &year, &sg.Link, &created, &updated); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "scan song")
		}
		if year.Valid {
			sg.Year = song.Year(int(year.Int64))
		}
		sg.CreatedAt = parseStamp(created)
		sg.UpdatedAt = parseStamp(updated)
		songs = append(songs, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "read songs")
	}
	return songs, nil
}

func nullYear(y *int) sql.NullInt64 {
	if y == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*y), Valid: true}
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func parseStamp(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// writeError maps a unique violation on the link to CONFLICT.
func writeError(err error, link, format string, args ...any) error {
	var se sqlite3.Error
	if stderrors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return store.Conflict(link)
	}
	return errors.Wrap(errors.ErrCodeStore, err, format, args...)
}

var _ store.Store = (*Store)(nil)
