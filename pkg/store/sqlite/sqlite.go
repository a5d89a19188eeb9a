// Package sqlite is the SQLite [store.Store] backend, built on the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/gasket"
	"github.com/matzehuels/gasket/pkg/store"
)

const schemaV1 = `
CREATE TABLE IF NOT EXISTS gaskets (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	hash             TEXT NOT NULL UNIQUE,
	curvatures_json  TEXT NOT NULL DEFAULT '[]',
	num_circles      INTEGER NOT NULL DEFAULT 0,
	max_depth_cached INTEGER NOT NULL DEFAULT 0,
	access_count     INTEGER NOT NULL DEFAULT 1,
	created_at       INTEGER NOT NULL,
	last_accessed_at INTEGER
);

CREATE TABLE IF NOT EXISTS circles (
	id              INTEGER PRIMARY KEY,
	gasket_id       INTEGER NOT NULL REFERENCES gaskets(id) ON DELETE CASCADE,
	generation      INTEGER NOT NULL,
	circle_key      TEXT NOT NULL,
	curvature_num   INTEGER,
	curvature_denom INTEGER,
	center_x_num    INTEGER,
	center_x_denom  INTEGER,
	center_y_num    INTEGER,
	center_y_denom  INTEGER,
	radius_num      INTEGER,
	radius_denom    INTEGER,
	curvature_exact TEXT NOT NULL,
	center_x_exact  TEXT NOT NULL,
	center_y_exact  TEXT NOT NULL,
	radius_exact    TEXT NOT NULL,
	parent_ids      TEXT NOT NULL DEFAULT '[]',
	tangent_ids     TEXT NOT NULL DEFAULT '[]',
	UNIQUE(gasket_id, circle_key)
);
CREATE INDEX IF NOT EXISTS ix_circles_gasket_generation ON circles(gasket_id, generation);
CREATE INDEX IF NOT EXISTS ix_circles_curvature ON circles(curvature_num, curvature_denom);
`

// Store implements store.Store on SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open database")
	}

	// WAL allows concurrent readers but a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schemaV1); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "migrate schema")
	}
	return &Store{db: db, now: time.Now}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Save inserts or replaces the gasket with g.Hash and all of its circles in
// one transaction.
func (s *Store) Save(ctx context.Context, g *store.Gasket, circles []*gasket.Circle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "begin")
	}
	defer tx.Rollback()

	now := s.now()
	curvatures, err := json.Marshal(g.Curvatures)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSerialization, err, "encode curvatures")
	}

	const upsert = `INSERT INTO gaskets (hash, curvatures_json, num_circles, max_depth_cached, access_count, created_at, last_accessed_at)
VALUES (?, ?, ?, ?, 1, ?, ?)
ON CONFLICT(hash) DO UPDATE SET
	curvatures_json = excluded.curvatures_json,
	num_circles = excluded.num_circles,
	max_depth_cached = excluded.max_depth_cached,
	access_count = gaskets.access_count + 1,
	last_accessed_at = excluded.last_accessed_at
RETURNING id, access_count, created_at`

	var createdAt int64
	err = tx.QueryRowContext(ctx, upsert,
		g.Hash, string(curvatures), len(circles), g.MaxDepthCached, now.UnixMilli(), now.UnixMilli(),
	).Scan(&g.ID, &g.AccessCount, &createdAt)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "upsert gasket %s", g.Hash)
	}
	g.NumCircles = len(circles)
	g.CreatedAt = time.UnixMilli(createdAt)
	g.LastAccessed = &now

	if _, err := tx.ExecContext(ctx, `DELETE FROM circles WHERE gasket_id = ?`, g.ID); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "clear circles of gasket %d", g.ID)
	}

	var maxID int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM circles`).Scan(&maxID); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "next circle id")
	}
	store.AssignIDs(circles, maxID+1)

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO circles (
	id, gasket_id, generation, circle_key,
	curvature_num, curvature_denom, center_x_num, center_x_denom,
	center_y_num, center_y_denom, radius_num, radius_denom,
	curvature_exact, center_x_exact, center_y_exact, radius_exact,
	parent_ids, tangent_ids)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "prepare circle insert")
	}
	defer stmt.Close()

	for _, c := range circles {
		rec := store.Project(c, g.ID)
		parents, _ := json.Marshal(rec.ParentIDs)
		tangents, _ := json.Marshal(rec.TangentIDs)
		_, err := stmt.ExecContext(ctx,
			rec.ID, rec.GasketID, rec.Generation, rec.Key,
			rec.Curvature.Num, rec.Curvature.Den, rec.CenterX.Num, rec.CenterX.Den,
			rec.CenterY.Num, rec.CenterY.Den, rec.Radius.Num, rec.Radius.Den,
			rec.CurvatureExact, rec.CenterXExact, rec.CenterYExact, rec.RadiusExact,
			string(parents), string(tangents),
		)
		if err != nil {
			return errors.Wrap(errors.ErrCodeStorage, err, "insert circle %s", c.Key.Short())
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "commit gasket %d", g.ID)
	}
	return nil
}

const gasketColumns = `id, hash, curvatures_json, num_circles, max_depth_cached, access_count, created_at, last_accessed_at`

// GasketByHash returns the gasket with the given seed hash.
func (s *Store) GasketByHash(ctx context.Context, hash string) (*store.Gasket, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+gasketColumns+` FROM gaskets WHERE hash = ?`, hash)
	g, err := scanGasket(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeNotFound, "gasket with hash %s not found", hash)
	}
	return g, err
}

// GasketByID returns the gasket with the given id.
func (s *Store) GasketByID(ctx context.Context, id int64) (*store.Gasket, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+gasketColumns+` FROM gaskets WHERE id = ?`, id)
	g, err := scanGasket(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeNotFound, "gasket %d not found", id)
	}
	return g, err
}

// List returns up to limit gaskets, most recently accessed first.
func (s *Store) List(ctx context.Context, limit int) ([]*store.Gasket, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+gasketColumns+` FROM gaskets
ORDER BY COALESCE(last_accessed_at, created_at) DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list gaskets")
	}
	defer rows.Close()

	var out []*store.Gasket
	for rows.Next() {
		g, err := scanGasket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list gaskets")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGasket(row scanner) (*store.Gasket, error) {
	var (
		g          store.Gasket
		curvatures string
		createdAt  int64
		accessed   sql.NullInt64
	)
	err := row.Scan(&g.ID, &g.Hash, &curvatures, &g.NumCircles, &g.MaxDepthCached,
		&g.AccessCount, &createdAt, &accessed)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "scan gasket")
	}
	if err := json.Unmarshal([]byte(curvatures), &g.Curvatures); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSerialization, err, "decode curvatures of gasket %d", g.ID)
	}
	g.CreatedAt = time.UnixMilli(createdAt)
	if accessed.Valid {
		t := time.UnixMilli(accessed.Int64)
		g.LastAccessed = &t
	}
	return &g, nil
}

// Circles loads the circles of a gasket up to maxDepth.
func (s *Store) Circles(ctx context.Context, gasketID int64, maxDepth int) ([]*gasket.Circle, error) {
	const q = `SELECT id, generation, circle_key, curvature_exact, center_x_exact, center_y_exact, parent_ids, tangent_ids
FROM circles WHERE gasket_id = ? AND generation <= ? ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q, gasketID, maxDepth)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "query circles of gasket %d", gasketID)
	}
	defer rows.Close()

	var out []*gasket.Circle
	for rows.Next() {
		var (
			rec               store.CircleRecord
			parents, tangents string
		)
		if err := rows.Scan(&rec.ID, &rec.Generation, &rec.Key, &rec.CurvatureExact,
			&rec.CenterXExact, &rec.CenterYExact, &parents, &tangents); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "scan circle")
		}
		if err := json.Unmarshal([]byte(parents), &rec.ParentIDs); err != nil {
			return nil, errors.Wrap(errors.ErrCodeSerialization, err, "decode parent ids of circle %d", rec.ID)
		}
		if err := json.Unmarshal([]byte(tangents), &rec.TangentIDs); err != nil {
			return nil, errors.Wrap(errors.ErrCodeSerialization, err, "decode tangent ids of circle %d", rec.ID)
		}
		rec.GasketID = gasketID
		c, err := store.Restore(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "query circles of gasket %d", gasketID)
	}
	store.Relink(out)
	return out, nil
}

// Touch records an access.
func (s *Store) Touch(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE gaskets SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?`,
		s.now().UnixMilli(), id)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "touch gasket %d", id)
	}
	return expectRow(res, id)
}

// Delete removes a gasket; its circles go with it through ON DELETE CASCADE.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM gaskets WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete gasket %d", id)
	}
	return expectRow(res, id)
}

func expectRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "check rows affected")
	}
	if n == 0 {
		return errors.New(errors.ErrCodeNotFound, "gasket %d not found", id)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
