package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/orgsynth/internal/apperr"
	"github.com/starford/orgsynth/internal/dataset"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/pipeline"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// EntityRow is a lightweight entity listing item.
type EntityRow struct {
	Type      models.EntityType `json:"type"`
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Team      string            `json:"team,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// EntityQuery filters ListEntities. Sort is "created_at", "title" or empty
// for registration order.
type EntityQuery struct {
	Type   models.EntityType
	Team   string
	Sort   string
	Limit  int
	Offset int
}

// EdgeQuery filters Edges. A zero Node matches every edge.
type EdgeQuery struct {
	Type      models.EdgeType
	Node      models.Ref
	MinWeight float64
	Limit     int
	Offset    int
}

// SearchResult represents one search hit.
type SearchResult struct {
	Type    models.EntityType `json:"type"`
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Snippet string            `json:"snippet"`
}

var sortColumns = map[string]string{
	"":           "seq",
	"created_at": "created_at, seq",
	"title":      "title, seq",
}

// ValidSort reports whether ListEntities accepts sort.
func ValidSort(sort string) bool {
	_, ok := sortColumns[sort]
	return ok
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}

// Save replaces the stored dataset within a transaction.
func (db *DB) Save(ds *dataset.Dataset, rep pipeline.Report) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, table := range []string{"entities", "edges", "overlaps", "meta"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("store: clear %s: %w", table, err)
		}
	}
	if err := ftsReset(tx); err != nil {
		return err
	}

	if err := insertEntities(tx, ds); err != nil {
		return err
	}
	if err := insertEdges(tx, ds.Edges()); err != nil {
		return err
	}
	if err := insertOverlaps(tx, ds.Overlaps()); err != nil {
		return err
	}

	report, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("store: encode report: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('checksum', ?), ('report', ?)`, rep.Checksum, string(report)); err != nil {
		return fmt.Errorf("store: write meta: %w", err)
	}
	return tx.Commit()
}

func insertEntities(tx *sql.Tx, ds *dataset.Dataset) error {
	stmt, err := tx.Prepare(`
		INSERT INTO entities (type, id, seq, created_at, team, title, body, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare entity insert: %w", err)
	}
	defer stmt.Close()

	seq := 0
	var insertErr error
	ds.All(func(rec models.Record) {
		if insertErr != nil {
			return
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			insertErr = fmt.Errorf("store: encode %s: %w", rec.Ref(), err)
			return
		}
		d := describe(rec)
		_, err = stmt.Exec(rec.Type, rec.ID, seq, rec.CreatedAt.UTC().Format(time.RFC3339Nano), d.team, d.title, d.body, string(raw))
		if err != nil {
			insertErr = fmt.Errorf("store: insert %s: %w", rec.Ref(), err)
			return
		}
		if err := ftsInsert(tx, rec.Ref(), d.title, d.body); err != nil {
			insertErr = err
			return
		}
		seq++
	})
	return insertErr
}

func insertEdges(tx *sql.Tx, edges []models.Edge) error {
	stmt, err := tx.Prepare(`
		INSERT INTO edges (edge_id, seq, edge_type, src, dst, weight, edge)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare edge insert: %w", err)
	}
	defer stmt.Close()
	for i, e := range edges {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("store: encode edge %s: %w", e.ID, err)
		}
		if _, err := stmt.Exec(e.ID, i, e.Type, e.Src.String(), e.Dst.String(), e.Weight, string(raw)); err != nil {
			return fmt.Errorf("store: insert edge %s: %w", e.ID, err)
		}
	}
	return nil
}

func insertOverlaps(tx *sql.Tx, overlaps []models.Overlap) error {
	stmt, err := tx.Prepare(`
		INSERT INTO overlaps (overlap_id, seq, team_a, team_b, topic, confidence, overlap)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare overlap insert: %w", err)
	}
	defer stmt.Close()
	for i, o := range overlaps {
		raw, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("store: encode overlap %s: %w", o.ID, err)
		}
		if _, err := stmt.Exec(o.ID, i, o.Teams[0], o.Teams[1], o.Topic, o.Confidence, string(raw)); err != nil {
			return fmt.Errorf("store: insert overlap %s: %w", o.ID, err)
		}
	}
	return nil
}

// Checksum returns the checksum of the stored dataset, or "" when empty.
func (db *DB) Checksum() (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = 'checksum'`).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: checksum: %w", err)
	}
	return cs, nil
}

// Report returns the stored run report.
func (db *DB) Report() (*pipeline.Report, error) {
	var raw string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = 'report'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: report", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: report: %w", err)
	}
	var rep pipeline.Report
	if err := json.Unmarshal([]byte(raw), &rep); err != nil {
		return nil, fmt.Errorf("store: decode report: %w", err)
	}
	return &rep, nil
}

// Entity returns one record.
func (db *DB) Entity(ref models.Ref) (*models.Record, error) {
	var raw string
	err := db.conn.QueryRow(`SELECT record FROM entities WHERE type = ? AND id = ?`, ref.Type, ref.ID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("store: entity: %w", err)
	}
	var rec models.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", ref, err)
	}
	return &rec, nil
}

// ListEntities returns a page of entities and the total match count.
func (db *DB) ListEntities(q EntityQuery) ([]EntityRow, int, error) {
	order, ok := sortColumns[q.Sort]
	if !ok {
		return nil, 0, fmt.Errorf("store: unknown sort %q", q.Sort)
	}
	var where []string
	var args []any
	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, q.Type)
	}
	if q.Team != "" {
		where = append(where, "team = ?")
		args = append(args, q.Team)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entities`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count entities: %w", err)
	}

	rows, err := db.conn.Query(`SELECT type, id, title, team, created_at FROM entities`+cond+
		` ORDER BY `+order+` LIMIT ? OFFSET ?`, append(args, clampLimit(q.Limit), max(q.Offset, 0))...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list entities: %w", err)
	}
	defer rows.Close()

	out := []EntityRow{}
	for rows.Next() {
		var r EntityRow
		var created string
		if err := rows.Scan(&r.Type, &r.ID, &r.Title, &r.Team, &created); err != nil {
			return nil, 0, err
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, 0, fmt.Errorf("store: parse created_at of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Edges returns a page of edges, heaviest first, and the total match count.
func (db *DB) Edges(q EdgeQuery) ([]models.Edge, int, error) {
	where := []string{"weight >= ?"}
	args := []any{q.MinWeight}
	if q.Type != "" {
		where = append(where, "edge_type = ?")
		args = append(args, q.Type)
	}
	if !q.Node.IsZero() {
		where = append(where, "(src = ? OR dst = ?)")
		args = append(args, q.Node.String(), q.Node.String())
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM edges`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count edges: %w", err)
	}
	rows, err := db.conn.Query(`SELECT edge FROM edges`+cond+` ORDER BY weight DESC, seq LIMIT ? OFFSET ?`,
		append(args, clampLimit(q.Limit), max(q.Offset, 0))...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: edges: %w", err)
	}
	out, err := scanJSON[models.Edge](rows)
	return out, total, err
}

// Overlaps returns overlaps involving team, or all when team is empty,
// most confident first.
func (db *DB) Overlaps(team string) ([]models.Overlap, error) {
	rows, err := db.conn.Query(`
		SELECT overlap FROM overlaps
		WHERE ? = '' OR team_a = ? OR team_b = ?
		ORDER BY confidence DESC, seq
	`, team, team, team)
	if err != nil {
		return nil, fmt.Errorf("store: overlaps: %w", err)
	}
	return scanJSON[models.Overlap](rows)
}

// Counts returns the number of stored entities per type.
func (db *DB) Counts() (map[models.EntityType]int, error) {
	rows, err := db.conn.Query(`SELECT type, count(*) FROM entities GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("store: counts: %w", err)
	}
	defer rows.Close()
	out := make(map[models.EntityType]int)
	for rows.Next() {
		var t models.EntityType
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, rows.Err()
}

// Dataset loads the whole stored dataset into memory.
func (db *DB) Dataset() (*dataset.Dataset, error) {
	rows, err := db.conn.Query(`SELECT record FROM entities ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("store: load entities: %w", err)
	}
	recs, err := scanJSON[models.Record](rows)
	if err != nil {
		return nil, err
	}
	if rows, err = db.conn.Query(`SELECT edge FROM edges ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("store: load edges: %w", err)
	}
	edges, err := scanJSON[models.Edge](rows)
	if err != nil {
		return nil, err
	}
	if rows, err = db.conn.Query(`SELECT overlap FROM overlaps ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("store: load overlaps: %w", err)
	}
	overlaps, err := scanJSON[models.Overlap](rows)
	if err != nil {
		return nil, err
	}
	return dataset.FromRecords(recs, edges, overlaps), nil
}

// scanJSON decodes a single JSON column per row and closes rows.
func scanJSON[T any](rows *sql.Rows) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("store: decode row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
