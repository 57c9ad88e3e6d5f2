package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/packdim/trust-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Atomicity comes
// from transactions over a WAL-mode database; it serves local/dev
// deployments and tests that don't want a Postgres instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS products (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	category           TEXT NOT NULL DEFAULT '',
	description        TEXT NOT NULL DEFAULT '',
	length_mm          REAL NOT NULL DEFAULT 0,
	width_mm           REAL NOT NULL DEFAULT 0,
	height_mm          REAL NOT NULL DEFAULT 0,
	weight_g           REAL NOT NULL DEFAULT 0,
	created_by         TEXT NOT NULL,
	created_at         DATETIME NOT NULL,
	last_modified      DATETIME NOT NULL,
	last_modified_by   TEXT NOT NULL,
	likes              INTEGER NOT NULL DEFAULT 0,
	views              INTEGER NOT NULL DEFAULT 0,
	confidence         INTEGER NOT NULL DEFAULT 0,
	confidence_factors TEXT
);

CREATE TABLE IF NOT EXISTS product_likes (
	product_id TEXT NOT NULL REFERENCES products(id),
	user_id    TEXT NOT NULL,
	liked_at   DATETIME NOT NULL,
	PRIMARY KEY (product_id, user_id)
);

CREATE TABLE IF NOT EXISTS disputes (
	id                    TEXT PRIMARY KEY,
	product_id            TEXT NOT NULL REFERENCES products(id),
	dispute_type          TEXT NOT NULL,
	status                TEXT NOT NULL DEFAULT 'open',
	description           TEXT NOT NULL DEFAULT '',
	created_by            TEXT NOT NULL,
	created_at            DATETIME NOT NULL,
	upvotes               INTEGER NOT NULL DEFAULT 0,
	downvotes             INTEGER NOT NULL DEFAULT 0,
	resolution_pending_at DATETIME,
	resolution            TEXT
);

CREATE TABLE IF NOT EXISTS dispute_votes (
	dispute_id TEXT NOT NULL REFERENCES disputes(id),
	user_id    TEXT NOT NULL,
	vote       TEXT NOT NULL,
	voted_at   DATETIME NOT NULL,
	PRIMARY KEY (dispute_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_disputes_product_id ON disputes(product_id);
CREATE INDEX IF NOT EXISTS idx_disputes_status ON disputes(status);
CREATE INDEX IF NOT EXISTS idx_dispute_votes_voted_at ON dispute_votes(voted_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateProduct(ctx context.Context, p *model.Product) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products
		 (id, name, category, description, length_mm, width_mm, height_mm, weight_g,
		  created_by, created_at, last_modified, last_modified_by, likes, views, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Category, p.Description,
		p.Dimensions.LengthMM, p.Dimensions.WidthMM, p.Dimensions.HeightMM, p.Dimensions.WeightG,
		p.CreatedBy, p.CreatedAt.UTC(), p.LastModified.UTC(), p.LastModifiedBy,
		p.Likes, p.Views, p.Confidence,
	)
	return eris.Wrapf(err, "sqlite: insert product %s", p.ID)
}

// scannable is satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanProductRow(row scannable) (*model.Product, error) {
	var p model.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Category, &p.Description,
		&p.Dimensions.LengthMM, &p.Dimensions.WidthMM, &p.Dimensions.HeightMM, &p.Dimensions.WeightG,
		&p.CreatedBy, &p.CreatedAt, &p.LastModified, &p.LastModifiedBy,
		&p.Likes, &p.Views, &p.Confidence,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := scanProductRow(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: product %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get product %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListProductIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM products ORDER BY created_at`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list product ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: list product ids iterate")
}

func (s *SQLiteStore) IncrementViews(ctx context.Context, id string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET views = views + 1 WHERE id = ?`, id,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: increment views %s", id)
	}
	if err := checkRowsAffected(res, id); err != nil {
		return 0, err
	}

	var views int
	err = s.db.QueryRowContext(ctx,
		`SELECT views FROM products WHERE id = ?`, id,
	).Scan(&views)
	return views, eris.Wrapf(err, "sqlite: read views %s", id)
}

func (s *SQLiteStore) ToggleLike(ctx context.Context, id, userID string) (bool, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, eris.Wrap(err, "sqlite: begin toggle like")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`DELETE FROM product_likes WHERE product_id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return false, 0, eris.Wrapf(err, "sqlite: unlike %s", id)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, 0, eris.Wrap(err, "sqlite: rows affected")
	}

	liked := removed == 0
	delta := -1
	if liked {
		delta = 1
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO product_likes (product_id, user_id, liked_at) VALUES (?, ?, ?)`,
			id, userID, time.Now().UTC(),
		); err != nil {
			return false, 0, eris.Wrapf(err, "sqlite: like %s", id)
		}
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE products SET likes = MAX(likes + ?, 0) WHERE id = ?`, delta, id,
	)
	if err != nil {
		return false, 0, eris.Wrapf(err, "sqlite: adjust likes %s", id)
	}
	if err := checkRowsAffected(res, id); err != nil {
		return false, 0, err
	}

	var likes int
	if err := tx.QueryRowContext(ctx,
		`SELECT likes FROM products WHERE id = ?`, id,
	).Scan(&likes); err != nil {
		return false, 0, eris.Wrapf(err, "sqlite: read likes %s", id)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, eris.Wrap(err, "sqlite: commit toggle like")
	}
	return liked, likes, nil
}

func (s *SQLiteStore) SetConfidence(ctx context.Context, id string, confidence int, factors []byte) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET confidence = ?, confidence_factors = ? WHERE id = ?`,
		confidence, string(factors), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set confidence %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) CreateDispute(ctx context.Context, d *model.Dispute) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO disputes
		 (id, product_id, dispute_type, status, description, created_by, created_at, upvotes, downvotes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProductID, string(d.Type), string(d.Status), d.Description,
		d.CreatedBy, d.CreatedAt.UTC(), d.Votes.Upvotes, d.Votes.Downvotes,
	)
	return eris.Wrapf(err, "sqlite: insert dispute %s", d.ID)
}

func scanDisputeRow(row scannable) (*model.Dispute, error) {
	var d model.Dispute
	var pending sql.NullTime
	var resolutionJSON sql.NullString
	err := row.Scan(
		&d.ID, &d.ProductID, &d.Type, &d.Status, &d.Description,
		&d.CreatedBy, &d.CreatedAt,
		&d.Votes.Upvotes, &d.Votes.Downvotes,
		&pending, &resolutionJSON,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if pending.Valid {
		t := pending.Time
		d.ResolutionPendingAt = &t
	}
	if resolutionJSON.Valid && resolutionJSON.String != "" {
		d.Resolution = &model.Resolution{}
		if err := json.Unmarshal([]byte(resolutionJSON.String), d.Resolution); err != nil {
			return nil, eris.Wrap(err, "unmarshal resolution")
		}
	}
	return &d, nil
}

func (s *SQLiteStore) loadVotes(ctx context.Context, q interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}, d *model.Dispute) error {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id, vote FROM dispute_votes WHERE dispute_id = ?`, d.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: load votes %s", d.ID)
	}
	defer rows.Close()

	d.Votes.UserVotes = make(map[string]model.VoteValue)
	for rows.Next() {
		var userID string
		var vote model.VoteValue
		if err := rows.Scan(&userID, &vote); err != nil {
			return eris.Wrap(err, "sqlite: scan vote")
		}
		d.Votes.UserVotes[userID] = vote
	}
	return eris.Wrap(rows.Err(), "sqlite: load votes iterate")
}

func (s *SQLiteStore) GetDispute(ctx context.Context, id string) (*model.Dispute, error) {
	d, err := scanDisputeRow(s.db.QueryRowContext(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: dispute %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get dispute %s", id)
	}
	if err := s.loadVotes(ctx, s.db, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *SQLiteStore) ListDisputes(ctx context.Context, filter DisputeFilter) ([]model.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE 1=1`
	var args []any

	if filter.ProductID != "" {
		query += ` AND product_id = ?`
		args = append(args, filter.ProductID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list disputes")
	}
	defer rows.Close()

	var disputes []model.Dispute
	for rows.Next() {
		d, err := scanDisputeRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dispute")
		}
		disputes = append(disputes, *d)
	}
	return disputes, eris.Wrap(rows.Err(), "sqlite: list disputes iterate")
}

func (s *SQLiteStore) DisputeSummary(ctx context.Context, productID string) (model.DisputeSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM disputes WHERE product_id = ? GROUP BY status`,
		productID,
	)
	if err != nil {
		return model.DisputeSummary{}, eris.Wrapf(err, "sqlite: dispute summary %s", productID)
	}
	defer rows.Close()

	var summary model.DisputeSummary
	for rows.Next() {
		var status model.DisputeStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return model.DisputeSummary{}, eris.Wrap(err, "sqlite: scan summary row")
		}
		summary.Total += count
		switch status {
		case model.DisputeStatusOpen, model.DisputeStatusInReview:
			summary.Open += count
		case model.DisputeStatusResolved:
			summary.Resolved += count
		case model.DisputeStatusRejected:
			summary.Rejected += count
		}
	}
	return summary, eris.Wrap(rows.Err(), "sqlite: dispute summary iterate")
}

func (s *SQLiteStore) HasOpenDispute(ctx context.Context, productID, userID string, t model.DisputeType) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM disputes
		 WHERE product_id = ? AND created_by = ? AND dispute_type = ?
		   AND status IN ('open', 'in_review')`,
		productID, userID, string(t),
	).Scan(&count)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: has open dispute %s", productID)
	}
	return count > 0, nil
}

func (s *SQLiteStore) ApplyVote(ctx context.Context, disputeID, userID string, vote model.VoteValue) (*model.Dispute, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin apply vote")
	}
	defer tx.Rollback() //nolint:errcheck

	d, err := scanDisputeRow(tx.QueryRowContext(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE id = ?`, disputeID,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: dispute %s", disputeID)
		}
		return nil, eris.Wrapf(err, "sqlite: read dispute %s", disputeID)
	}

	tally := model.VoteTally{UserVotes: map[string]model.VoteValue{}}
	var prev model.VoteValue
	err = tx.QueryRowContext(ctx,
		`SELECT vote FROM dispute_votes WHERE dispute_id = ? AND user_id = ?`,
		disputeID, userID,
	).Scan(&prev)
	switch {
	case err == nil:
		tally.UserVotes[userID] = prev
	case err == sql.ErrNoRows:
		// First vote from this user.
	default:
		return nil, eris.Wrapf(err, "sqlite: read prior vote %s", disputeID)
	}

	delta := tally.Apply(userID, vote)

	if delta.NewVote == nil {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM dispute_votes WHERE dispute_id = ? AND user_id = ?`,
			disputeID, userID,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: delete vote %s", disputeID)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dispute_votes (dispute_id, user_id, vote, voted_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (dispute_id, user_id) DO UPDATE SET vote = excluded.vote, voted_at = excluded.voted_at`,
			disputeID, userID, string(*delta.NewVote), time.Now().UTC(),
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: upsert vote %s", disputeID)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE disputes SET upvotes = upvotes + ?, downvotes = downvotes + ? WHERE id = ?`,
		delta.UpDelta, delta.DownDelta, disputeID,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: update tally %s", disputeID)
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT upvotes, downvotes FROM disputes WHERE id = ?`, disputeID,
	).Scan(&d.Votes.Upvotes, &d.Votes.Downvotes); err != nil {
		return nil, eris.Wrapf(err, "sqlite: read tally %s", disputeID)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit apply vote")
	}

	if err := s.loadVotes(ctx, s.db, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *SQLiteStore) TransitionDispute(ctx context.Context, disputeID string, from []model.DisputeStatus, to model.DisputeStatus, pendingAt *time.Time, res *model.Resolution) (*model.Dispute, error) {
	var resolutionJSON any
	if res != nil {
		data, err := json.Marshal(res)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal resolution")
		}
		resolutionJSON = string(data)
	}

	var pending any
	if pendingAt != nil {
		pending = pendingAt.UTC()
	}

	query := `UPDATE disputes SET status = ?, resolution_pending_at = ?, resolution = ? WHERE id = ?`
	args := []any{string(to), pending, resolutionJSON, disputeID}
	if len(from) > 0 {
		query += ` AND status IN (?` + repeatPlaceholder(len(from)-1) + `)`
		for _, st := range from {
			args = append(args, string(st))
		}
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: transition dispute %s", disputeID)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		var count int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM disputes WHERE id = ?`, disputeID,
		).Scan(&count); err != nil {
			return nil, eris.Wrapf(err, "sqlite: check dispute %s", disputeID)
		}
		if count == 0 {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: dispute %s", disputeID)
		}
		return nil, eris.Wrapf(ErrConflict, "sqlite: dispute %s status changed", disputeID)
	}

	return s.GetDispute(ctx, disputeID)
}

func (s *SQLiteStore) ClaimProvisionalEdit(ctx context.Context, disputeID, productID, userID string, changes map[string]any, now time.Time, authorize AuthorizeFunc, res model.Resolution) (*model.Product, *model.Dispute, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: begin claim")
	}
	defer tx.Rollback() //nolint:errcheck

	d, err := scanDisputeRow(tx.QueryRowContext(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE id = ?`, disputeID,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, eris.Wrapf(ErrNotFound, "sqlite: dispute %s", disputeID)
		}
		return nil, nil, eris.Wrapf(err, "sqlite: read dispute %s", disputeID)
	}

	p, err := scanProductRow(tx.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, productID,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, eris.Wrapf(ErrNotFound, "sqlite: product %s", productID)
		}
		return nil, nil, eris.Wrapf(err, "sqlite: read product %s", productID)
	}

	if err := authorize(d, p); err != nil {
		return nil, nil, err
	}
	if err := p.ApplyFieldChanges(changes); err != nil {
		return nil, nil, err
	}
	p.LastModified = now.UTC()
	p.LastModifiedBy = userID

	if _, err := tx.ExecContext(ctx,
		`UPDATE products SET
		   name = ?, category = ?, description = ?,
		   length_mm = ?, width_mm = ?, height_mm = ?, weight_g = ?,
		   last_modified = ?, last_modified_by = ?
		 WHERE id = ?`,
		p.Name, p.Category, p.Description,
		p.Dimensions.LengthMM, p.Dimensions.WidthMM, p.Dimensions.HeightMM, p.Dimensions.WeightG,
		p.LastModified, p.LastModifiedBy, p.ID,
	); err != nil {
		return nil, nil, eris.Wrapf(err, "sqlite: apply edit %s", productID)
	}

	resolutionJSON, err := json.Marshal(res)
	if err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: marshal resolution")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE disputes SET status = ?, resolution_pending_at = NULL, resolution = ? WHERE id = ?`,
		string(model.DisputeStatusResolved), string(resolutionJSON), disputeID,
	); err != nil {
		return nil, nil, eris.Wrapf(err, "sqlite: resolve dispute %s", disputeID)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: commit claim")
	}

	d.Status = model.DisputeStatusResolved
	d.ResolutionPendingAt = nil
	d.Resolution = &res
	if err := s.loadVotes(ctx, s.db, d); err != nil {
		return nil, nil, err
	}
	return p, d, nil
}

func (s *SQLiteStore) Stats(ctx context.Context, votesSince time.Time) (*Stats, error) {
	stats := &Stats{DisputesByStatus: make(map[model.DisputeStatus]int)}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(confidence), 0) FROM products`,
	).Scan(&stats.ProductsTotal, &stats.AvgConfidence)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: product stats")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM disputes GROUP BY status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: dispute stats")
	}
	defer rows.Close()
	for rows.Next() {
		var status model.DisputeStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dispute stats")
		}
		stats.DisputesByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: dispute stats iterate")
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dispute_votes WHERE voted_at >= ?`, votesSince.UTC(),
	).Scan(&stats.VotesSince)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: vote stats")
	}

	return stats, nil
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: product %s", id)
	}
	return nil
}

// repeatPlaceholder returns ", ?" repeated n times.
func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
