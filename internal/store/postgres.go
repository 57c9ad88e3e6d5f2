package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/packdim/trust-cli/internal/db"
	"github.com/packdim/trust-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"get_product":     `SELECT id, name, category, description, length_mm, width_mm, height_mm, weight_g, created_by, created_at, last_modified, last_modified_by, likes, views, confidence FROM products WHERE id = $1`,
	"get_dispute":     `SELECT id, product_id, dispute_type, status, description, created_by, created_at, upvotes, downvotes, resolution_pending_at, resolution FROM disputes WHERE id = $1`,
	"get_user_vote":   `SELECT vote FROM dispute_votes WHERE dispute_id = $1 AND user_id = $2`,
	"set_confidence":  `UPDATE products SET confidence = $1, confidence_factors = $2 WHERE id = $3`,
	"increment_views": `UPDATE products SET views = views + 1 WHERE id = $1 RETURNING views`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., bulk seeding).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS products (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	category           TEXT NOT NULL DEFAULT '',
	description        TEXT NOT NULL DEFAULT '',
	length_mm          DOUBLE PRECISION NOT NULL DEFAULT 0,
	width_mm           DOUBLE PRECISION NOT NULL DEFAULT 0,
	height_mm          DOUBLE PRECISION NOT NULL DEFAULT 0,
	weight_g           DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_by         TEXT NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_modified      TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_modified_by   TEXT NOT NULL,
	likes              INTEGER NOT NULL DEFAULT 0,
	views              INTEGER NOT NULL DEFAULT 0,
	confidence         INTEGER NOT NULL DEFAULT 0,
	confidence_factors JSONB
);

CREATE TABLE IF NOT EXISTS product_likes (
	product_id TEXT NOT NULL REFERENCES products(id),
	user_id    TEXT NOT NULL,
	liked_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (product_id, user_id)
);

CREATE TABLE IF NOT EXISTS disputes (
	id                    TEXT PRIMARY KEY,
	product_id            TEXT NOT NULL REFERENCES products(id),
	dispute_type          TEXT NOT NULL,
	status                TEXT NOT NULL DEFAULT 'open',
	description           TEXT NOT NULL DEFAULT '',
	created_by            TEXT NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	upvotes               INTEGER NOT NULL DEFAULT 0,
	downvotes             INTEGER NOT NULL DEFAULT 0,
	resolution_pending_at TIMESTAMPTZ,
	resolution            JSONB
);

CREATE TABLE IF NOT EXISTS dispute_votes (
	dispute_id TEXT NOT NULL REFERENCES disputes(id),
	user_id    TEXT NOT NULL,
	vote       TEXT NOT NULL,
	voted_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (dispute_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_disputes_product_id ON disputes(product_id);
CREATE INDEX IF NOT EXISTS idx_disputes_status ON disputes(status);
CREATE INDEX IF NOT EXISTS idx_dispute_votes_voted_at ON dispute_votes(voted_at);
CREATE INDEX IF NOT EXISTS idx_product_likes_product_id ON product_likes(product_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, p *model.Product) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO products
		 (id, name, category, description, length_mm, width_mm, height_mm, weight_g,
		  created_by, created_at, last_modified, last_modified_by, likes, views, confidence)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.Name, p.Category, p.Description,
		p.Dimensions.LengthMM, p.Dimensions.WidthMM, p.Dimensions.HeightMM, p.Dimensions.WeightG,
		p.CreatedBy, p.CreatedAt, p.LastModified, p.LastModifiedBy,
		p.Likes, p.Views, p.Confidence,
	)
	return eris.Wrapf(err, "postgres: insert product %s", p.ID)
}

const productColumns = `id, name, category, description, length_mm, width_mm, height_mm, weight_g, created_by, created_at, last_modified, last_modified_by, likes, views, confidence`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Category, &p.Description,
		&p.Dimensions.LengthMM, &p.Dimensions.WidthMM, &p.Dimensions.HeightMM, &p.Dimensions.WeightG,
		&p.CreatedBy, &p.CreatedAt, &p.LastModified, &p.LastModifiedBy,
		&p.Likes, &p.Views, &p.Confidence,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: product %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get product %s", id)
	}
	return p, nil
}

func (s *PostgresStore) ListProductIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM products ORDER BY created_at`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list product ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan product id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: list product ids iterate")
}

func (s *PostgresStore) IncrementViews(ctx context.Context, id string) (int, error) {
	var views int
	err := s.pool.QueryRow(ctx,
		`UPDATE products SET views = views + 1 WHERE id = $1 RETURNING views`, id,
	).Scan(&views)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, eris.Wrapf(ErrNotFound, "postgres: product %s", id)
		}
		return 0, eris.Wrapf(err, "postgres: increment views %s", id)
	}
	return views, nil
}

// ToggleLike flips the user's membership in the liked-by set and keeps
// the counter in step, all in one transaction.
func (s *PostgresStore) ToggleLike(ctx context.Context, id, userID string) (bool, int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, 0, eris.Wrap(err, "postgres: begin toggle like")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`DELETE FROM product_likes WHERE product_id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return false, 0, eris.Wrapf(err, "postgres: unlike %s", id)
	}

	liked := tag.RowsAffected() == 0
	if liked {
		if _, err := tx.Exec(ctx,
			`INSERT INTO product_likes (product_id, user_id, liked_at) VALUES ($1, $2, now())`,
			id, userID,
		); err != nil {
			return false, 0, eris.Wrapf(err, "postgres: like %s", id)
		}
	}

	delta := 1
	if !liked {
		delta = -1
	}
	var likes int
	err = tx.QueryRow(ctx,
		`UPDATE products SET likes = GREATEST(likes + $1, 0) WHERE id = $2 RETURNING likes`,
		delta, id,
	).Scan(&likes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, eris.Wrapf(ErrNotFound, "postgres: product %s", id)
		}
		return false, 0, eris.Wrapf(err, "postgres: adjust likes %s", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, eris.Wrap(err, "postgres: commit toggle like")
	}
	return liked, likes, nil
}

func (s *PostgresStore) SetConfidence(ctx context.Context, id string, confidence int, factors []byte) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET confidence = $1, confidence_factors = $2 WHERE id = $3`,
		confidence, factors, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set confidence %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: product %s", id)
	}
	return nil
}

func (s *PostgresStore) CreateDispute(ctx context.Context, d *model.Dispute) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO disputes
		 (id, product_id, dispute_type, status, description, created_by, created_at, upvotes, downvotes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.ProductID, string(d.Type), string(d.Status), d.Description,
		d.CreatedBy, d.CreatedAt, d.Votes.Upvotes, d.Votes.Downvotes,
	)
	return eris.Wrapf(err, "postgres: insert dispute %s", d.ID)
}

const disputeColumns = `id, product_id, dispute_type, status, description, created_by, created_at, upvotes, downvotes, resolution_pending_at, resolution`

func scanDispute(row pgx.Row) (*model.Dispute, error) {
	var d model.Dispute
	var resolutionJSON []byte
	err := row.Scan(
		&d.ID, &d.ProductID, &d.Type, &d.Status, &d.Description,
		&d.CreatedBy, &d.CreatedAt,
		&d.Votes.Upvotes, &d.Votes.Downvotes,
		&d.ResolutionPendingAt, &resolutionJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(resolutionJSON) > 0 {
		d.Resolution = &model.Resolution{}
		if err := json.Unmarshal(resolutionJSON, d.Resolution); err != nil {
			return nil, eris.Wrap(err, "unmarshal resolution")
		}
	}
	return &d, nil
}

// loadVotes fills the per-user vote map for a dispute.
func (s *PostgresStore) loadVotes(ctx context.Context, d *model.Dispute) error {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, vote FROM dispute_votes WHERE dispute_id = $1`, d.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: load votes %s", d.ID)
	}
	defer rows.Close()

	d.Votes.UserVotes = make(map[string]model.VoteValue)
	for rows.Next() {
		var userID string
		var vote model.VoteValue
		if err := rows.Scan(&userID, &vote); err != nil {
			return eris.Wrap(err, "postgres: scan vote")
		}
		d.Votes.UserVotes[userID] = vote
	}
	return eris.Wrap(rows.Err(), "postgres: load votes iterate")
}

func (s *PostgresStore) GetDispute(ctx context.Context, id string) (*model.Dispute, error) {
	d, err := scanDispute(s.pool.QueryRow(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: dispute %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get dispute %s", id)
	}
	if err := s.loadVotes(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *PostgresStore) ListDisputes(ctx context.Context, filter DisputeFilter) ([]model.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE true`
	args := []any{}
	argIdx := 1

	if filter.ProductID != "" {
		query += fmt.Sprintf(` AND product_id = $%d`, argIdx)
		args = append(args, filter.ProductID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list disputes")
	}
	defer rows.Close()

	var disputes []model.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan dispute")
		}
		disputes = append(disputes, *d)
	}
	return disputes, eris.Wrap(rows.Err(), "postgres: list disputes iterate")
}

func (s *PostgresStore) DisputeSummary(ctx context.Context, productID string) (model.DisputeSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM disputes WHERE product_id = $1 GROUP BY status`,
		productID,
	)
	if err != nil {
		return model.DisputeSummary{}, eris.Wrapf(err, "postgres: dispute summary %s", productID)
	}
	defer rows.Close()

	var summary model.DisputeSummary
	for rows.Next() {
		var status model.DisputeStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return model.DisputeSummary{}, eris.Wrap(err, "postgres: scan summary row")
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
	return summary, eris.Wrap(rows.Err(), "postgres: dispute summary iterate")
}

func (s *PostgresStore) HasOpenDispute(ctx context.Context, productID, userID string, t model.DisputeType) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM disputes
		   WHERE product_id = $1 AND created_by = $2 AND dispute_type = $3
		     AND status IN ('open', 'in_review')
		 )`,
		productID, userID, string(t),
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: has open dispute %s", productID)
	}
	return exists, nil
}

// ApplyVote merges one user's vote delta under a row lock on the
// dispute. Only the per-user entry and the counter deltas are written,
// never the whole tally, so concurrent voters cannot clobber each other.
func (s *PostgresStore) ApplyVote(ctx context.Context, disputeID, userID string, vote model.VoteValue) (*model.Dispute, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin apply vote")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	d, err := scanDispute(tx.QueryRow(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, disputeID,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: dispute %s", disputeID)
		}
		return nil, eris.Wrapf(err, "postgres: lock dispute %s", disputeID)
	}

	tally := model.VoteTally{UserVotes: map[string]model.VoteValue{}}
	var prev model.VoteValue
	err = tx.QueryRow(ctx,
		`SELECT vote FROM dispute_votes WHERE dispute_id = $1 AND user_id = $2`,
		disputeID, userID,
	).Scan(&prev)
	switch {
	case err == nil:
		tally.UserVotes[userID] = prev
	case errors.Is(err, pgx.ErrNoRows):
		// First vote from this user.
	default:
		return nil, eris.Wrapf(err, "postgres: read prior vote %s", disputeID)
	}

	delta := tally.Apply(userID, vote)

	if delta.NewVote == nil {
		if _, err := tx.Exec(ctx,
			`DELETE FROM dispute_votes WHERE dispute_id = $1 AND user_id = $2`,
			disputeID, userID,
		); err != nil {
			return nil, eris.Wrapf(err, "postgres: delete vote %s", disputeID)
		}
	} else {
		if _, err := tx.Exec(ctx,
			`INSERT INTO dispute_votes (dispute_id, user_id, vote, voted_at)
			 VALUES ($1, $2, $3, now())
			 ON CONFLICT (dispute_id, user_id) DO UPDATE SET vote = $3, voted_at = now()`,
			disputeID, userID, string(*delta.NewVote),
		); err != nil {
			return nil, eris.Wrapf(err, "postgres: upsert vote %s", disputeID)
		}
	}

	err = tx.QueryRow(ctx,
		`UPDATE disputes SET upvotes = upvotes + $1, downvotes = downvotes + $2
		 WHERE id = $3 RETURNING upvotes, downvotes`,
		delta.UpDelta, delta.DownDelta, disputeID,
	).Scan(&d.Votes.Upvotes, &d.Votes.Downvotes)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update tally %s", disputeID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit apply vote")
	}

	if err := s.loadVotes(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *PostgresStore) TransitionDispute(ctx context.Context, disputeID string, from []model.DisputeStatus, to model.DisputeStatus, pendingAt *time.Time, res *model.Resolution) (*model.Dispute, error) {
	var resolutionJSON []byte
	if res != nil {
		var err error
		resolutionJSON, err = json.Marshal(res)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal resolution")
		}
	}

	query := `UPDATE disputes SET status = $1, resolution_pending_at = $2, resolution = $3 WHERE id = $4`
	args := []any{string(to), pendingAt, resolutionJSON, disputeID}
	if len(from) > 0 {
		statuses := make([]string, len(from))
		for i, st := range from {
			statuses[i] = string(st)
		}
		query += ` AND status = ANY($5)`
		args = append(args, statuses)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: transition dispute %s", disputeID)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing dispute from a lost conditional write.
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM disputes WHERE id = $1)`, disputeID,
		).Scan(&exists); err != nil {
			return nil, eris.Wrapf(err, "postgres: check dispute %s", disputeID)
		}
		if !exists {
			return nil, eris.Wrapf(ErrNotFound, "postgres: dispute %s", disputeID)
		}
		return nil, eris.Wrapf(ErrConflict, "postgres: dispute %s status changed", disputeID)
	}

	return s.GetDispute(ctx, disputeID)
}

func (s *PostgresStore) ClaimProvisionalEdit(ctx context.Context, disputeID, productID, userID string, changes map[string]any, now time.Time, authorize AuthorizeFunc, res model.Resolution) (*model.Product, *model.Dispute, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: begin claim")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	d, err := scanDispute(tx.QueryRow(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, disputeID,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, eris.Wrapf(ErrNotFound, "postgres: dispute %s", disputeID)
		}
		return nil, nil, eris.Wrapf(err, "postgres: lock dispute %s", disputeID)
	}

	p, err := scanProduct(tx.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, productID,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, eris.Wrapf(ErrNotFound, "postgres: product %s", productID)
		}
		return nil, nil, eris.Wrapf(err, "postgres: lock product %s", productID)
	}

	if err := authorize(d, p); err != nil {
		return nil, nil, err
	}
	if err := p.ApplyFieldChanges(changes); err != nil {
		return nil, nil, err
	}
	p.LastModified = now
	p.LastModifiedBy = userID

	_, err = tx.Exec(ctx,
		`UPDATE products SET
		   name = $1, category = $2, description = $3,
		   length_mm = $4, width_mm = $5, height_mm = $6, weight_g = $7,
		   last_modified = $8, last_modified_by = $9
		 WHERE id = $10`,
		p.Name, p.Category, p.Description,
		p.Dimensions.LengthMM, p.Dimensions.WidthMM, p.Dimensions.HeightMM, p.Dimensions.WeightG,
		p.LastModified, p.LastModifiedBy, p.ID,
	)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: apply edit %s", productID)
	}

	resolutionJSON, err := json.Marshal(res)
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: marshal resolution")
	}
	_, err = tx.Exec(ctx,
		`UPDATE disputes SET status = $1, resolution_pending_at = NULL, resolution = $2 WHERE id = $3`,
		string(model.DisputeStatusResolved), resolutionJSON, disputeID,
	)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: resolve dispute %s", disputeID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, eris.Wrap(err, "postgres: commit claim")
	}

	d.Status = model.DisputeStatusResolved
	d.ResolutionPendingAt = nil
	d.Resolution = &res
	if err := s.loadVotes(ctx, d); err != nil {
		return nil, nil, err
	}
	return p, d, nil
}

func (s *PostgresStore) Stats(ctx context.Context, votesSince time.Time) (*Stats, error) {
	stats := &Stats{DisputesByStatus: make(map[model.DisputeStatus]int)}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(confidence), 0) FROM products`,
	).Scan(&stats.ProductsTotal, &stats.AvgConfidence)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: product stats")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM disputes GROUP BY status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: dispute stats")
	}
	defer rows.Close()
	for rows.Next() {
		var status model.DisputeStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dispute stats")
		}
		stats.DisputesByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: dispute stats iterate")
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM dispute_votes WHERE voted_at >= $1`, votesSince,
	).Scan(&stats.VotesSince)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: vote stats")
	}

	return stats, nil
}
