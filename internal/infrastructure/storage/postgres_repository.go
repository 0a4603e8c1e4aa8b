// Package storage persists sources, scanned content, candidate runs and
// generation artifacts in Postgres.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ContentCurator/internal/domain"
	"ContentCurator/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository implements every store port on a single sql.DB.
type PostgresRepository struct {
	db *sql.DB
}

var (
	_ ports.SourceStore   = (*PostgresRepository)(nil)
	_ ports.ContentStore  = (*PostgresRepository)(nil)
	_ ports.CurationStore = (*PostgresRepository)(nil)
	_ ports.FailureStore  = (*PostgresRepository)(nil)
	_ ports.PostStore     = (*PostgresRepository)(nil)
	_ ports.HistoryStore  = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertSource inserts the source or refreshes its attributes, keyed by URL.
func (r *PostgresRepository) UpsertSource(ctx context.Context, src domain.Source) error {
	query, args, err := psql.Insert("sources").
		Columns("name", "url", "source_type", "category", "priority").
		Values(src.Name, src.URL, src.Type, src.Category, src.Priority).
		Suffix(`ON CONFLICT (url) DO UPDATE SET
			name = EXCLUDED.name,
			source_type = EXCLUDED.source_type,
			category = EXCLUDED.category,
			priority = EXCLUDED.priority`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert source: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert source: %w", err)
	}
	return nil
}

// ActiveSources lists active sources, optionally filtered by type, highest
// priority first.
func (r *PostgresRepository) ActiveSources(ctx context.Context, sourceType string) ([]domain.Source, error) {
	builder := psql.Select("id", "name", "url", "source_type", "category", "priority", "active", "last_scanned").
		From("sources").
		Where(sq.Eq{"active": true}).
		OrderBy("priority DESC", "id")
	if sourceType != "" {
		builder = builder.Where(sq.Eq{"source_type": sourceType})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active sources: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var src domain.Source
		var lastScanned sql.NullTime
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &src.Type, &src.Category, &src.Priority, &src.Active, &lastScanned); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if lastScanned.Valid {
			t := lastScanned.Time
			src.LastScannedAt = &t
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return sources, nil
}

// MarkSourceScanned stamps the source's last successful scan time.
func (r *PostgresRepository) MarkSourceScanned(ctx context.Context, sourceID int64, at time.Time) error {
	query, args, err := psql.Update("sources").
		Set("last_scanned", at).
		Where(sq.Eq{"id": sourceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark scanned: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark source scanned: %w", err)
	}
	return nil
}

// InsertContent stores the item and returns its id, or 0 when the URL is
// already known.
func (r *PostgresRepository) InsertContent(ctx context.Context, item domain.ScannedItem) (int64, error) {
	query, args, err := psql.Insert("scanned_content").
		Columns("source_id", "url", "title", "content", "author", "published_at").
		Values(item.SourceID, item.URL, item.Title, item.Content, item.Author, item.PublishedAt).
		Suffix("ON CONFLICT (url) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert content: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("insert content: %w", err)
	}
	return id, nil
}

// EligiblePool returns items scanned at or after since, excluding anything
// that already produced a post or sits on the permanent denylist.
func (r *PostgresRepository) EligiblePool(ctx context.Context, since time.Time) ([]domain.PoolItem, error) {
	query, args, err := psql.Select(
		"sc.id", "sc.source_id", "sc.url", "sc.title", "sc.content", "sc.author",
		"sc.published_at", "sc.scanned_at", "sc.selected",
		"s.name", "s.source_type", "s.category", "s.priority",
	).
		From("scanned_content sc").
		Join("sources s ON s.id = sc.source_id").
		Where(sq.GtOrEq{"sc.scanned_at": since}).
		Where("NOT EXISTS (SELECT 1 FROM generated_posts gp WHERE gp.content_id = sc.id)").
		Where("NOT EXISTS (SELECT 1 FROM candidate_rejections cr WHERE cr.content_id = sc.id)").
		OrderBy("sc.scanned_at DESC", "sc.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build eligible pool: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query eligible pool: %w", err)
	}
	defer rows.Close()

	var items []domain.PoolItem
	for rows.Next() {
		var item domain.PoolItem
		if err := rows.Scan(
			&item.ID, &item.SourceID, &item.URL, &item.Title, &item.Content, &item.Author,
			&item.PublishedAt, &item.ScannedAt, &item.Selected,
			&item.SourceName, &item.SourceType, &item.Category, &item.Priority,
		); err != nil {
			return nil, fmt.Errorf("scan pool item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}

// ReplaceRun swaps the candidate table for the new set and replaces the
// rejected snapshot for runDate, all in one transaction.
func (r *PostgresRepository) ReplaceRun(ctx context.Context, runDate string, candidates []domain.RankedCandidate, rejected []domain.RejectedArticle) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM ranked_candidates"); err != nil {
		return fmt.Errorf("clear candidates: %w", err)
	}

	if len(candidates) > 0 {
		builder := psql.Insert("ranked_candidates").
			Columns("run_date", "content_id", "title", "url", "source_name", "category",
				"total_score", "recency_score", "substance_score", "authority_score", "engagement_score",
				"status")
		for _, c := range candidates {
			builder = builder.Values(runDate, c.ContentID, c.Title, c.URL, c.SourceName, c.Category,
				c.TotalScore, c.Breakdown.Recency, c.Breakdown.Substance, c.Breakdown.Authority, c.Breakdown.Engagement,
				string(c.Status))
		}
		query, args, err := builder.ToSql()
		if err != nil {
			return fmt.Errorf("build insert candidates: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert candidates: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM rejected_articles WHERE run_date = $1", runDate); err != nil {
		return fmt.Errorf("clear rejected snapshot: %w", err)
	}

	if len(rejected) > 0 {
		builder := psql.Insert("rejected_articles").
			Columns("run_date", "content_id", "title", "url", "source_name",
				"total_score", "recency_score", "substance_score", "authority_score", "engagement_score",
				"reason")
		for _, a := range rejected {
			builder = builder.Values(runDate, a.ContentID, a.Title, a.URL, a.SourceName,
				a.TotalScore, a.Breakdown.Recency, a.Breakdown.Substance, a.Breakdown.Authority, a.Breakdown.Engagement,
				a.Reason)
		}
		query, args, err := builder.ToSql()
		if err != nil {
			return fmt.Errorf("build insert rejected: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert rejected: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace run: %w", err)
	}
	return nil
}

const candidateColumns = "id, run_date, content_id, title, url, source_name, category, " +
	"total_score, recency_score, substance_score, authority_score, engagement_score, " +
	"status, generated_post_id, error_message"

func scanCandidate(row interface{ Scan(...any) error }) (domain.RankedCandidate, error) {
	var c domain.RankedCandidate
	var status string
	var postID sql.NullInt64
	err := row.Scan(
		&c.ID, &c.RunDate, &c.ContentID, &c.Title, &c.URL, &c.SourceName, &c.Category,
		&c.TotalScore, &c.Breakdown.Recency, &c.Breakdown.Substance, &c.Breakdown.Authority, &c.Breakdown.Engagement,
		&status, &postID, &c.ErrorMessage,
	)
	if err != nil {
		return domain.RankedCandidate{}, err
	}
	c.Status = domain.CandidateStatus(status)
	if postID.Valid {
		id := postID.Int64
		c.GeneratedPostID = &id
	}
	return c, nil
}

// RankedCandidates lists the current run's candidates, highest score first.
// Rows stuck in generating are reset to candidate before the read so an
// interrupted generation never wedges the pool.
func (r *PostgresRepository) RankedCandidates(ctx context.Context) ([]domain.RankedCandidate, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin candidates read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE ranked_candidates SET status = 'candidate' WHERE status = 'generating'"); err != nil {
		return nil, fmt.Errorf("reset stale generating: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT "+candidateColumns+" FROM ranked_candidates ORDER BY total_score DESC, id")
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.RankedCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit candidates read: %w", err)
	}
	return candidates, nil
}

// Candidate loads one candidate joined with the content needed to generate
// a post for it.
func (r *PostgresRepository) Candidate(ctx context.Context, id int64) (domain.CandidateDetail, error) {
	query, args, err := psql.Select(
		"rc.id", "rc.run_date", "rc.content_id", "rc.title", "rc.url", "rc.source_name", "rc.category",
		"rc.total_score", "rc.recency_score", "rc.substance_score", "rc.authority_score", "rc.engagement_score",
		"rc.status", "rc.generated_post_id", "rc.error_message",
		"sc.content", "sc.author", "s.source_type",
	).
		From("ranked_candidates rc").
		Join("scanned_content sc ON sc.id = rc.content_id").
		Join("sources s ON s.id = sc.source_id").
		Where(sq.Eq{"rc.id": id}).
		ToSql()
	if err != nil {
		return domain.CandidateDetail{}, fmt.Errorf("build candidate query: %w", err)
	}

	var detail domain.CandidateDetail
	var status string
	var postID sql.NullInt64
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&detail.ID, &detail.RunDate, &detail.ContentID, &detail.Title, &detail.URL, &detail.SourceName, &detail.Category,
		&detail.TotalScore, &detail.Breakdown.Recency, &detail.Breakdown.Substance, &detail.Breakdown.Authority, &detail.Breakdown.Engagement,
		&status, &postID, &detail.ErrorMessage,
		&detail.Content, &detail.Author, &detail.SourceType,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CandidateDetail{}, fmt.Errorf("candidate %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.CandidateDetail{}, fmt.Errorf("query candidate: %w", err)
	}
	detail.Status = domain.CandidateStatus(status)
	if postID.Valid {
		pid := postID.Int64
		detail.GeneratedPostID = &pid
	}
	return detail, nil
}

func (r *PostgresRepository) updateCandidate(ctx context.Context, id int64, builder sq.UpdateBuilder) error {
	query, args, err := builder.Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build candidate update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update candidate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("candidate %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) MarkGenerating(ctx context.Context, id int64) error {
	return r.updateCandidate(ctx, id, psql.Update("ranked_candidates").
		Set("status", string(domain.StatusGenerating)).
		Set("error_message", ""))
}

func (r *PostgresRepository) MarkGenerated(ctx context.Context, id int64, postID int64) error {
	return r.updateCandidate(ctx, id, psql.Update("ranked_candidates").
		Set("status", string(domain.StatusGenerated)).
		Set("generated_post_id", postID))
}

func (r *PostgresRepository) MarkGenerationFailed(ctx context.Context, id int64, message string) error {
	return r.updateCandidate(ctx, id, psql.Update("ranked_candidates").
		Set("status", string(domain.StatusError)).
		Set("error_message", message))
}

func (r *PostgresRepository) MarkCandidateRejected(ctx context.Context, id int64) error {
	return r.updateCandidate(ctx, id, psql.Update("ranked_candidates").
		Set("status", string(domain.StatusRejected)))
}

// InsertCandidateRejection adds the content id to the permanent denylist;
// re-adding an existing id is a no-op.
func (r *PostgresRepository) InsertCandidateRejection(ctx context.Context, contentID int64) error {
	query, args, err := psql.Insert("candidate_rejections").
		Columns("content_id").
		Values(contentID).
		Suffix("ON CONFLICT (content_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert rejection: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert rejection: %w", err)
	}
	return nil
}

// InsertFailure appends one scan-failure row.
func (r *PostgresRepository) InsertFailure(ctx context.Context, failure domain.SourceFailure) error {
	query, args, err := psql.Insert("source_failures").
		Columns("source_id", "source_name", "failure_type", "error_message", "consecutive_zero").
		Values(failure.SourceID, failure.SourceName, string(failure.Type), failure.ErrorMessage, failure.ConsecutiveZero).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert failure: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert failure: %w", err)
	}
	return nil
}

// LastZeroResultCount returns the consecutive count from the source's most
// recent zero_results row, or 0 when there is none.
func (r *PostgresRepository) LastZeroResultCount(ctx context.Context, sourceID int64) (int, error) {
	query, args, err := psql.Select("consecutive_zero").
		From("source_failures").
		Where(sq.Eq{"source_id": sourceID, "failure_type": string(domain.FailureZeroResults)}).
		OrderBy("recorded_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build last zero count: %w", err)
	}

	var count int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query last zero count: %w", err)
	}
	return count, nil
}

// InsertPost stores a generated draft and returns its id.
func (r *PostgresRepository) InsertPost(ctx context.Context, post domain.GeneratedPost) (int64, error) {
	status := post.Status
	if status == "" {
		status = domain.PostDraft
	}

	query, args, err := psql.Insert("generated_posts").
		Columns("content_id", "source_summary", "commentary", "full_post", "status").
		Values(post.ContentID, post.SourceSummary, post.Commentary, post.FullPost, string(status)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert post: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	return id, nil
}

// PostsByStatus lists posts in a lifecycle state, newest first.
func (r *PostgresRepository) PostsByStatus(ctx context.Context, status domain.PostStatus, limit int) ([]domain.GeneratedPost, error) {
	query, args, err := psql.Select("id", "content_id", "source_summary", "commentary", "full_post",
		"status", "generated_at", "approved_at", "posted_at").
		From("generated_posts").
		Where(sq.Eq{"status": string(status)}).
		OrderBy("generated_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build posts query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.GeneratedPost
	for rows.Next() {
		var post domain.GeneratedPost
		var postStatus string
		var approvedAt, postedAt sql.NullTime
		if err := rows.Scan(&post.ID, &post.ContentID, &post.SourceSummary, &post.Commentary, &post.FullPost,
			&postStatus, &post.GeneratedAt, &approvedAt, &postedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		post.Status = domain.PostStatus(postStatus)
		if approvedAt.Valid {
			t := approvedAt.Time
			post.ApprovedAt = &t
		}
		if postedAt.Valid {
			t := postedAt.Time
			post.PostedAt = &t
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return posts, nil
}

// UpdatePostStatus moves a post through the review workflow. Approval and
// posting additionally stamp their timestamps.
func (r *PostgresRepository) UpdatePostStatus(ctx context.Context, id int64, status domain.PostStatus) error {
	builder := psql.Update("generated_posts").
		Set("status", string(status))
	switch status {
	case domain.PostApproved:
		builder = builder.Set("approved_at", time.Now())
	case domain.PostPosted:
		builder = builder.Set("posted_at", time.Now())
	}

	query, args, err := builder.Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build post status update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update post status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// RejectedArticles lists the latest run's rejected snapshot, highest score
// first.
func (r *PostgresRepository) RejectedArticles(ctx context.Context, limit int) ([]domain.RejectedArticle, error) {
	query, args, err := psql.Select("run_date", "content_id", "title", "url", "source_name",
		"total_score", "recency_score", "substance_score", "authority_score", "engagement_score", "reason").
		From("rejected_articles").
		OrderBy("total_score DESC", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build rejected query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rejected: %w", err)
	}
	defer rows.Close()

	var articles []domain.RejectedArticle
	for rows.Next() {
		var a domain.RejectedArticle
		if err := rows.Scan(&a.RunDate, &a.ContentID, &a.Title, &a.URL, &a.SourceName,
			&a.TotalScore, &a.Breakdown.Recency, &a.Breakdown.Substance, &a.Breakdown.Authority, &a.Breakdown.Engagement,
			&a.Reason); err != nil {
			return nil, fmt.Errorf("scan rejected: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return articles, nil
}

// RejectedCandidates lists candidates a human explicitly rejected.
func (r *PostgresRepository) RejectedCandidates(ctx context.Context, limit int) ([]domain.RankedCandidate, error) {
	query, args, err := psql.Select(candidateColumns).
		From("ranked_candidates").
		Where(sq.Eq{"status": string(domain.StatusRejected)}).
		OrderBy("total_score DESC", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build rejected candidates: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rejected candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.RankedCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return candidates, nil
}

// RecentFailures lists the newest scan failures across all sources.
func (r *PostgresRepository) RecentFailures(ctx context.Context, limit int) ([]domain.SourceFailure, error) {
	query, args, err := psql.Select("id", "source_id", "source_name", "failure_type", "error_message",
		"consecutive_zero", "recorded_at").
		From("source_failures").
		OrderBy("recorded_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build failures query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var failures []domain.SourceFailure
	for rows.Next() {
		var f domain.SourceFailure
		var failureType string
		if err := rows.Scan(&f.ID, &f.SourceID, &f.SourceName, &failureType, &f.ErrorMessage,
			&f.ConsecutiveZero, &f.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.Type = domain.FailureType(failureType)
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return failures, nil
}
