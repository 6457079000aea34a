package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relinkhq/relink/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotFound     = errors.New("link not found")
	ErrCodeConflict = errors.New("code already exists")
)

const linkColumns = "id, code, url, clicks, created_at, last_clicked"

// LinkRepository handles database operations for links.
// Every operation is bounded by queryTimeout. A deadline hit on a write is
// indeterminate (the row may have been committed), so callers must never
// treat a timeout as proof the code is free.
type LinkRepository struct {
	db           *pgxpool.Pool
	queryTimeout time.Duration
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(db *pgxpool.Pool, queryTimeout time.Duration) *LinkRepository {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &LinkRepository{db: db, queryTimeout: queryTimeout}
}

// Create inserts a new link record into the database.
// Uniqueness is enforced by the store's constraint alone: there is no prior
// existence check, so two concurrent creates for the same code race on the
// INSERT and exactly one wins. The loser gets ErrCodeConflict.
func (r *LinkRepository) Create(ctx context.Context, link *model.Link) error {
	ctx, span := tracer.Start(ctx, "db.insert",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "INSERT"),
			attribute.String("db.sql.table", "links"),
			attribute.String("code", link.Code),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `
		INSERT INTO links (code, url)
		VALUES ($1, $2)
		RETURNING id, clicks, created_at
	`
	err := r.db.QueryRow(ctx, query, link.Code, link.URL).
		Scan(&link.ID, &link.Clicks, &link.CreatedAt)

	if err != nil {
		span.RecordError(err)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrCodeConflict
		}
		return fmt.Errorf("insert link: %w", err)
	}

	return nil
}

// GetByCode retrieves a link by its short code. Pure lookup, no mutation.
func (r *LinkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	ctx, span := tracer.Start(ctx, "db.select",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "SELECT"),
			attribute.String("db.sql.table", "links"),
			attribute.String("code", code),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `SELECT ` + linkColumns + ` FROM links WHERE code = $1`
	link, err := scanLink(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("select link: %w", err)
	}
	return link, nil
}

// Touch atomically increments the click counter and stamps last_clicked,
// returning the post-increment record. The single UPDATE statement is the
// linearization point: concurrent calls on the same code serialize on the
// row and no increment is ever lost.
func (r *LinkRepository) Touch(ctx context.Context, code string) (*model.Link, error) {
	ctx, span := tracer.Start(ctx, "db.update",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "UPDATE"),
			attribute.String("db.sql.table", "links"),
			attribute.String("code", code),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `
		UPDATE links
		SET clicks = clicks + 1, last_clicked = NOW()
		WHERE code = $1
		RETURNING ` + linkColumns
	link, err := scanLink(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("touch link: %w", err)
	}
	return link, nil
}

// Delete removes a link by its short code and returns the removed record.
// DELETE ... RETURNING is atomic, so a concurrent read observes either the
// full record or ErrNotFound, never a partial state.
func (r *LinkRepository) Delete(ctx context.Context, code string) (*model.Link, error) {
	ctx, span := tracer.Start(ctx, "db.delete",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "DELETE"),
			attribute.String("db.sql.table", "links"),
			attribute.String("code", code),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `DELETE FROM links WHERE code = $1 RETURNING ` + linkColumns
	link, err := scanLink(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("delete link: %w", err)
	}
	return link, nil
}

// List returns all links ordered by creation time, most recent first.
// The id column breaks ties between rows created in the same instant,
// preserving insertion order.
func (r *LinkRepository) List(ctx context.Context) ([]*model.Link, error) {
	ctx, span := tracer.Start(ctx, "db.select",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "SELECT"),
			attribute.String("db.sql.table", "links"),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `SELECT ` + linkColumns + ` FROM links ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []*model.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("list links: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

func scanLink(row pgx.Row) (*model.Link, error) {
	var link model.Link
	err := row.Scan(
		&link.ID,
		&link.Code,
		&link.URL,
		&link.Clicks,
		&link.CreatedAt,
		&link.LastClicked,
	)
	if err != nil {
		return nil, err
	}
	return &link, nil
}
