package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS offers (
	id TEXT PRIMARY KEY,

	offer_title TEXT NOT NULL,
	offer_description TEXT NOT NULL,
	offer_salary TEXT NOT NULL,
	offer_contract TEXT NOT NULL,
	offer_email TEXT NOT NULL,

	processed BOOLEAN NOT NULL DEFAULT FALSE,
	processed_description TEXT,
	processed_tags TEXT,

	rejected BOOLEAN NOT NULL DEFAULT FALSE,
	rejected_reason TEXT,

	sent_email BOOLEAN NOT NULL DEFAULT FALSE,
	sent_failed_reason TEXT,

	email_to TEXT,
	email_subject TEXT,
	email_html TEXT,
	email_lang TEXT,

	created_at TIMESTAMPTZ NOT NULL
)`

const offerColumns = `id, offer_title, offer_description, offer_salary, offer_contract, offer_email,
	processed, processed_description, processed_tags,
	rejected, rejected_reason,
	sent_email, sent_failed_reason,
	email_to, email_subject, email_html, email_lang,
	created_at`

// Postgres implements Store on top of a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database, verifies the connection and ensures
// the offers table exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring offers table: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) InsertIfAbsent(ctx context.Context, offers []*Offer) ([]*Offer, error) {
	const query = `
		INSERT INTO offers (id, offer_title, offer_description, offer_salary, offer_contract, offer_email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	inserted := make([]*Offer, 0, len(offers))
	for _, offer := range offers {
		tag, err := p.pool.Exec(ctx, query,
			offer.ID,
			offer.Title,
			offer.Description,
			offer.Salary,
			offer.ContractType,
			offer.Email,
			offer.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert offer %s: %w", offer.ID, err)
		}
		if tag.RowsAffected() > 0 {
			inserted = append(inserted, offer)
		}
	}

	return inserted, nil
}

func (p *Postgres) Query(ctx context.Context, filter Filter) ([]*Offer, error) {
	conds := []string{
		"processed = TRUE",
		"rejected = FALSE",
		"rejected_reason IS NULL",
	}
	args := []any{}
	i := 1

	if filter.ID != "" {
		conds = append(conds, fmt.Sprintf("id = $%d", i))
		args = append(args, filter.ID)
		i++
	}
	if filter.Email != "" {
		conds = append(conds, fmt.Sprintf("email_to = $%d", i))
		args = append(args, filter.Email)
		i++
	}
	if filter.Sent != "" {
		conds = append(conds, fmt.Sprintf("sent_email = $%d", i))
		args = append(args, filter.SentValue())
		i++
	}
	if filter.Tag != "" {
		conds = append(conds, fmt.Sprintf("processed_tags LIKE $%d", i))
		args = append(args, "%"+filter.Tag+"%")
		i++
	}

	query := fmt.Sprintf(`SELECT %s FROM offers WHERE %s ORDER BY created_at DESC`,
		offerColumns, strings.Join(conds, " AND "))

	return p.queryOffers(ctx, query, args...)
}

func (p *Postgres) GetByID(ctx context.Context, id string) (*Offer, error) {
	query := fmt.Sprintf(`SELECT %s FROM offers WHERE id = $1`, offerColumns)

	offer, err := scanOffer(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get offer %s: %w", id, err)
	}

	return offer, nil
}

func (p *Postgres) Update(ctx context.Context, id string, update OfferUpdate) error {
	sets := []string{}
	args := []any{}
	i := 1

	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}

	if update.Processed != nil {
		set("processed", *update.Processed)
	}
	if update.ProcessedDescription != nil {
		set("processed_description", *update.ProcessedDescription)
	}
	if update.ProcessedTags != nil {
		set("processed_tags", *update.ProcessedTags)
	}
	if update.Rejected != nil {
		set("rejected", *update.Rejected)
	}
	if update.RejectedReason != nil {
		set("rejected_reason", *update.RejectedReason)
	} else if update.ClearRejectedReason {
		sets = append(sets, "rejected_reason = NULL")
	}
	if update.SentEmail != nil {
		set("sent_email", *update.SentEmail)
	}
	if update.SentFailedReason != nil {
		set("sent_failed_reason", *update.SentFailedReason)
	}
	if update.EmailTo != nil {
		set("email_to", *update.EmailTo)
	}
	if update.EmailSubject != nil {
		set("email_subject", *update.EmailSubject)
	}
	if update.EmailHTML != nil {
		set("email_html", *update.EmailHTML)
	}
	if update.EmailLang != nil {
		set("email_lang", *update.EmailLang)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE offers SET %s WHERE id = $%d`, strings.Join(sets, ", "), i)

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update offer %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *Postgres) Unprocessed(ctx context.Context) ([]*Offer, error) {
	query := fmt.Sprintf(`SELECT %s FROM offers WHERE processed = FALSE`, offerColumns)
	return p.queryOffers(ctx, query)
}

func (p *Postgres) queryOffers(ctx context.Context, query string, args ...any) ([]*Offer, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}
	defer rows.Close()

	offers := make([]*Offer, 0)
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers: %w", err)
	}

	return offers, nil
}

func scanOffer(row pgx.Row) (*Offer, error) {
	var o Offer
	err := row.Scan(
		&o.ID, &o.Title, &o.Description, &o.Salary, &o.ContractType, &o.Email,
		&o.Processed, &o.ProcessedDescription, &o.ProcessedTags,
		&o.Rejected, &o.RejectedReason,
		&o.SentEmail, &o.SentFailedReason,
		&o.EmailTo, &o.EmailSubject, &o.EmailHTML, &o.EmailLang,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
