// Package pipeline runs the ingestion and processing steps over the offer
// store.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/herbievine/42-job-listener/internal/ai"
	"github.com/herbievine/42-job-listener/internal/errs"
	"github.com/herbievine/42-job-listener/internal/fortytwo"
	"github.com/herbievine/42-job-listener/internal/store"

	"go.uber.org/zap"
)

// DefaultLimit is the number of offers fetched when the caller does not ask
// for more.
const DefaultLimit = 10

// OfferSource fetches raw offers from the recruiting API.
type OfferSource interface {
	FetchOffers(ctx context.Context, limit int) ([]*fortytwo.Offer, error)
}

type Pipeline struct {
	source      OfferSource
	store       store.Store
	composer    ai.Composer
	logger      *zap.Logger
	frontendURL string
}

func New(source OfferSource, st store.Store, composer ai.Composer, logger *zap.Logger, frontendURL string) *Pipeline {
	return &Pipeline{
		source:      source,
		store:       st,
		composer:    composer,
		logger:      logger,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Ingest fetches up to limit offers, normalizes them and inserts the ones not
// seen before. Known ids are skipped silently. Returns the number of rows
// inserted.
func (p *Pipeline) Ingest(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	raw, err := p.source.FetchOffers(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("fetching offers: %w", err)
	}

	offers := make([]*store.Offer, 0, len(raw))
	for _, r := range raw {
		offer, err := normalizeOffer(r)
		if err != nil {
			return 0, err
		}
		offers = append(offers, offer)
	}

	inserted, err := p.store.InsertIfAbsent(ctx, offers)
	if err != nil {
		return 0, fmt.Errorf("inserting offers: %w", err)
	}

	p.logger.Info("ingested offers",
		zap.Int("fetched", len(raw)),
		zap.Int("inserted", len(inserted)),
	)

	return len(inserted), nil
}

// normalizeOffer converts a raw source offer to its stored shape: the id is
// stringified and the creation timestamp normalized to UTC.
func normalizeOffer(r *fortytwo.Offer) (*store.Offer, error) {
	createdAt, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return nil, errs.New(errs.CodeValidation, fmt.Sprintf("offer %d has an invalid created_at", r.ID), err)
	}

	return &store.Offer{
		ID:           strconv.FormatInt(r.ID, 10),
		Title:        r.Title,
		Description:  r.BigDescription,
		Salary:       r.Salary,
		ContractType: r.ContractType,
		Email:        r.Email,
		CreatedAt:    createdAt.UTC(),
	}, nil
}

// ResultStatus classifies the outcome of processing one offer.
type ResultStatus string

const (
	StatusDrafted  ResultStatus = "drafted"
	StatusRejected ResultStatus = "rejected"
	StatusFailed   ResultStatus = "failed"
)

// Result is the per-offer outcome of a processing run.
type Result struct {
	OfferID string
	Status  ResultStatus
	Reason  string
	Err     error
}

// Report aggregates a processing run.
type Report struct {
	Drafted  int
	Rejected int
	Failed   int
	Results  []Result
}

func (r *Report) add(result Result) {
	switch result.Status {
	case StatusDrafted:
		r.Drafted++
	case StatusRejected:
		r.Rejected++
	case StatusFailed:
		r.Failed++
	}
	r.Results = append(r.Results, result)
}

// Err returns a summary error when any offer failed during the run. Failed
// offers stay unprocessed and are retried on the next run.
func (r *Report) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d offers failed processing", r.Failed, len(r.Results))
}

// Process walks every unprocessed offer sequentially: one generation call and
// one store update at a time, so a failure on one offer never touches the
// state persisted for the previous ones.
func (p *Pipeline) Process(ctx context.Context) (*Report, error) {
	offers, err := p.store.Unprocessed(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing unprocessed offers: %w", err)
	}

	p.logger.Info("starting processing", zap.Int("offers", len(offers)))

	report := &Report{}
	for i, offer := range offers {
		p.logger.Info("computing offer",
			zap.String("offer_id", offer.ID),
			zap.Int("current", i+1),
			zap.Int("total", len(offers)),
		)

		result := p.processOne(ctx, offer)
		if result.Err != nil {
			p.logger.Error("processing offer failed",
				zap.String("offer_id", offer.ID),
				zap.Error(result.Err),
			)
		}

		report.add(result)
	}

	p.logger.Info("processing finished",
		zap.Int("drafted", report.Drafted),
		zap.Int("rejected", report.Rejected),
		zap.Int("failed", report.Failed),
	)

	return report, nil
}

func (p *Pipeline) processOne(ctx context.Context, offer *store.Offer) Result {
	draft, err := p.composer.Compose(ctx, offer)
	if err != nil {
		return Result{OfferID: offer.ID, Status: StatusFailed, Err: err}
	}

	tags := strings.Join(filterTags(draft.Tags, Tags), ",")

	if draft.Rejected {
		update := store.OfferUpdate{
			Processed:            store.Bool(true),
			ProcessedDescription: store.String(draft.Description),
			ProcessedTags:        store.String(tags),
			Rejected:             store.Bool(true),
			RejectedReason:       store.String(draft.RejectedReason),
			SentEmail:            store.Bool(false),
		}
		if err := p.store.Update(ctx, offer.ID, update); err != nil {
			return Result{OfferID: offer.ID, Status: StatusFailed, Err: err}
		}

		p.logger.Warn("email rejected",
			zap.String("offer_id", offer.ID),
			zap.String("reason", draft.RejectedReason),
			zap.String("review_url", p.reviewURL(offer.ID)),
		)

		return Result{OfferID: offer.ID, Status: StatusRejected, Reason: draft.RejectedReason}
	}

	update := store.OfferUpdate{
		Processed:            store.Bool(true),
		ProcessedDescription: store.String(draft.Description),
		ProcessedTags:        store.String(tags),
		Rejected:             store.Bool(false),
		ClearRejectedReason:  true,
		SentEmail:            store.Bool(false),
		EmailTo:              store.String(draft.To),
		EmailSubject:         store.String(draft.Subject),
		EmailHTML:            store.String(wrapHTML(draft.Lang, draft.Subject, offer.ID, draft.HTML)),
		EmailLang:            store.String(draft.Lang),
	}
	if err := p.store.Update(ctx, offer.ID, update); err != nil {
		return Result{OfferID: offer.ID, Status: StatusFailed, Err: err}
	}

	p.logger.Info("email processed",
		zap.String("offer_id", offer.ID),
		zap.String("review_url", p.reviewURL(offer.ID)),
	)

	return Result{OfferID: offer.ID, Status: StatusDrafted}
}

func (p *Pipeline) reviewURL(id string) string {
	if p.frontendURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/?id=%s", p.frontendURL, id)
}
