package store

import (
	"context"
	"strconv"

	"github.com/herbievine/42-job-listener/internal/errs"
)

// ErrNotFound is returned when an update or lookup targets an unknown offer id.
var ErrNotFound = errs.Newf(errs.CodeNotFound, "offer not found")

// Filter narrows the review query. Empty fields mean "no constraint", not
// "match empty". The fixed conjunction processed AND NOT rejected AND
// rejected_reason IS NULL is always applied on top.
type Filter struct {
	// ID matches the offer id exactly.
	ID string
	// Email matches the email recipient exactly.
	Email string
	// Sent is a boolean-like string ("true"/"false") matched against the
	// sent flag.
	Sent string
	// Tag is substring-matched against the comma-joined processed tags.
	Tag string
}

// SentValue parses the boolean-like Sent field. Anything unparseable counts
// as false, mirroring a "sent=true" query toggle.
func (f Filter) SentValue() bool {
	v, err := strconv.ParseBool(f.Sent)
	return err == nil && v
}

// OfferUpdate is a partial update. Nil pointers leave the column untouched.
type OfferUpdate struct {
	Processed            *bool
	ProcessedDescription *string
	ProcessedTags        *string

	Rejected       *bool
	RejectedReason *string
	// ClearRejectedReason explicitly nulls the rejection reason, which a nil
	// RejectedReason pointer cannot express.
	ClearRejectedReason bool

	SentEmail        *bool
	SentFailedReason *string

	EmailTo      *string
	EmailSubject *string
	EmailHTML    *string
	EmailLang    *string
}

// Store is the durable offer table. All mutating operations are durable
// before returning.
type Store interface {
	// InsertIfAbsent inserts offers whose id is not yet present and returns
	// the ones actually inserted. Conflicting ids are silently skipped.
	InsertIfAbsent(ctx context.Context, offers []*Offer) ([]*Offer, error)

	// Query returns processed, non-rejected offers matching the filter,
	// most recent first.
	Query(ctx context.Context, filter Filter) ([]*Offer, error)

	// GetByID returns the offer or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Offer, error)

	// Update applies a partial update to the offer with the given id.
	// Returns ErrNotFound when no row matches.
	Update(ctx context.Context, id string, update OfferUpdate) error

	// Unprocessed returns all offers awaiting processing. No ordering is
	// guaranteed.
	Unprocessed(ctx context.Context) ([]*Offer, error)
}

// Bool returns a pointer to v for use in OfferUpdate fields.
func Bool(v bool) *bool { return &v }

// String returns a pointer to v for use in OfferUpdate fields.
func String(v string) *string { return &v }
