package ai

import (
	"context"

	"github.com/herbievine/42-job-listener/internal/store"
)

// Draft is the structured decision returned by the generation capability for
// a single offer: either a rejection with a reason, or a ready-to-send email.
type Draft struct {
	Description string
	Tags        []string

	Rejected       bool
	RejectedReason string

	To      string
	Subject string
	HTML    string
	Lang    string

	Raw string
}

type Composer interface {
	Compose(ctx context.Context, offer *store.Offer) (*Draft, error)
}
