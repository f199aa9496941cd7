// Package review contains the business logic behind the review UI: listing
// processed offers and sending or marking their emails. It has no dependency
// on net/http.
package review

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/herbievine/42-job-listener/internal/errs"
	"github.com/herbievine/42-job-listener/internal/mailer"
	"github.com/herbievine/42-job-listener/internal/store"

	"go.uber.org/zap"
)

// Identity is the fixed sender identity and attachment used for every
// outgoing email.
type Identity struct {
	From       string
	BCC        string
	Attachment mailer.Attachment
}

// Result is the structured payload returned to the HTTP layer. Action
// failures are reported here, never as transport errors.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type Service struct {
	store    store.Store
	sender   mailer.Sender
	identity Identity
	logger   *zap.Logger
}

func NewService(st store.Store, sender mailer.Sender, identity Identity, logger *zap.Logger) *Service {
	return &Service{
		store:    st,
		sender:   sender,
		identity: identity,
		logger:   logger,
	}
}

// List returns processed, non-rejected offers matching the filter, most
// recent first. It always reflects the current store state.
func (s *Service) List(ctx context.Context, filter store.Filter) ([]*store.Offer, error) {
	return s.store.Query(ctx, filter)
}

// Send delivers the drafted email for the offer. Preconditions are validated
// before any provider call; a provider failure is persisted as the offer's
// send-failure reason and the offer stays unsent.
func (s *Service) Send(ctx context.Context, id string) Result {
	offer, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{OK: false, Message: fmt.Sprintf("Offer %s not found", id)}
		}
		s.logger.Error("loading offer for send", zap.String("offer_id", id), zap.Error(err))
		return Result{OK: false, Message: "internal error"}
	}

	if err := validateSendable(offer); err != nil {
		return Result{OK: false, Message: err.Error()}
	}

	email := &mailer.Email{
		From:    s.identity.From,
		To:      *offer.EmailTo,
		BCC:     s.identity.BCC,
		Subject: *offer.EmailSubject,
		HTML:    *offer.EmailHTML,
	}
	if s.identity.Attachment.Path != "" {
		email.Attachments = []mailer.Attachment{s.identity.Attachment}
	}

	if err := s.sender.Send(ctx, email); err != nil {
		reason := providerReason(err)

		s.logger.Error("error sending email",
			zap.String("offer_id", offer.ID),
			zap.String("reason", reason),
		)

		update := store.OfferUpdate{SentFailedReason: store.String(reason)}
		if storeErr := s.store.Update(ctx, offer.ID, update); storeErr != nil {
			s.logger.Error("persisting send failure", zap.String("offer_id", offer.ID), zap.Error(storeErr))
		}

		return Result{OK: false, Message: fmt.Sprintf("Error sending email: %s", reason)}
	}

	update := store.OfferUpdate{
		Rejected:  store.Bool(false),
		SentEmail: store.Bool(true),
	}
	if err := s.store.Update(ctx, offer.ID, update); err != nil {
		s.logger.Error("persisting sent state", zap.String("offer_id", offer.ID), zap.Error(err))
		return Result{OK: false, Message: "email sent but state update failed"}
	}

	s.logger.Info("email sent", zap.String("offer_id", offer.ID), zap.String("to", email.To))

	return Result{OK: true}
}

// Mark records the email as sent without calling the provider, for emails the
// operator sent manually.
func (s *Service) Mark(ctx context.Context, id string) Result {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{OK: false, Message: fmt.Sprintf("Offer %s not found", id)}
		}
		s.logger.Error("loading offer for mark", zap.String("offer_id", id), zap.Error(err))
		return Result{OK: false, Message: "internal error"}
	}

	update := store.OfferUpdate{
		Rejected:  store.Bool(false),
		SentEmail: store.Bool(true),
	}
	if err := s.store.Update(ctx, id, update); err != nil {
		s.logger.Error("marking offer as sent", zap.String("offer_id", id), zap.Error(err))
		return Result{OK: false, Message: "internal error"}
	}

	s.logger.Info("email marked as sent", zap.String("offer_id", id))

	return Result{OK: true}
}

// validateSendable checks the send preconditions against the stored draft
// fields: a parseable recipient address, a subject, a body and a two-letter
// language code.
func validateSendable(offer *store.Offer) error {
	if offer.EmailTo == nil || *offer.EmailTo == "" {
		return errs.Newf(errs.CodeValidation, "offer has no recipient")
	}
	if _, err := mail.ParseAddress(*offer.EmailTo); err != nil {
		return errs.Newf(errs.CodeValidation, "offer recipient is not a valid email address")
	}
	if offer.EmailSubject == nil || strings.TrimSpace(*offer.EmailSubject) == "" {
		return errs.Newf(errs.CodeValidation, "offer has no email subject")
	}
	if offer.EmailHTML == nil || strings.TrimSpace(*offer.EmailHTML) == "" {
		return errs.Newf(errs.CodeValidation, "offer has no email body")
	}
	if offer.EmailLang == nil || len(*offer.EmailLang) != 2 {
		return errs.Newf(errs.CodeValidation, "offer has no two-letter email language")
	}
	return nil
}

// providerReason extracts the persistable provider message from a send error.
func providerReason(err error) string {
	var appErr *errs.Error
	if errors.As(err, &appErr) && appErr.Code == errs.CodeProvider {
		return appErr.Message
	}
	return err.Error()
}
