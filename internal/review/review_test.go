package review

import (
	"context"
	"testing"
	"time"

	"github.com/herbievine/42-job-listener/internal/errs"
	"github.com/herbievine/42-job-listener/internal/mailer"
	"github.com/herbievine/42-job-listener/internal/store"

	"go.uber.org/zap"
)

type stubSender struct {
	err   error
	sent  []*mailer.Email
	calls int
}

func (s *stubSender) Send(_ context.Context, email *mailer.Email) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, email)
	return nil
}

var testIdentity = Identity{
	From:       "Herbie <herbie@example.com>",
	BCC:        "archive@example.com",
	Attachment: mailer.Attachment{Path: "https://example.com/cv.pdf", Filename: "cv.pdf"},
}

func seedReadyOffer(t *testing.T, m *store.Memory, id string) {
	t.Helper()

	ctx := context.Background()
	offer := &store.Offer{
		ID:           id,
		Title:        "Backend dev",
		Description:  "We need a backend developer",
		Salary:       "45k",
		ContractType: "freelance",
		Email:        "hr@co.com",
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := m.InsertIfAbsent(ctx, []*store.Offer{offer}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	update := store.OfferUpdate{
		Processed:            store.Bool(true),
		ProcessedDescription: store.String("Backend role"),
		ProcessedTags:        store.String("react,node"),
		Rejected:             store.Bool(false),
		EmailTo:              store.String("hr@co.com"),
		EmailSubject:         store.String("Hi"),
		EmailHTML:            store.String("<p>hi</p>"),
		EmailLang:            store.String("en"),
	}
	if err := m.Update(ctx, id, update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSendDeliversAndPersists(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	seedReadyOffer(t, m, "1")

	sender := &stubSender{}
	svc := NewService(m, sender, testIdentity, zap.NewNop())

	result := svc.Send(ctx, "1")
	if !result.OK {
		t.Fatalf("expected success, got %+v", result)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	email := sender.sent[0]
	if email.From != testIdentity.From || email.BCC != testIdentity.BCC {
		t.Fatalf("unexpected identity on email: %+v", email)
	}
	if email.To != "hr@co.com" || email.Subject != "Hi" || email.HTML != "<p>hi</p>" {
		t.Fatalf("unexpected email: %+v", email)
	}
	if len(email.Attachments) != 1 || email.Attachments[0].Filename != "cv.pdf" {
		t.Fatalf("expected the fixed attachment, got %+v", email.Attachments)
	}

	offer, err := m.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !offer.SentEmail || offer.Rejected {
		t.Fatalf("unexpected state after send: %+v", offer)
	}
	if offer.State() != store.StateSent {
		t.Fatalf("expected SENT state, got %s", offer.State())
	}
}

func TestSendUnknownOffer(t *testing.T) {
	sender := &stubSender{}
	svc := NewService(store.NewMemory(), sender, testIdentity, zap.NewNop())

	result := svc.Send(context.Background(), "missing")
	if result.OK {
		t.Fatalf("expected failure")
	}
	if result.Message != "Offer missing not found" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
	if sender.calls != 0 {
		t.Fatalf("expected no provider call")
	}
}

func TestSendPreconditions(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(update *store.OfferUpdate)
	}{
		{name: "missing recipient", mutate: func(u *store.OfferUpdate) { u.EmailTo = store.String("") }},
		{name: "invalid recipient", mutate: func(u *store.OfferUpdate) { u.EmailTo = store.String("not an address") }},
		{name: "missing subject", mutate: func(u *store.OfferUpdate) { u.EmailSubject = store.String("  ") }},
		{name: "missing body", mutate: func(u *store.OfferUpdate) { u.EmailHTML = store.String("") }},
		{name: "bad language", mutate: func(u *store.OfferUpdate) { u.EmailLang = store.String("english") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			m := store.NewMemory()
			seedReadyOffer(t, m, "1")

			update := store.OfferUpdate{}
			tc.mutate(&update)
			if err := m.Update(ctx, "1", update); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			sender := &stubSender{}
			svc := NewService(m, sender, testIdentity, zap.NewNop())

			result := svc.Send(ctx, "1")
			if result.OK {
				t.Fatalf("expected failure")
			}
			if sender.calls != 0 {
				t.Fatalf("expected no provider call on a precondition failure")
			}

			// The offer must be untouched.
			offer, err := m.GetByID(ctx, "1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if offer.SentEmail || offer.SentFailedReason != nil {
				t.Fatalf("precondition failure mutated the offer: %+v", offer)
			}
		})
	}
}

func TestSendProviderFailure(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	seedReadyOffer(t, m, "1")

	sender := &stubSender{err: errs.Newf(errs.CodeProvider, "quota exceeded")}
	svc := NewService(m, sender, testIdentity, zap.NewNop())

	result := svc.Send(ctx, "1")
	if result.OK {
		t.Fatalf("expected failure")
	}
	if result.Message != "Error sending email: quota exceeded" {
		t.Fatalf("unexpected message: %q", result.Message)
	}

	offer, err := m.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offer.SentEmail {
		t.Fatalf("failed send must not mark the offer as sent")
	}
	if offer.SentFailedReason == nil || *offer.SentFailedReason != "quota exceeded" {
		t.Fatalf("expected the provider reason to be persisted, got %v", offer.SentFailedReason)
	}
	if offer.State() != store.StateSendFailed {
		t.Fatalf("expected SEND_FAILED state, got %s", offer.State())
	}

	// A retry after the provider recovers succeeds and keeps the stale
	// failure reason around.
	sender.err = nil
	result = svc.Send(ctx, "1")
	if !result.OK {
		t.Fatalf("expected retry to succeed, got %+v", result)
	}

	offer, err = m.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !offer.SentEmail {
		t.Fatalf("expected the offer to be sent")
	}
	if offer.SentFailedReason == nil {
		t.Fatalf("expected the old failure reason to be kept")
	}
	if offer.State() != store.StateSent {
		t.Fatalf("expected SENT state, got %s", offer.State())
	}
}

func TestMarkSkipsProvider(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	seedReadyOffer(t, m, "1")

	// Mark works even when the draft would not pass the send checks.
	if err := m.Update(ctx, "1", store.OfferUpdate{EmailTo: store.String("")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sender := &stubSender{}
	svc := NewService(m, sender, testIdentity, zap.NewNop())

	result := svc.Mark(ctx, "1")
	if !result.OK {
		t.Fatalf("expected success, got %+v", result)
	}
	if sender.calls != 0 {
		t.Fatalf("mark must not call the provider")
	}

	offer, err := m.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !offer.SentEmail || offer.Rejected {
		t.Fatalf("unexpected state after mark: %+v", offer)
	}
}

func TestMarkUnknownOffer(t *testing.T) {
	svc := NewService(store.NewMemory(), &stubSender{}, testIdentity, zap.NewNop())

	result := svc.Mark(context.Background(), "missing")
	if result.OK {
		t.Fatalf("expected failure")
	}
	if result.Message != "Offer missing not found" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
}
