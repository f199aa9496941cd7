package store

import (
	"context"
	"testing"
	"time"
)

func newTestOffer(id string, createdAt time.Time) *Offer {
	return &Offer{
		ID:           id,
		Title:        "Backend dev",
		Description:  "We need a backend developer",
		Salary:       "45k",
		ContractType: "freelance",
		Email:        "hr@co.com",
		CreatedAt:    createdAt,
	}
}

func TestInsertIfAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	offer := newTestOffer("1", time.Now().UTC())

	inserted, err := m.InsertIfAbsent(ctx, []*Offer{offer})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inserted) != 1 {
		t.Fatalf("expected 1 inserted offer, got %d", len(inserted))
	}

	// Same id with different raw fields must be ignored silently.
	duplicate := newTestOffer("1", time.Now().UTC())
	duplicate.Title = "Changed title"

	inserted, err = m.InsertIfAbsent(ctx, []*Offer{duplicate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inserted) != 0 {
		t.Fatalf("expected duplicate to be skipped, got %d inserted", len(inserted))
	}

	stored, err := m.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Title != "Backend dev" {
		t.Fatalf("original raw fields were overwritten: %s", stored.Title)
	}
}

func TestQueryAppliesConjunctionAndOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	older := newTestOffer("1", base)
	newer := newTestOffer("2", base.Add(time.Hour))
	unprocessed := newTestOffer("3", base.Add(2*time.Hour))
	rejected := newTestOffer("4", base.Add(3*time.Hour))

	if _, err := m.InsertIfAbsent(ctx, []*Offer{older, newer, unprocessed, rejected}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []string{"1", "2"} {
		update := OfferUpdate{
			Processed:     Bool(true),
			ProcessedTags: String("react,node"),
			Rejected:      Bool(false),
			EmailTo:       String("hr@co.com"),
		}
		if err := m.Update(ctx, id, update); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := m.Update(ctx, "4", OfferUpdate{
		Processed:      Bool(true),
		Rejected:       Bool(true),
		RejectedReason: String("no matching stack"),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	offers, err := m.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("expected 2 reviewable offers, got %d", len(offers))
	}
	if offers[0].ID != "2" || offers[1].ID != "1" {
		t.Fatalf("expected most recent first, got %s then %s", offers[0].ID, offers[1].ID)
	}
}

func TestQueryOptionalFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first := newTestOffer("1", base)
	second := newTestOffer("2", base.Add(time.Hour))
	if _, err := m.InsertIfAbsent(ctx, []*Offer{first, second}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Update(ctx, "1", OfferUpdate{
		Processed:     Bool(true),
		ProcessedTags: String("react,node"),
		EmailTo:       String("a@co.com"),
		SentEmail:     Bool(true),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Update(ctx, "2", OfferUpdate{
		Processed:     Bool(true),
		ProcessedTags: String("golang"),
		EmailTo:       String("b@co.com"),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{name: "by id", filter: Filter{ID: "1"}, expected: []string{"1"}},
		{name: "by email", filter: Filter{Email: "b@co.com"}, expected: []string{"2"}},
		{name: "sent true", filter: Filter{Sent: "true"}, expected: []string{"1"}},
		{name: "sent false", filter: Filter{Sent: "false"}, expected: []string{"2"}},
		{name: "by tag substring", filter: Filter{Tag: "react"}, expected: []string{"1"}},
		{name: "no match", filter: Filter{Tag: "rust"}, expected: []string{}},
		{name: "conjunction", filter: Filter{Email: "a@co.com", Sent: "false"}, expected: []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			offers, err := m.Query(ctx, tc.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(offers) != len(tc.expected) {
				t.Fatalf("expected %d offers, got %d", len(tc.expected), len(offers))
			}
			for i, id := range tc.expected {
				if offers[i].ID != id {
					t.Fatalf("expected offer %s at position %d, got %s", id, i, offers[i].ID)
				}
			}
		})
	}
}

func TestUpdateUnknownOffer(t *testing.T) {
	m := NewMemory()

	err := m.Update(context.Background(), "missing", OfferUpdate{Processed: Bool(true)})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnprocessedReturnsOnlyNewOffers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := m.InsertIfAbsent(ctx, []*Offer{
		newTestOffer("1", base),
		newTestOffer("2", base.Add(time.Hour)),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Update(ctx, "1", OfferUpdate{Processed: Bool(true)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	offers, err := m.Unprocessed(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(offers) != 1 || offers[0].ID != "2" {
		t.Fatalf("expected only offer 2 to be unprocessed, got %+v", offers)
	}
}

func TestClearRejectedReason(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.InsertIfAbsent(ctx, []*Offer{newTestOffer("1", time.Now().UTC())}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Update(ctx, "1", OfferUpdate{RejectedReason: String("bad fit")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Update(ctx, "1", OfferUpdate{ClearRejectedReason: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	offer, err := m.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offer.RejectedReason != nil {
		t.Fatalf("expected rejected reason to be cleared, got %q", *offer.RejectedReason)
	}
}
