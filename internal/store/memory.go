package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory Store with the same semantics as Postgres. It backs
// tests and lets the pipeline run against a throwaway table.
type Memory struct {
	mu     sync.RWMutex
	offers map[string]*Offer
	order  []string
}

func NewMemory() *Memory {
	return &Memory{offers: make(map[string]*Offer)}
}

func (m *Memory) InsertIfAbsent(_ context.Context, offers []*Offer) ([]*Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := make([]*Offer, 0, len(offers))
	for _, offer := range offers {
		if _, ok := m.offers[offer.ID]; ok {
			continue
		}
		clone := cloneOffer(offer)
		m.offers[offer.ID] = clone
		m.order = append(m.order, offer.ID)
		inserted = append(inserted, cloneOffer(clone))
	}

	return inserted, nil
}

func (m *Memory) Query(_ context.Context, filter Filter) ([]*Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*Offer, 0)
	for _, id := range m.order {
		o := m.offers[id]
		if !o.Processed || o.Rejected || o.RejectedReason != nil {
			continue
		}
		if filter.ID != "" && o.ID != filter.ID {
			continue
		}
		if filter.Email != "" && (o.EmailTo == nil || *o.EmailTo != filter.Email) {
			continue
		}
		if filter.Sent != "" && o.SentEmail != filter.SentValue() {
			continue
		}
		if filter.Tag != "" && (o.ProcessedTags == nil || !strings.Contains(*o.ProcessedTags, filter.Tag)) {
			continue
		}
		matched = append(matched, cloneOffer(o))
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return matched, nil
}

func (m *Memory) GetByID(_ context.Context, id string) (*Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	offer, ok := m.offers[id]
	if !ok {
		return nil, ErrNotFound
	}

	return cloneOffer(offer), nil
}

func (m *Memory) Update(_ context.Context, id string, update OfferUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	offer, ok := m.offers[id]
	if !ok {
		return ErrNotFound
	}

	if update.Processed != nil {
		offer.Processed = *update.Processed
	}
	if update.ProcessedDescription != nil {
		offer.ProcessedDescription = clonePtr(update.ProcessedDescription)
	}
	if update.ProcessedTags != nil {
		offer.ProcessedTags = clonePtr(update.ProcessedTags)
	}
	if update.Rejected != nil {
		offer.Rejected = *update.Rejected
	}
	if update.RejectedReason != nil {
		offer.RejectedReason = clonePtr(update.RejectedReason)
	} else if update.ClearRejectedReason {
		offer.RejectedReason = nil
	}
	if update.SentEmail != nil {
		offer.SentEmail = *update.SentEmail
	}
	if update.SentFailedReason != nil {
		offer.SentFailedReason = clonePtr(update.SentFailedReason)
	}
	if update.EmailTo != nil {
		offer.EmailTo = clonePtr(update.EmailTo)
	}
	if update.EmailSubject != nil {
		offer.EmailSubject = clonePtr(update.EmailSubject)
	}
	if update.EmailHTML != nil {
		offer.EmailHTML = clonePtr(update.EmailHTML)
	}
	if update.EmailLang != nil {
		offer.EmailLang = clonePtr(update.EmailLang)
	}

	return nil
}

func (m *Memory) Unprocessed(_ context.Context) ([]*Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	offers := make([]*Offer, 0)
	for _, id := range m.order {
		if o := m.offers[id]; !o.Processed {
			offers = append(offers, cloneOffer(o))
		}
	}

	return offers, nil
}

func cloneOffer(o *Offer) *Offer {
	clone := *o
	clone.ProcessedDescription = clonePtr(o.ProcessedDescription)
	clone.ProcessedTags = clonePtr(o.ProcessedTags)
	clone.RejectedReason = clonePtr(o.RejectedReason)
	clone.SentFailedReason = clonePtr(o.SentFailedReason)
	clone.EmailTo = clonePtr(o.EmailTo)
	clone.EmailSubject = clonePtr(o.EmailSubject)
	clone.EmailHTML = clonePtr(o.EmailHTML)
	clone.EmailLang = clonePtr(o.EmailLang)
	return &clone
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
