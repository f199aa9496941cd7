// Package store persists job offers and the derived lifecycle state that
// keeps re-runs of the pipeline idempotent.
//
// Lifecycle graph, derived from the offer flags:
//
//	NEW ──► REJECTED
//	 │
//	 └────► READY ──► SENT
//	          ▲  │
//	          │  ▼
//	        SEND_FAILED ──► SENT (manual mark)
//
// SENT and REJECTED are terminal states.
package store

import (
	"strings"
	"time"
)

// State is the position of an offer in the lifecycle graph.
type State string

const (
	StateNew        State = "NEW"
	StateRejected   State = "REJECTED"
	StateReady      State = "READY"
	StateSent       State = "SENT"
	StateSendFailed State = "SEND_FAILED"
)

// Offer is a job posting ingested from the 42 intra API plus the processing
// and sending state attached to it. Raw fields are immutable after insertion.
type Offer struct {
	ID           string
	Title        string
	Description  string
	Salary       string
	ContractType string
	Email        string
	CreatedAt    time.Time

	Processed            bool
	ProcessedDescription *string
	ProcessedTags        *string

	Rejected       bool
	RejectedReason *string

	SentEmail        bool
	SentFailedReason *string

	EmailTo      *string
	EmailSubject *string
	EmailHTML    *string
	EmailLang    *string
}

// State derives the lifecycle position from the stored flags.
func (o *Offer) State() State {
	switch {
	case !o.Processed:
		return StateNew
	case o.Rejected:
		return StateRejected
	case o.SentEmail:
		return StateSent
	case o.SentFailedReason != nil:
		return StateSendFailed
	default:
		return StateReady
	}
}

// ReadyToSend reports whether the offer is eligible for the send action.
// Both READY and SEND_FAILED qualify; a failed send may be retried.
func (o *Offer) ReadyToSend() bool {
	state := o.State()
	return state == StateReady || state == StateSendFailed
}

// Tags splits the comma-joined processed tags.
func (o *Offer) Tags() []string {
	if o.ProcessedTags == nil || *o.ProcessedTags == "" {
		return nil
	}
	return strings.Split(*o.ProcessedTags, ",")
}
