// Package mailer abstracts the outbound email provider.
package mailer

import "context"

type Attachment struct {
	// Path is a URL the provider fetches the attachment from.
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

type Email struct {
	From        string       `json:"from"`
	To          string       `json:"to"`
	BCC         string       `json:"bcc,omitempty"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Sender interface {
	// Send delivers the email. Provider rejections come back as
	// provider-coded errors whose message is safe to persist.
	Send(ctx context.Context, email *Email) error
}
