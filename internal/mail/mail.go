// Package mail abstracts outbound email behind a small Mailer interface so
// the composing layers can be exercised without a Gmail account.
package mail

import (
	"context"
	"errors"
)

var errRefused = errors.New("send refused")

// Message is one outbound email with both plain-text and HTML bodies.
type Message struct {
	To       string
	FromName string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer sends or drafts messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	// CreateDraft saves the message as a draft and returns the draft id.
	CreateDraft(ctx context.Context, msg Message) (string, error)
}

// Recorder is a Mailer for tests. It records everything and can be made to
// refuse sends.
type Recorder struct {
	Sent     []Message
	Drafts   []Message
	FailSend bool
	DraftID  string
}

func (r *Recorder) Send(ctx context.Context, msg Message) error {
	if r.FailSend {
		return errRefused
	}
	r.Sent = append(r.Sent, msg)
	return nil
}

func (r *Recorder) CreateDraft(ctx context.Context, msg Message) (string, error) {
	r.Drafts = append(r.Drafts, msg)
	if r.DraftID != "" {
		return r.DraftID, nil
	}
	return "draft-1", nil
}
