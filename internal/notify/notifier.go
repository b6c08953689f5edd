package notify

import (
	"context"
	"errors"
	"log"
	"strconv"
)

// Notifier renders and delivers messages to individual chats and to the
// configured admin chats.
type Notifier struct {
	channel   Channel
	templates *TemplateSet
	admins    []int64
	logger    *log.Logger
}

// Option configures the notifier.
type Option func(*Notifier)

// WithAdmins sets the admin chat ids for broadcast messages.
func WithAdmins(chatIDs []int64) Option {
	return func(n *Notifier) {
		n.admins = chatIDs
	}
}

// NewNotifier constructs a notifier.
func NewNotifier(channel Channel, templates *TemplateSet, logger *log.Logger, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("notifier: nil channel")
	}
	if templates == nil {
		defaults, err := NewTemplateSet(nil)
		if err != nil {
			return nil, err
		}
		templates = defaults
	}
	if logger == nil {
		logger = log.Default()
	}
	n := &Notifier{channel: channel, templates: templates, logger: logger}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Send renders the message for kind and delivers it to one chat.
func (n *Notifier) Send(ctx context.Context, recipientTelegramID int64, kind MessageKind) error {
	if n == nil || n.channel == nil {
		return errors.New("notifier: nil channel")
	}
	content, err := n.templates.Render(kind, TemplateData{})
	if err != nil {
		return err
	}
	return n.channel.Send(ctx, recipientTelegramID, content)
}

// NotifyAdmins delivers a message about a requester to every configured admin
// chat. Per-chat failures are logged and do not stop the remaining sends; the
// last failure is returned.
func (n *Notifier) NotifyAdmins(ctx context.Context, kind MessageKind, requesterTelegramID int64) error {
	if n == nil || n.channel == nil {
		return errors.New("notifier: nil channel")
	}
	content, err := n.templates.Render(kind, TemplateData{
		Requester: strconv.FormatInt(requesterTelegramID, 10),
	})
	if err != nil {
		return err
	}
	var lastErr error
	for _, chatID := range n.admins {
		if err := n.channel.Send(ctx, chatID, content); err != nil {
			n.logger.Printf("notify: send %s to admin %d failed: %v", kind, chatID, err)
			lastErr = err
		}
	}
	return lastErr
}
