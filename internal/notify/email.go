package notify

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

const ChannelEmail = "email"

// Sender is satisfied by *gomail.Dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailDispatcher struct {
	sender    Sender
	from      string
	subject   string
	directory Directory
	now       func() time.Time
}

func NewSMTPEmail(host string, port int, username, password, from, subject string, directory Directory) *EmailDispatcher {
	return NewEmailDispatcher(gomail.NewDialer(host, port, username, password), from, subject, directory)
}

func NewEmailDispatcher(sender Sender, from, subject string, directory Directory) *EmailDispatcher {
	return &EmailDispatcher{
		sender:    sender,
		from:      from,
		subject:   subject,
		directory: directory,
		now:       time.Now,
	}
}

func (d *EmailDispatcher) Send(ctx context.Context, recipientID, body string) (Receipt, error) {
	if strings.TrimSpace(body) == "" {
		return Receipt{}, dispatchErr(ChannelEmail, recipientID, ErrEmptyBody)
	}

	contact, err := d.directory.Resolve(ctx, recipientID)
	if err != nil {
		return Receipt{}, dispatchErr(ChannelEmail, recipientID, err)
	}
	if contact.Email == "" {
		return Receipt{}, dispatchErr(ChannelEmail, recipientID, ErrNoAddress)
	}

	id := uuid.NewString()

	msg := gomail.NewMessage()
	msg.SetHeader("From", d.from)
	if contact.Name != "" {
		msg.SetAddressHeader("To", contact.Email, contact.Name)
	} else {
		msg.SetHeader("To", contact.Email)
	}
	msg.SetHeader("Subject", d.subject)
	msg.SetHeader("X-Notification-ID", id)
	msg.SetBody("text/plain", body)

	_, err = waitFor(ctx, func() (struct{}, error) {
		return struct{}{}, d.sender.DialAndSend(msg)
	})
	if err != nil {
		return Receipt{}, dispatchErr(ChannelEmail, recipientID, err)
	}

	return Receipt{
		ID:        id,
		Channel:   ChannelEmail,
		Recipient: recipientID,
		SentAt:    d.now(),
	}, nil
}
