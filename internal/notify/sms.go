package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

const ChannelSMS = "sms"

// MessageCreator is the slice of the Twilio REST client SMSDispatcher uses.
type MessageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

type SMSDispatcher struct {
	api       MessageCreator
	from      string
	directory Directory
	now       func() time.Time
}

func NewTwilioSMS(accountSID, authToken, from string, directory Directory) *SMSDispatcher {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewSMSDispatcher(client.Api, from, directory)
}

func NewSMSDispatcher(api MessageCreator, from string, directory Directory) *SMSDispatcher {
	return &SMSDispatcher{
		api:       api,
		from:      from,
		directory: directory,
		now:       time.Now,
	}
}

func (d *SMSDispatcher) Send(ctx context.Context, recipientID, body string) (Receipt, error) {
	if strings.TrimSpace(body) == "" {
		return Receipt{}, dispatchErr(ChannelSMS, recipientID, ErrEmptyBody)
	}

	contact, err := d.directory.Resolve(ctx, recipientID)
	if err != nil {
		return Receipt{}, dispatchErr(ChannelSMS, recipientID, err)
	}
	if contact.Phone == "" {
		return Receipt{}, dispatchErr(ChannelSMS, recipientID, ErrNoAddress)
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(contact.Phone)
	params.SetFrom(d.from)
	params.SetBody(body)

	msg, err := waitFor(ctx, func() (*openapi.ApiV2010Message, error) {
		return d.api.CreateMessage(params)
	})
	if err != nil {
		return Receipt{}, dispatchErr(ChannelSMS, recipientID, fmt.Errorf("twilio create message: %w", err))
	}
	if msg == nil || msg.Sid == nil {
		return Receipt{}, dispatchErr(ChannelSMS, recipientID, errors.New("twilio returned no message sid"))
	}

	return Receipt{
		ID:        *msg.Sid,
		Channel:   ChannelSMS,
		Recipient: recipientID,
		SentAt:    d.now(),
	}, nil
}
