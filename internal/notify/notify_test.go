package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"gopkg.in/gomail.v2"

	"github.com/izzypositivetech-001/IzzyCare/internal/logging"
)

type mapDirectory map[string]Contact

func (d mapDirectory) Resolve(ctx context.Context, id string) (Contact, error) {
	c, ok := d[id]
	if !ok {
		return Contact{}, ErrRecipientNotFound
	}
	return c, nil
}

type fakeTwilio struct {
	calls int
	last  *openapi.CreateMessageParams
	err   error
	block chan struct{}
}

func (f *fakeTwilio) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.calls++
	f.last = params
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &openapi.ApiV2010Message{Sid: &sid}, nil
}

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

var directory = mapDirectory{
	"user-1": {Name: "Ada Obi", Email: "ada@example.com", Phone: "+2348012345678"},
	"user-2": {Name: "No Phone", Email: "nophone@example.com"},
}

func TestSMSDispatcher_Send(t *testing.T) {
	api := &fakeTwilio{}
	d := NewSMSDispatcher(api, "+15005550006", directory)

	receipt, err := d.Send(context.Background(), "user-1", "Hi, it's IzzyCare.")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if receipt.ID != "SM123" || receipt.Channel != ChannelSMS {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if *api.last.To != "+2348012345678" || *api.last.From != "+15005550006" || *api.last.Body != "Hi, it's IzzyCare." {
		t.Errorf("unexpected params: to=%s from=%s body=%s", *api.last.To, *api.last.From, *api.last.Body)
	}
}

func TestSMSDispatcher_Failures(t *testing.T) {
	tests := []struct {
		name      string
		recipient string
		body      string
		apiErr    error
		wantErr   error
		wantCalls int
	}{
		{"unknown recipient", "ghost", "hello", nil, ErrRecipientNotFound, 0},
		{"no phone", "user-2", "hello", nil, ErrNoAddress, 0},
		{"empty body", "user-1", "  ", nil, ErrEmptyBody, 0},
		{"gateway error", "user-1", "hello", errors.New("twilio 500"), nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeTwilio{err: tt.apiErr}
			d := NewSMSDispatcher(api, "+15005550006", directory)

			_, err := d.Send(context.Background(), tt.recipient, tt.body)

			var de *DispatchError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DispatchError, got %v", err)
			}
			if de.Channel != ChannelSMS || de.Recipient != tt.recipient {
				t.Errorf("unexpected dispatch error fields: %+v", de)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if api.calls != tt.wantCalls {
				t.Errorf("expected %d gateway calls, got %d", tt.wantCalls, api.calls)
			}
		})
	}
}

func TestSMSDispatcher_RespectsDeadline(t *testing.T) {
	api := &fakeTwilio{block: make(chan struct{})}
	defer close(api.block)
	d := NewSMSDispatcher(api, "+15005550006", directory)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := d.Send(ctx, "user-1", "hello")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("Send did not return at the deadline")
	}
}

func TestEmailDispatcher_Send(t *testing.T) {
	sender := &fakeSender{}
	d := NewEmailDispatcher(sender, "clinic@izzycare.test", "IzzyCare appointment update", directory)

	receipt, err := d.Send(context.Background(), "user-2", "Your appointment has been scheduled.")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if receipt.Channel != ChannelEmail || receipt.ID == "" {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if got := msg.GetHeader("To"); len(got) != 1 || !strings.Contains(got[0], "nophone@example.com") {
		t.Errorf("unexpected To header: %v", got)
	}
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "IzzyCare appointment update" {
		t.Errorf("unexpected Subject header: %v", got)
	}
}

func TestEmailDispatcher_SMTPError(t *testing.T) {
	sender := &fakeSender{err: errors.New("535 auth failed")}
	d := NewEmailDispatcher(sender, "clinic@izzycare.test", "update", directory)

	_, err := d.Send(context.Background(), "user-1", "body")
	var de *DispatchError
	if !errors.As(err, &de) || de.Channel != ChannelEmail {
		t.Fatalf("expected email DispatchError, got %v", err)
	}
}

func TestNoop_AlwaysSucceeds(t *testing.T) {
	n := NewNoop(logging.Discard())
	receipt, err := n.Send(context.Background(), "anyone", "body")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if receipt.Channel != ChannelNone {
		t.Errorf("unexpected channel %q", receipt.Channel)
	}
}
