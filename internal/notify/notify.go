// Package notify delivers finished message bodies to a recipient. Recipient
// ids are resolved to a phone number or email address through a Directory;
// dispatchers never retry or queue.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrNoAddress         = errors.New("recipient has no address for channel")
	ErrEmptyBody         = errors.New("message body is empty")
)

type Receipt struct {
	ID        string
	Channel   string
	Recipient string
	SentAt    time.Time
}

type Dispatcher interface {
	Send(ctx context.Context, recipientID, body string) (Receipt, error)
}

type Contact struct {
	Name  string
	Email string
	Phone string
}

// Directory resolves a recipient id to its contact details.
type Directory interface {
	Resolve(ctx context.Context, recipientID string) (Contact, error)
}

// DispatchError wraps every failure a dispatcher returns.
type DispatchError struct {
	Channel   string
	Recipient string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s to %s: %v", e.Channel, e.Recipient, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

func dispatchErr(channel, recipient string, err error) error {
	return &DispatchError{Channel: channel, Recipient: recipient, Err: err}
}

// waitFor runs a blocking provider call and gives up when ctx is done. The
// call itself keeps running; its result is dropped.
func waitFor[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
