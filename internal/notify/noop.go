package notify

import (
	"context"
	"log/slog"
	"time"
)

const ChannelNone = "none"

// Noop accepts every message and only logs it. Used when NOTIFY_CHANNEL=none.
type Noop struct {
	log *slog.Logger
}

func NewNoop(log *slog.Logger) *Noop {
	return &Noop{log: log}
}

func (n *Noop) Send(ctx context.Context, recipientID, body string) (Receipt, error) {
	n.log.DebugContext(ctx, "notification skipped, channel disabled", "recipient", recipientID, "body_len", len(body))
	return Receipt{Channel: ChannelNone, Recipient: recipientID, SentAt: time.Now()}, nil
}
