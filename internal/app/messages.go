package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// DefaultMessageTTL is how long a message stays visible.
const DefaultMessageTTL = 3 * time.Second

// Message is a transient user-visible notice.
type Message struct {
	Kind      ports.MessageKind `json:"kind"`
	Text      string            `json:"text"`
	PostedAt  time.Time         `json:"posted_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Compile-time interface check.
var _ ports.Notifier = (*MessageBox)(nil)

// MessageBox keeps the latest message only; posting replaces whatever was
// showing. Messages disappear once their TTL has elapsed.
type MessageBox struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
	cur    *Message
}

// NewMessageBox creates a message box. A non-positive ttl uses DefaultMessageTTL.
func NewMessageBox(ttl time.Duration, logger *slog.Logger) *MessageBox {
	if ttl <= 0 {
		ttl = DefaultMessageTTL
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &MessageBox{
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With(slog.String("component", "app.MessageBox")),
	}
}

// Notify replaces the current message.
func (b *MessageBox) Notify(ctx context.Context, kind ports.MessageKind, text string) {
	b.mu.Lock()
	now := b.now()
	b.cur = &Message{Kind: kind, Text: text, PostedAt: now, ExpiresAt: now.Add(b.ttl)}
	b.mu.Unlock()

	logging.FromContextOr(ctx, b.logger).DebugContext(ctx, "message posted",
		slog.String("kind", string(kind)),
		slog.String("text", text),
	)
}

// Current returns the visible message, if any.
func (b *MessageBox) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cur == nil {
		return Message{}, false
	}

	if !b.now().Before(b.cur.ExpiresAt) {
		b.cur = nil
		return Message{}, false
	}

	return *b.cur, true
}
