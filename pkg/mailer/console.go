package mailer

import (
	"sync"

	"go.uber.org/zap"
)

// ConsoleMailer logs messages instead of delivering them. Used in development
// and as the fallback when no provider credentials are configured. Sent
// messages are retained so tests can assert on them.
type ConsoleMailer struct {
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

// NewConsole constructs a console mailer.
func NewConsole(logger *zap.Logger) *ConsoleMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleMailer{logger: logger}
}

// Send records the message and writes it to the log.
func (m *ConsoleMailer) Send(msg Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	m.logger.Info("email",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.TextBody),
	)
	return nil
}

// Sent returns a copy of all messages recorded so far.
func (m *ConsoleMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
