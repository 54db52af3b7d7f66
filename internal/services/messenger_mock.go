package services

import (
	"context"
	"fmt"
	"sync"
)

// SentMessage is one message recorded by CaptureMessenger
type SentMessage struct {
	To   string
	Body string
}

// CaptureMessenger records messages instead of sending them. Sends to numbers
// registered with FailFor return an error.
type CaptureMessenger struct {
	mu       sync.Mutex
	sent     []SentMessage
	failures map[string]error
}

// NewCaptureMessenger creates an empty CaptureMessenger
func NewCaptureMessenger() *CaptureMessenger {
	return &CaptureMessenger{failures: make(map[string]error)}
}

// FailFor makes every send to the recipient fail
func (m *CaptureMessenger) FailFor(to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[to] = fmt.Errorf("simulated delivery failure to %s", to)
}

func (m *CaptureMessenger) Send(ctx context.Context, to string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failures[to]; ok {
		return err
	}
	m.sent = append(m.sent, SentMessage{To: to, Body: body})
	return nil
}

// Sent returns a copy of all delivered messages
func (m *CaptureMessenger) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}

// SentTo returns the delivered messages for one recipient
func (m *CaptureMessenger) SentTo(to string) []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SentMessage
	for _, msg := range m.sent {
		if msg.To == to {
			out = append(out, msg)
		}
	}
	return out
}

// Last returns the most recent message, or an empty one
func (m *CaptureMessenger) Last() SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentMessage{}
	}
	return m.sent[len(m.sent)-1]
}

// Reset forgets all recorded messages
func (m *CaptureMessenger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
