package testutil

import (
	"context"
	"sync"

	"github.com/subsync/subsync/internal/notification"
)

var _ notification.Notifier = (*MockNotifier)(nil)

// MockNotifier records notifications instead of queueing them
type MockNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, n notification.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
}

// Sent returns a snapshot of everything notified so far
func (m *MockNotifier) Sent() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification.Notification(nil), m.sent...)
}

// CountKind returns how many notifications of the named kind were recorded
func (m *MockNotifier) CountKind(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.Kind.Name() == kind {
			n++
		}
	}
	return n
}

func (m *MockNotifier) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
