package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/onboarding-booking-api/internal/calendar"
	"github.com/onboarding-booking-api/internal/mailer"
)

// MockCalendar is a mock implementation of calendar.Client
type MockCalendar struct {
	mu sync.Mutex

	CreateErr error
	DeleteErr error
	// CreateFunc, when set, replaces the default behavior of CreateEvent
	CreateFunc func(ctx context.Context, ev calendar.Event) (string, error)

	Created []calendar.Event
	Deleted []string
	next    int
}

var _ calendar.Client = (*MockCalendar)(nil)

func NewMockCalendar() *MockCalendar {
	return &MockCalendar{}
}

func (m *MockCalendar) CreateEvent(ctx context.Context, ev calendar.Event) (string, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, ev)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	m.next++
	m.Created = append(m.Created, ev)
	return fmt.Sprintf("event-%d", m.next), nil
}

func (m *MockCalendar) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.Deleted = append(m.Deleted, eventID)
	return nil
}

// MockSender is a mock implementation of mailer.Sender
type MockSender struct {
	mu sync.Mutex

	// FailFor makes Send fail for messages addressed to any of these recipients
	FailFor map[string]bool
	Sent    []mailer.Message
}

var _ mailer.Sender = (*MockSender)(nil)

func NewMockSender() *MockSender {
	return &MockSender{FailFor: make(map[string]bool)}
}

func (m *MockSender) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, to := range msg.To {
		if m.FailFor[to] {
			return fmt.Errorf("mailbox %s unavailable", to)
		}
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

// Messages returns a copy of the sent messages
func (m *MockSender) Messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.Sent...)
}
