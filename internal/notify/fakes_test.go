package notify

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"neothink/pkg/types"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// memStore is an in-memory stand-in for the Postgres repositories.
type memStore struct {
	mu            sync.Mutex
	seq           int
	now           func() time.Time
	preferences   map[string]*types.NotificationPreference
	notifications map[string]*types.Notification
	queue         map[string]*types.QueuedNotification
	failWrites    error
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		now:           now,
		preferences:   make(map[string]*types.NotificationPreference),
		notifications: make(map[string]*types.Notification),
		queue:         make(map[string]*types.QueuedNotification),
	}
}

func prefKey(userID string, t types.NotificationType) string {
	return userID + "|" + string(t)
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%04d", prefix, m.seq)
}

func (m *memStore) putPreference(p *types.NotificationPreference) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preferences[prefKey(p.UserID, p.Type)] = p
}

func (m *memStore) Preference(_ context.Context, userID string, t types.NotificationType) (*types.NotificationPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.preferences[prefKey(userID, t)]
	if !ok {
		return nil, types.ErrPreferenceNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, n *types.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites != nil {
		return m.failWrites
	}
	m.insertLocked(n)
	return nil
}

func (m *memStore) insertLocked(n *types.Notification) {
	now := m.now()
	n.ID = m.nextID("ntf")
	n.CreatedAt = now.Add(time.Duration(m.seq) * time.Microsecond)
	n.UpdatedAt = n.CreatedAt
	cp := *n
	m.notifications[n.ID] = &cp
}

func (m *memStore) List(_ context.Context, userID string, filter types.NotificationFilter) ([]*types.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*types.Notification, 0)
	for _, n := range m.notifications {
		if n.UserID != userID || (filter.UnreadOnly && n.Read) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && uint64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) UnreadCount(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memStore) MarkRead(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return types.ErrNotificationNotFound
	}
	if !n.Read {
		n.Read = true
		n.UpdatedAt = m.now()
	}
	return nil
}

func (m *memStore) MarkAllRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var updated int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			n.UpdatedAt = m.now()
			updated++
		}
	}
	return updated, nil
}

func (m *memStore) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return types.ErrNotificationNotFound
	}
	delete(m.notifications, id)
	return nil
}

func (m *memStore) DeleteAll(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, n := range m.notifications {
		if n.UserID == userID {
			delete(m.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, n := range m.notifications {
		if n.CreatedAt.Before(cutoff) {
			delete(m.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memStore) Enqueue(_ context.Context, q *types.QueuedNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites != nil {
		return m.failWrites
	}
	q.ID = m.nextID("q")
	if q.CreatedAt.IsZero() {
		q.CreatedAt = m.now()
	}
	cp := *q
	m.queue[q.ID] = &cp
	return nil
}

func (m *memStore) promote(match func(*types.QueuedNotification) bool, build PromoteFunc) []*types.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	claimed := make([]*types.QueuedNotification, 0)
	for id, q := range m.queue {
		if match(q) {
			claimed = append(claimed, q)
			delete(m.queue, id)
		}
	}
	sort.Slice(claimed, func(i, j int) bool { return claimed[i].CreatedAt.Before(claimed[j].CreatedAt) })

	if len(claimed) == 0 {
		return nil
	}

	created := build(claimed)
	for _, n := range created {
		m.insertLocked(n)
	}
	return created
}

func (m *memStore) PromoteScheduled(_ context.Context, now time.Time, build PromoteFunc) ([]*types.Notification, error) {
	return m.promote(func(q *types.QueuedNotification) bool {
		return q.Batch == nil && q.ScheduledFor != nil && !q.ScheduledFor.After(now)
	}, build), nil
}

func (m *memStore) PromoteBatch(_ context.Context, batch types.Frequency, createdBefore time.Time, build PromoteFunc) ([]*types.Notification, error) {
	return m.promote(func(q *types.QueuedNotification) bool {
		return q.Batch != nil && *q.Batch == batch && q.CreatedAt.Before(createdBefore)
	}, build), nil
}

func (m *memStore) queued() []*types.QueuedNotification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*types.QueuedNotification, 0, len(m.queue))
	for _, q := range m.queue {
		cp := *q
		out = append(out, &cp)
	}
	return out
}

func (m *memStore) notificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.ChangeEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev types.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []types.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.ChangeEvent(nil), p.events...)
}

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func strPtr(s string) *string { return &s }
