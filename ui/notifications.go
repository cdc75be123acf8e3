package ui

import "time"

// notificationTTL is how long a transient notification stays visible
const notificationTTL = 5 * time.Second

// notification is a transient message shown in the header area
type notification struct {
	expiresAt time.Time
	text      string
}

// notificationQueue holds pending transient messages
type notificationQueue struct {
	items []notification
}

// Push queues a message
func (q *notificationQueue) Push(text string) {
	q.items = append(q.items, notification{
		expiresAt: time.Now().Add(notificationTTL),
		text:      text,
	})
	if len(q.items) > 10 {
		q.items = q.items[len(q.items)-10:]
	}
}

// Prune drops expired messages
func (q *notificationQueue) Prune(now time.Time) {
	kept := q.items[:0]
	for _, n := range q.items {
		if n.expiresAt.After(now) {
			kept = append(kept, n)
		}
	}
	q.items = kept
}

// Current returns the newest visible message, "" when none
func (q *notificationQueue) Current() string {
	if len(q.items) == 0 {
		return ""
	}
	return q.items[len(q.items)-1].text
}
