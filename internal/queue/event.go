// Package queue defines the domain events exchanged over the message broker,
// the publisher used by request handlers and the consumer that writes them
// to the event log.
package queue

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QueueName is the durable queue carrying every studio event.
const QueueName = "studio.events"

// EventType names what happened.
type EventType string

const (
	EventUserCreated          EventType = "user.created"
	EventInviteCreated        EventType = "invite.created"
	EventSessionRequestStatus EventType = "session_request.status_changed"
	EventBookedSessionStatus  EventType = "booked_session.status_changed"
	EventMembershipUpdated    EventType = "membership.updated"
)

// Event is published after a successful write.  It contains enough
// information for downstream consumers to log or notify without querying the
// primary database.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	ActorID    uint64         `json:"actor_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// NewEvent stamps a fresh id and the current UTC time.
func NewEvent(t EventType, actorID uint64, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Data:       data,
	}
}

// LogLine renders the event as a single human-friendly line.  Data keys are
// sorted so lines are stable.
func (e Event) LogLine() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | id=%s", e.OccurredAt.UTC().Format(time.RFC3339), e.Type, e.ID)
	if e.ActorID != 0 {
		fmt.Fprintf(&b, " | actor_id=%d", e.ActorID)
	}
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " | %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.String()
}
