package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingPublisher struct {
	events []Event
	err    error
	ctxErr error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev Event) error {
	p.events = append(p.events, ev)
	p.ctxErr = ctx.Err()
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestLogLineIsStable(t *testing.T) {
	ev := Event{
		ID:         "e1",
		Type:       EventBookedSessionStatus,
		OccurredAt: time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC),
		ActorID:    1,
		Data:       map[string]any{"to": "paid", "from": "booked", "id": 4},
	}
	assert.Equal(t,
		"[2024-06-03T18:00:00Z] booked_session.status_changed | id=e1 | actor_id=1 | from=booked | id=4 | to=paid\n",
		ev.LogLine())
}

func TestConsumerHandleWritesLine(t *testing.T) {
	var buf bytes.Buffer
	c := &Consumer{Out: &buf, Log: zap.NewNop()}

	body, err := json.Marshal(NewEvent(EventUserCreated, 0, map[string]any{"username": "alice"}))
	require.NoError(t, err)
	require.NoError(t, c.Handle(body))
	assert.Contains(t, buf.String(), "user.created")
	assert.Contains(t, buf.String(), "username=alice")

	assert.Error(t, c.Handle([]byte("{not json")))
	assert.Error(t, c.Handle([]byte(`{"id":"x"}`)))
}

func TestNotifierSwallowsErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := &recordingPublisher{err: errors.New("broker down")}
	n := NewNotifier(pub, zap.New(core), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Notify(ctx, NewEvent(EventInviteCreated, 1, nil))

	require.Len(t, pub.events, 1)
	assert.NoError(t, pub.ctxErr, "publish must not inherit request cancellation")
	require.Equal(t, 1, logs.FilterMessage("publish event failed").Len())
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), NewEvent(EventUserCreated, 0, nil)))
	assert.NoError(t, p.Close())

	var n *Notifier
	n.Notify(context.Background(), NewEvent(EventUserCreated, 0, nil))
}
