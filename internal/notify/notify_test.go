package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/logging"
	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)

func proposed() domain.Notification {
	return domain.Notification{
		Kind:    domain.NotifyPivotProposed,
		TripID:  "trip-1",
		SlotID:  "slot-1",
		PivotID: "pivot-1",
		At:      at,
		Detail:  map[string]any{"candidates": 3},
	}
}

func TestLog_WritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	n := NewLog(logging.NewWithWriter(&buf, "info"))

	require.NoError(t, n.Notify(context.Background(), proposed()))
	assert.Contains(t, buf.String(), "kind=pivot_proposed")
	assert.Contains(t, buf.String(), "pivot_id=pivot-1")
}

func TestRecorder_OfKind(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	require.NoError(t, r.Notify(ctx, proposed()))
	require.NoError(t, r.Notify(ctx, domain.Notification{Kind: domain.NotifyPivotExpired, TripID: "trip-1"}))

	assert.Len(t, r.Sent(), 2)
	assert.Len(t, r.OfKind(domain.NotifyPivotExpired), 1)
	assert.Empty(t, r.OfKind(domain.NotifyContentFlagged))
}

func TestRedis_PublishesOnTripChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	ctx := context.Background()
	n := NewRedis(client, "")

	sub := client.Subscribe(ctx, n.Channel("trip-1"))
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, n.Notify(ctx, proposed()))

	select {
	case msg := <-sub.Channel():
		var got Message
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "waypoint:notify:trip-1", msg.Channel)
		assert.Equal(t, domain.NotifyPivotProposed, got.Kind)
		assert.Equal(t, "pivot-1", got.PivotID)
		assert.Equal(t, "2026-05-02T14:00:00Z", got.At)
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestRedis_EnqueuePushesReviewItem(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	ctx := context.Background()
	n := NewRedis(client, "wp:")

	require.NoError(t, n.Enqueue(ctx, &domain.ContentFlag{
		ID:             "flag-1",
		ActivityNodeID: "park",
		SlotID:         "slot-1",
		ReporterUserID: "user-1",
		Note:           "closed for works",
		CreatedAt:      at,
	}))

	items, err := mr.List("wp:review")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.JSONEq(t, `{"flag_id":"flag-1","activity_node_id":"park","slot_id":"slot-1","reporter_user_id":"user-1","note":"closed for works","at":"2026-05-02T14:00:00Z"}`, items[0])
}

type failing struct{}

func (failing) Notify(context.Context, domain.Notification) error { return errors.New("offline") }

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	r := &Recorder{}
	err := Fanout{failing{}, r, Nop{}}.Notify(context.Background(), proposed())

	assert.EqualError(t, err, "offline")
	assert.Len(t, r.Sent(), 1)
}
