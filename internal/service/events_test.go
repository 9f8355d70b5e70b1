package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/threadboard/internal/cache"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs [][]byte
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, payload)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func TestDispatcherDrainsOnStop(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewEventDispatcher(pub, "events", 16)
	for i := 0; i < 10; i++ {
		d.Enqueue(Event{Type: EventPostCreated, PostID: "p"})
	}
	stop := d.Start(2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))
	assert.Equal(t, 10, pub.count())
	assert.Zero(t, d.QueueLen())
	delivered, failed := d.Stats()
	assert.Equal(t, int64(10), delivered)
	assert.Zero(t, failed)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewEventDispatcher(&recordingPublisher{}, "events", 2)
	for i := 0; i < 5; i++ {
		d.Enqueue(Event{Type: EventPostVoted})
	}
	assert.Equal(t, 2, d.QueueLen())
}

func TestDispatcherPublishFailureIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	d := NewEventDispatcher(pub, "events", 4)
	stop := d.Start(1)
	d.Enqueue(Event{Type: EventReplyDeleted})
	require.NoError(t, stop(context.Background()))

	assert.Zero(t, pub.count())
	delivered, failed := d.Stats()
	assert.Zero(t, delivered)
	assert.Equal(t, int64(1), failed)
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *EventDispatcher
	d.Enqueue(Event{Type: EventPostCreated})
	assert.Zero(t, d.QueueLen())
	delivered, failed := d.Stats()
	assert.Zero(t, delivered+failed)
}

func TestDispatcherOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, "threadboard:events")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	d := NewEventDispatcher(cache.NewRedisPublisher(client), "threadboard:events", 8)
	stop := d.Start(1)
	defer stop(ctx)

	score := int64(3)
	d.Enqueue(Event{Type: EventPostVoted, PostID: "p1", ActorID: "u1", Score: &score})

	select {
	case msg := <-sub.Channel():
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, EventPostVoted, ev.Type)
		assert.Equal(t, "p1", ev.PostID)
		require.NotNil(t, ev.Score)
		assert.Equal(t, int64(3), *ev.Score)
		assert.False(t, ev.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("event not published")
	}
}
