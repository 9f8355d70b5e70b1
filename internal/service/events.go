package service

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/threadboard/pkg/logger"
)

// EventType 看板变更事件
type EventType string

const (
	EventPostCreated  EventType = "post.created"
	EventPostVoted    EventType = "post.voted"
	EventPostUpdated  EventType = "post.updated"
	EventPostDeleted  EventType = "post.deleted"
	EventReplyCreated EventType = "reply.created"
	EventReplyVoted   EventType = "reply.voted"
	EventReplyUpdated EventType = "reply.updated"
	EventReplyDeleted EventType = "reply.deleted"
)

type Event struct {
	Type    EventType `json:"type"`
	PostID  string    `json:"postId"`
	ReplyID string    `json:"replyId,omitempty"`
	ActorID string    `json:"actorId"`
	Score   *int64    `json:"score,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher 事件外发通道（生产环境为 redis pub/sub）
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// EventDispatcher 本地异步队列 + worker 外发事件，失败只记日志
type EventDispatcher struct {
	pub     Publisher
	channel string
	ch      chan Event

	delivered atomic.Int64
	failed    atomic.Int64
}

func NewEventDispatcher(pub Publisher, channel string, queueSize int) *EventDispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &EventDispatcher{pub: pub, channel: channel, ch: make(chan Event, queueSize)}
}

// Start 启动 worker；返回的停止函数会等待队列排空或 ctx 结束
func (d *EventDispatcher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	done := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for {
				select {
				case ev := <-d.ch:
					d.deliver(ev)
				case <-stopCh:
					// 退出前把剩余事件发完
					for {
						select {
						case ev := <-d.ch:
							d.deliver(ev)
						default:
							return
						}
					}
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		for i := 0; i < workers; i++ {
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		delivered, failed := d.Stats()
		logger.Info("event dispatcher stopped", zap.Int64("delivered", delivered), zap.Int64("failed", failed))
		return nil
	}
}

func (d *EventDispatcher) deliver(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		d.failed.Add(1)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.pub.Publish(ctx, d.channel, payload); err != nil {
		d.failed.Add(1)
		logger.Warn("publish event failed", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}
	d.delivered.Add(1)
}

// Enqueue 非阻塞入队，队列满时丢弃
func (d *EventDispatcher) Enqueue(ev Event) {
	if d == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case d.ch <- ev:
	default:
		logger.Warn("event queue full, drop", zap.String("type", string(ev.Type)), zap.String("post", ev.PostID))
	}
}

// Stats 已外发与外发失败的事件数
func (d *EventDispatcher) Stats() (delivered, failed int64) {
	if d == nil {
		return 0, 0
	}
	return d.delivered.Load(), d.failed.Load()
}

// QueueLen 当前队列长度（采样值）。
func (d *EventDispatcher) QueueLen() int {
	if d == nil {
		return 0
	}
	return len(d.ch)
}
