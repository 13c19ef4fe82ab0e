package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"bytehub/internal/util"
)

// Event is an engagement event published for fan-out to the target user.
type Event struct {
	Kind     string `json:"kind"`
	UserID   string `json:"userId"`
	ActorID  string `json:"actorId"`
	TargetID string `json:"targetId"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// Notifier publishes engagement events to a Redis Stream and runs consumer
// goroutines that hand each event to a delivery handler. Delivery is
// best-effort: a failing handler is logged and the event acked.
type Notifier struct {
	client       *redis.Client
	stream       string
	group        string
	consumerBase string
	block        time.Duration
	claimIdle    time.Duration
	maxLen       int64
	readCount    int64
	once         sync.Once
}

// Config tunes the notifier stream; zero values get defaults.
type Config struct {
	Stream    string
	Group     string
	Consumer  string
	Block     time.Duration
	ClaimIdle time.Duration
	MaxLen    int64
	ReadCount int64
}

// NewNotifier builds a notifier over an existing Redis client.
func NewNotifier(client *redis.Client, cfg Config) (*Notifier, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = "bytehub:notifications"
	}
	group := strings.TrimSpace(cfg.Group)
	if group == "" {
		group = "default"
	}
	consumer := strings.TrimSpace(cfg.Consumer)
	if consumer == "" {
		consumer = util.NewID()
	}
	block := cfg.Block
	if block <= 0 {
		block = 5 * time.Second
	}
	claimIdle := cfg.ClaimIdle
	if claimIdle <= 0 {
		claimIdle = 30 * time.Second
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	readCount := cfg.ReadCount
	if readCount <= 0 {
		readCount = 10
	}
	return &Notifier{
		client:       client,
		stream:       stream,
		group:        group,
		consumerBase: consumer,
		block:        block,
		claimIdle:    claimIdle,
		maxLen:       maxLen,
		readCount:    readCount,
	}, nil
}

// Enqueue publishes one event to the stream.
func (n *Notifier) Enqueue(ctx context.Context, ev Event) error {
	if strings.TrimSpace(ev.UserID) == "" || strings.TrimSpace(ev.Kind) == "" {
		return errors.New("event kind and userId required")
	}
	return n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: n.maxLen,
		Approx: true,
		Values: map[string]any{
			"kind":      ev.Kind,
			"user_id":   ev.UserID,
			"actor_id":  ev.ActorID,
			"target_id": ev.TargetID,
			"title":     ev.Title,
			"message":   ev.Message,
		},
	}).Err()
}

// Start launches consumer goroutines until ctx is cancelled.
func (n *Notifier) Start(ctx context.Context, concurrency int, handler func(context.Context, Event) error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	n.ensureGroup(ctx)
	for i := 0; i < concurrency; i++ {
		consumer := fmt.Sprintf("%s-%d", n.consumerBase, i)
		go n.consumeLoop(ctx, consumer, handler)
	}
}

func (n *Notifier) ensureGroup(ctx context.Context) {
	n.once.Do(func() {
		err := n.client.XGroupCreateMkStream(ctx, n.stream, n.group, "$").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			// best-effort; errors will surface on consume
		}
	})
}

func (n *Notifier) consumeLoop(ctx context.Context, consumer string, handler func(context.Context, Event) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if msgs, err := n.claimPending(ctx, consumer); err == nil {
			for _, msg := range msgs {
				n.handleMessage(ctx, msg, handler)
			}
		}

		streams, err := n.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    n.group,
			Consumer: consumer,
			Streams:  []string{n.stream, ">"},
			Count:    n.readCount,
			Block:    n.block,
		}).Result()
		if err != nil {
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				n.handleMessage(ctx, msg, handler)
			}
		}
	}
}

func (n *Notifier) claimPending(ctx context.Context, consumer string) ([]redis.XMessage, error) {
	res, _, err := n.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   n.stream,
		Group:    n.group,
		Consumer: consumer,
		MinIdle:  n.claimIdle,
		Start:    "0-0",
		Count:    n.readCount,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (n *Notifier) handleMessage(ctx context.Context, msg redis.XMessage, handler func(context.Context, Event) error) {
	ev := decodeEvent(msg)
	if ev.Kind == "" || ev.UserID == "" {
		n.ackAndDel(ctx, msg.ID)
		return
	}
	if err := handler(ctx, ev); err != nil {
		slog.Warn("notification_delivery_failed",
			"kind", ev.Kind,
			"user_id", ev.UserID,
			"error", err.Error(),
		)
	}
	n.ackAndDel(ctx, msg.ID)
}

func (n *Notifier) ackAndDel(ctx context.Context, msgID string) {
	_, _ = n.client.XAck(ctx, n.stream, n.group, msgID).Result()
	_, _ = n.client.XDel(ctx, n.stream, msgID).Result()
}

func decodeEvent(msg redis.XMessage) Event {
	get := func(key string) string {
		v, _ := msg.Values[key].(string)
		return v
	}
	return Event{
		Kind:     get("kind"),
		UserID:   get("user_id"),
		ActorID:  get("actor_id"),
		TargetID: get("target_id"),
		Title:    get("title"),
		Message:  get("message"),
	}
}
