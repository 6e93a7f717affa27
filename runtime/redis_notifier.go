package runtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"rolling-paper/contract"
)

const changeChannel = "board:changes"

// RedisNotifier carries change notifications over Redis pub/sub so a writer
// process and any number of broadcaster processes can share one feed.
type RedisNotifier struct {
	rdb     *redis.Client
	pubsub  *redis.PubSub
	changes chan contract.Change
	log     *slog.Logger
}

func NewRedisNotifier(ctx context.Context, rdb *redis.Client, bufferSize int, log *slog.Logger) *RedisNotifier {
	n := &RedisNotifier{
		rdb:     rdb,
		pubsub:  rdb.Subscribe(ctx, changeChannel),
		changes: make(chan contract.Change, bufferSize),
		log:     log,
	}
	go n.receive()
	return n
}

func (n *RedisNotifier) Publish(ctx context.Context, c contract.Change) {
	payload, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err = n.rdb.Publish(ctx, changeChannel, payload).Err(); err != nil {
		n.log.Warn("Failed to publish change notification", "op", c.Op, "id", c.ID, "error", err)
	}
}

// receive decodes pub/sub payloads into the typed change channel. It ends
// when the subscription is closed.
func (n *RedisNotifier) receive() {
	for msg := range n.pubsub.Channel() {
		var c contract.Change
		if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
			n.log.Warn("Dropping malformed change notification", "payload", msg.Payload)
			continue
		}
		select {
		case n.changes <- c:
		default:
			n.log.Warn("Change notification dropped, buffer full", "op", c.Op, "id", c.ID)
		}
	}
	close(n.changes)
}

func (n *RedisNotifier) Changes() <-chan contract.Change {
	return n.changes
}

func (n *RedisNotifier) Close() error {
	return n.pubsub.Close()
}

var _ contract.Notifier = (*RedisNotifier)(nil)
