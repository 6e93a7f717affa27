// Package runtime wires mutations to the broadcast layer. The Notifier
// abstraction has three interchangeable implementations selected by
// configuration: an in-process channel for the single-process deployment, a
// Redis pub/sub feed for multi-process deployments, and an adapter over the
// Badger store's own change subscription.
package runtime

import (
	"context"
	"log/slog"

	"rolling-paper/contract"
)

// LocalNotifier is the single-process implementation: Publish feeds the
// change straight into an in-process channel consumed by the fanout worker.
// The channel is lossy under pressure; consumers re-read the full list on
// every change, so a dropped notification only delays the next push.
type LocalNotifier struct {
	changes chan contract.Change
	log     *slog.Logger
}

func NewLocalNotifier(bufferSize int, log *slog.Logger) *LocalNotifier {
	return &LocalNotifier{changes: make(chan contract.Change, bufferSize), log: log}
}

func (n *LocalNotifier) Publish(_ context.Context, c contract.Change) {
	select {
	case n.changes <- c:
	default:
		n.log.Warn("Change notification dropped, buffer full", "op", c.Op, "id", c.ID)
	}
}

func (n *LocalNotifier) Changes() <-chan contract.Change {
	return n.changes
}

func (n *LocalNotifier) Close() error {
	return nil
}

// StoreWatcher exposes a store-level change feed, as the Badger backend
// does.
type StoreWatcher interface {
	Watch(ctx context.Context, emit func(contract.Change)) error
}

// StoreNotifier derives the change feed from the store itself. Publish is a
// no-op: the write that just happened will surface through the store's
// subscription, which also covers writes made by other processes sharing
// the database.
type StoreNotifier struct {
	changes chan contract.Change
	log     *slog.Logger
}

func NewStoreNotifier(ctx context.Context, watcher StoreWatcher, bufferSize int, log *slog.Logger) *StoreNotifier {
	n := &StoreNotifier{changes: make(chan contract.Change, bufferSize), log: log}
	go func() {
		if err := watcher.Watch(ctx, n.emit); err != nil {
			log.Error("Store change feed terminated", "error", err)
		}
	}()
	return n
}

func (n *StoreNotifier) emit(c contract.Change) {
	select {
	case n.changes <- c:
	default:
		n.log.Warn("Change notification dropped, buffer full", "op", c.Op, "id", c.ID)
	}
}

func (n *StoreNotifier) Publish(context.Context, contract.Change) {}

func (n *StoreNotifier) Changes() <-chan contract.Change {
	return n.changes
}

func (n *StoreNotifier) Close() error {
	return nil
}

var _ contract.Notifier = (*LocalNotifier)(nil)
var _ contract.Notifier = (*StoreNotifier)(nil)
