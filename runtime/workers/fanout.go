package workers

import (
	"context"
	"encoding/json"
	"log/slog"

	"rolling-paper/contract"
	"rolling-paper/domain"
)

// ListSource yields the current sanitized message list.
type ListSource interface {
	List(ctx context.Context) ([]domain.Message, error)
}

// FanoutWorker consumes the change feed and pushes the current full list to
// every subscribed channel. It always re-reads the authoritative list
// instead of forwarding a delta, which trades bandwidth for the absence of
// any delta-ordering bug.
type FanoutWorker struct {
	log         *slog.Logger
	notifier    contract.Notifier
	source      ListSource
	broadcaster *Broadcaster
}

func NewFanoutWorker(log *slog.Logger, notifier contract.Notifier, source ListSource, broadcaster *Broadcaster) *FanoutWorker {
	return &FanoutWorker{log: log, notifier: notifier, source: source, broadcaster: broadcaster}
}

func (w *FanoutWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping broadcast fanout")
			return nil
		case change, ok := <-w.notifier.Changes():
			if !ok {
				return nil
			}
			w.push(ctx, change)
		}
	}
}

func (w *FanoutWorker) push(ctx context.Context, change contract.Change) {
	messages, err := w.source.List(ctx)
	if err != nil {
		w.log.Error("Failed to fetch list for broadcast", "op", change.Op, "id", change.ID, "error", err)
		return
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		w.log.Error("Failed to marshal broadcast payload", "error", err)
		return
	}
	w.broadcaster.Broadcast(payload)
}
