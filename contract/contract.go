//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"rolling-paper/domain"
)

type ChangeOp string

const (
	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
	OpLike   ChangeOp = "like"
)

// Change is the notification emitted after every successful store mutation.
// Consumers never treat it as a delta: they re-read the authoritative list.
type Change struct {
	Op ChangeOp
	ID string
}

// MessageStore is the durable record of messages. Two implementations exist:
// an append-only line-JSON log and a BadgerDB table.
type MessageStore interface {
	// Append persists a new message. Fails with ErrValidation when a
	// required field is empty and ErrDuplicateID when the id exists.
	Append(m domain.Message) error
	// ListAll returns every message, newest first by timestamp.
	ListAll() ([]domain.Message, error)
	GetByID(id string) (domain.Message, error)
	// Replace atomically applies mutate to the stored message. The id,
	// group and timestamp survive mutation unchanged.
	Replace(id string, mutate func(*domain.Message) error) (domain.Message, error)
	Remove(id string) error
	// GroupsPresent lists the distinct groups referenced by stored messages.
	GroupsPresent() ([]domain.Group, error)
	Close() error
}

// ListCache is an optional fast path in front of the store. It only ever
// holds sanitized values and a miss must always fall through to the store.
type ListCache interface {
	GetList(ctx context.Context) ([]domain.Message, bool)
	PutList(ctx context.Context, messages []domain.Message)
	GetByID(ctx context.Context, id string) (domain.Message, bool)
	PutByID(ctx context.Context, m domain.Message)
	// Invalidate drops the full-list entry and the given id's entry.
	Invalidate(ctx context.Context, id string)
}

// Notifier decouples mutations from the broadcast layer. Publish may be a
// no-op when the underlying store emits its own change feed.
type Notifier interface {
	Publish(ctx context.Context, c Change)
	Changes() <-chan Change
	Close() error
}

// ChangeSink reacts to a completed mutation (transcript rewrite, search
// index update). Failures are logged, never propagated to the caller: every
// sink output is regenerable from the store.
type ChangeSink interface {
	Consume(ctx context.Context, c Change) error
}

// Worker doesn't protect itself, the supervisor does.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// used for logging and supervision without forcing a naming method on the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
