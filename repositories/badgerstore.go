package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	badgerpb "github.com/dgraph-io/badger/v4/pb"
	"github.com/samber/lo"

	"rolling-paper/contract"
	"rolling-paper/domain"
	"rolling-paper/errors"
)

const (
	msgPrefix = "msg:"
	idPrefix  = "id:"
)

// BadgerStore persists messages in BadgerDB. The primary key is formatted as
// "msg:{timestamp_padded}:{id}" to:
//  1. Ensure chronological sorting using 13-digit zero padding of the
//     millisecond timestamp (lexicographical order).
//  2. Keep the message id as a collision disconnector if two messages land
//     on the same millisecond.
//
// A secondary "id:{id}" key maps each id to its primary key so point lookups
// and targeted updates stay single-transaction. Edits and deletes therefore
// never rewrite more than one message, which is the conflict-free
// replacement for a whole-file rewrite.
type BadgerStore struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBadgerStore(db *badger.DB, log *slog.Logger) *BadgerStore {
	return &BadgerStore{db: db, log: log}
}

func msgKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("%s%013d:%s", msgPrefix, m.Timestamp, m.ID))
}

func idKey(id string) []byte {
	return []byte(idPrefix + id)
}

func (s *BadgerStore) Append(m domain.Message) error {
	if err := validateForAppend(m); err != nil {
		return err
	}
	value, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(idKey(m.ID)); err == nil {
			return fmt.Errorf("%w: %s", errors.ErrDuplicateID, m.ID)
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		key := msgKey(m)
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(idKey(m.ID), key)
	})
}

// ListAll walks the message prefix in reverse. Thanks to the padded
// timestamp in the key, the iteration order is newest first without any
// in-memory sort.
func (s *BadgerStore) ListAll() ([]domain.Message, error) {
	var messages []domain.Message
	err := s.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(msgPrefix)
		// Seek past the last possible message key, then walk backwards.
		seekKey := append([]byte(msgPrefix), 0xff)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var m domain.Message
				if err := json.Unmarshal(value, &m); err != nil {
					return err
				}
				messages = append(messages, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *BadgerStore) GetByID(id string) (domain.Message, error) {
	var m domain.Message
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		m, err = getMessage(txn, id)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

// Replace applies mutate inside a single Badger transaction, so concurrent
// mutations of the same message serialize on the database rather than racing
// on a shared file.
func (s *BadgerStore) Replace(id string, mutate func(*domain.Message) error) (domain.Message, error) {
	var mutated domain.Message
	err := s.db.Update(func(txn *badger.Txn) error {
		current, err := getMessage(txn, id)
		if err != nil {
			return err
		}
		mutated = current
		if err = mutate(&mutated); err != nil {
			return err
		}
		// Identity fields are immutable whatever the mutator did. The
		// timestamp staying put also keeps the primary key stable.
		mutated.ID = current.ID
		mutated.Group = current.Group
		mutated.Timestamp = current.Timestamp

		value, err := json.Marshal(mutated)
		if err != nil {
			return err
		}
		return txn.Set(msgKey(mutated), value)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return mutated, nil
}

func (s *BadgerStore) Remove(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		m, err := getMessage(txn, id)
		if err != nil {
			return err
		}
		if err = txn.Delete(msgKey(m)); err != nil {
			return err
		}
		return txn.Delete(idKey(id))
	})
}

func (s *BadgerStore) GroupsPresent() ([]domain.Group, error) {
	messages, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	return lo.Uniq(lo.Map(messages, func(m domain.Message, _ int) domain.Group { return m.Group })), nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Watch adapts Badger's key subscription into the store change feed. It
// blocks until ctx is canceled. Deletes arrive with an empty value; the
// distinction only matters for logging since every consumer re-reads the
// full list anyway.
func (s *BadgerStore) Watch(ctx context.Context, emit func(contract.Change)) error {
	err := s.db.Subscribe(ctx, func(kvs *badger.KVList) error {
		for _, kv := range kvs.Kv {
			change := contract.Change{Op: contract.OpUpdate, ID: idFromKey(kv.Key)}
			if len(kv.Value) == 0 {
				change.Op = contract.OpDelete
			}
			emit(change)
		}
		return nil
	}, []badgerpb.Match{{Prefix: []byte(msgPrefix)}})
	if err == context.Canceled {
		return nil
	}
	return err
}

func getMessage(txn *badger.Txn, id string) (domain.Message, error) {
	item, err := txn.Get(idKey(id))
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, fmt.Errorf("%w: %s", errors.ErrNotFound, id)
	} else if err != nil {
		return domain.Message{}, err
	}
	var primaryKey []byte
	if err = item.Value(func(v []byte) error {
		primaryKey = append([]byte(nil), v...)
		return nil
	}); err != nil {
		return domain.Message{}, err
	}

	item, err = txn.Get(primaryKey)
	if err == badger.ErrKeyNotFound {
		// Index key without a message key means a torn write, surface loudly.
		return domain.Message{}, fmt.Errorf("dangling index for message %s", id)
	} else if err != nil {
		return domain.Message{}, err
	}
	var m domain.Message
	err = item.Value(func(value []byte) error {
		return json.Unmarshal(value, &m)
	})
	return m, err
}

// idFromKey extracts the message id from "msg:{timestamp}:{id}".
func idFromKey(key []byte) string {
	parts := strings.SplitN(string(key), ":", 3)
	if len(parts) != 3 {
		return ""
	}
	return parts[2]
}
