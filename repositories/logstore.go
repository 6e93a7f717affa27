package repositories

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samber/lo"

	"rolling-paper/domain"
	"rolling-paper/errors"
)

// LogStore persists messages in an append-only line-delimited JSON file.
// Appends are a single O_APPEND write. Structural mutations (edit, delete)
// rewrite the whole file through a temp file and rename, so readers never
// observe a partially written log. The read-modify-write cycle is serialized
// by a process-local mutex; sharing the file between processes is not
// supported, multi-process deployments use the Badger backend.
type LogStore struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
}

func NewLogStore(path string, log *slog.Logger) (*LogStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening message log: %w", err)
	}
	_ = f.Close()
	return &LogStore{path: path, log: log}, nil
}

func (s *LogStore) Append(m domain.Message) error {
	if err := validateForAppend(m); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	messages, err := s.readAll()
	if err != nil {
		return err
	}
	if lo.ContainsBy(messages, func(existing domain.Message) bool { return existing.ID == m.ID }) {
		return fmt.Errorf("%w: %s", errors.ErrDuplicateID, m.ID)
	}

	line, err := json.Marshal(m)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err = f.Write(append(line, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

func (s *LogStore) ListAll() ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages, err := s.readAll()
	if err != nil {
		return nil, err
	}
	sortNewestFirst(messages)
	return messages, nil
}

func (s *LogStore) GetByID(id string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages, err := s.readAll()
	if err != nil {
		return domain.Message{}, err
	}
	m, found := lo.Find(messages, func(m domain.Message) bool { return m.ID == id })
	if !found {
		return domain.Message{}, fmt.Errorf("%w: %s", errors.ErrNotFound, id)
	}
	return m, nil
}

func (s *LogStore) Replace(id string, mutate func(*domain.Message) error) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages, err := s.readAll()
	if err != nil {
		return domain.Message{}, err
	}
	idx := -1
	for i := range messages {
		if messages[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return domain.Message{}, fmt.Errorf("%w: %s", errors.ErrNotFound, id)
	}

	mutated := messages[idx]
	if err = mutate(&mutated); err != nil {
		return domain.Message{}, err
	}
	// Identity fields are immutable whatever the mutator did.
	mutated.ID = messages[idx].ID
	mutated.Group = messages[idx].Group
	mutated.Timestamp = messages[idx].Timestamp
	messages[idx] = mutated

	if err = s.rewrite(messages); err != nil {
		return domain.Message{}, err
	}
	return mutated, nil
}

func (s *LogStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages, err := s.readAll()
	if err != nil {
		return err
	}
	remaining := lo.Filter(messages, func(m domain.Message, _ int) bool { return m.ID != id })
	if len(remaining) == len(messages) {
		return fmt.Errorf("%w: %s", errors.ErrNotFound, id)
	}
	return s.rewrite(remaining)
}

func (s *LogStore) GroupsPresent() ([]domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages, err := s.readAll()
	if err != nil {
		return nil, err
	}
	return lo.Uniq(lo.Map(messages, func(m domain.Message, _ int) domain.Group { return m.Group })), nil
}

func (s *LogStore) Close() error {
	return nil
}

// readAll parses the full log. Callers hold the mutex.
func (s *LogStore) readAll() ([]domain.Message, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var messages []domain.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var m domain.Message
		if err = json.Unmarshal(line, &m); err != nil {
			s.log.Error("Skipping corrupt log line", "error", err)
			continue
		}
		messages = append(messages, m)
	}
	return messages, scanner.Err()
}

// rewrite atomically replaces the log with the given set. Callers hold the
// mutex.
func (s *LogStore) rewrite(messages []domain.Message) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "messages-*.jsonl")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, m := range messages {
		line, err := json.Marshal(m)
		if err != nil {
			_ = tmp.Close()
			return err
		}
		if _, err = w.Write(append(line, '\n')); err != nil {
			_ = tmp.Close()
			return err
		}
	}
	if err = w.Flush(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func sortNewestFirst(messages []domain.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp > messages[j].Timestamp
	})
}

func validateForAppend(m domain.Message) error {
	switch {
	case m.ID == "":
		return fmt.Errorf("%w: missing id", errors.ErrValidation)
	case m.Author == "":
		return fmt.Errorf("%w: missing author", errors.ErrValidation)
	case m.Group == "":
		return fmt.Errorf("%w: missing group", errors.ErrValidation)
	case m.Content == "":
		return fmt.Errorf("%w: missing content", errors.ErrValidation)
	case m.IsPrivate && m.PasswordHash == "":
		return fmt.Errorf("%w: private message without password", errors.ErrValidation)
	}
	return nil
}
