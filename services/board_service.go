package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"rolling-paper/auth"
	"rolling-paper/contract"
	"rolling-paper/domain"
	"rolling-paper/errors"
	"rolling-paper/moderation"
	"rolling-paper/projection"
	"rolling-paper/search"
)

// BoardService validates and applies every board mutation. The sequence for
// a successful mutation is fixed: store write, cache invalidation, change
// sinks (transcripts, search index), change notification. Results never
// carry a password hash and private content is blanked unless the caller
// proved password knowledge in the same request.
type BoardService struct {
	store     contract.MessageStore
	cache     contract.ListCache
	notifier  contract.Notifier
	sinks     []contract.ChangeSink
	moderator *moderation.Moderator
	index     *search.Index
	groups    domain.GroupSet
	validate  *validator.Validate
	log       *slog.Logger
}

func NewBoardService(
	store contract.MessageStore,
	cache contract.ListCache,
	notifier contract.Notifier,
	groups domain.GroupSet,
	log *slog.Logger,
) *BoardService {
	return &BoardService{
		store:    store,
		cache:    cache,
		notifier: notifier,
		groups:   groups,
		validate: validator.New(),
		log:      log,
	}
}

// AddSinks registers change consumers invoked synchronously after each
// successful mutation.
func (s *BoardService) AddSinks(sinks ...contract.ChangeSink) *BoardService {
	s.sinks = append(s.sinks, sinks...)
	return s
}

func (s *BoardService) WithModerator(m *moderation.Moderator) *BoardService {
	s.moderator = m
	return s
}

func (s *BoardService) WithIndex(index *search.Index) *BoardService {
	s.index = index
	return s
}

// Create stores a new message. The id is client-supplied or generated, the
// timestamp and like counter are always server-assigned. A private message
// without a password is rejected: it could never be read again.
func (s *BoardService) Create(ctx context.Context, req domain.CreateRequest) (domain.Message, error) {
	if err := s.validate.Struct(req); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	group := domain.Group(req.Group)
	if !s.groups.Contains(group) {
		return domain.Message{}, fmt.Errorf("%w: unknown group %q", errors.ErrValidation, req.Group)
	}
	if req.IsPrivate && req.Password == "" {
		return domain.Message{}, fmt.Errorf("%w: private message requires a password", errors.ErrValidation)
	}

	content := req.Content
	if s.moderator != nil && s.moderator.Enabled() {
		content = s.moderator.Censor(content)
	}

	m := domain.Message{
		ID:        req.ID,
		Author:    req.Author,
		Group:     group,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
		IsPrivate: req.IsPrivate,
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return domain.Message{}, fmt.Errorf("hashing failed: %w", err)
		}
		m.PasswordHash = hash
	}

	if err := s.store.Append(m); err != nil {
		return domain.Message{}, err
	}
	s.afterChange(ctx, contract.OpCreate, m.ID)
	return m.Sanitized(), nil
}

// List returns every message, newest first, sanitized. Served from cache
// when fresh; the cache only ever holds sanitized values.
func (s *BoardService) List(ctx context.Context) ([]domain.Message, error) {
	if cached, ok := s.cache.GetList(ctx); ok {
		return cached, nil
	}
	messages, err := s.store.ListAll()
	if err != nil {
		return nil, err
	}
	sanitized := lo.Map(messages, func(m domain.Message, _ int) domain.Message { return m.Sanitized() })
	s.cache.PutList(ctx, sanitized)
	return sanitized, nil
}

func (s *BoardService) Get(ctx context.Context, id string) (domain.Message, error) {
	if cached, ok := s.cache.GetByID(ctx, id); ok {
		return cached, nil
	}
	m, err := s.store.GetByID(id)
	if err != nil {
		return domain.Message{}, err
	}
	sanitized := m.Sanitized()
	s.cache.PutByID(ctx, sanitized)
	return sanitized, nil
}

// Like increments the like counter. Open to anyone, additive on purpose.
func (s *BoardService) Like(ctx context.Context, id string) (domain.Message, error) {
	mutated, err := s.store.Replace(id, func(m *domain.Message) error {
		m.Likes++
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	s.afterChange(ctx, contract.OpLike, id)
	return mutated.Sanitized(), nil
}

// VerifyPassword is an open read-only check used by clients before showing
// an edit dialog.
func (s *BoardService) VerifyPassword(_ context.Context, id, password string) (bool, error) {
	m, err := s.store.GetByID(id)
	if err != nil {
		return false, err
	}
	if !m.Editable() {
		return false, fmt.Errorf("%w: message has no password", errors.ErrForbidden)
	}
	return auth.ComparePassword(password, m.PasswordHash)
}

// PrivateContent reveals the content of a private message to a caller who
// proves password knowledge. Non-private messages return their content
// without any check.
func (s *BoardService) PrivateContent(_ context.Context, id, password string) (string, error) {
	m, err := s.store.GetByID(id)
	if err != nil {
		return "", err
	}
	if !m.IsPrivate {
		return m.Content, nil
	}
	if err = s.authorize(m, password); err != nil {
		return "", err
	}
	return m.Content, nil
}

// Update overwrites the supplied fields. Group and timestamp are immutable,
// the store enforces that on top of this method never touching them.
func (s *BoardService) Update(ctx context.Context, id string, req domain.UpdateRequest) (domain.Message, error) {
	if err := s.validate.Struct(req); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if req.Author == nil && req.Content == nil {
		return domain.Message{}, fmt.Errorf("%w: nothing to update", errors.ErrValidation)
	}

	current, err := s.store.GetByID(id)
	if err != nil {
		return domain.Message{}, err
	}
	if err = s.authorize(current, req.Password); err != nil {
		return domain.Message{}, err
	}

	mutated, err := s.store.Replace(id, func(m *domain.Message) error {
		if req.Author != nil {
			m.Author = *req.Author
		}
		if req.Content != nil {
			content := *req.Content
			if s.moderator != nil && s.moderator.Enabled() {
				content = s.moderator.Censor(content)
			}
			m.Content = content
		}
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	s.afterChange(ctx, contract.OpUpdate, id)
	// The caller just proved password knowledge, so a private message keeps
	// its content in the response; only the hash is stripped.
	return mutated.Unlocked(), nil
}

// Delete removes a message permanently. Hard delete, no tombstone.
func (s *BoardService) Delete(ctx context.Context, id, password string) error {
	current, err := s.store.GetByID(id)
	if err != nil {
		return err
	}
	if err = s.authorize(current, password); err != nil {
		return err
	}
	if err = s.store.Remove(id); err != nil {
		return err
	}
	s.afterChange(ctx, contract.OpDelete, id)
	return nil
}

// Transcripts projects the current store state into per-group transcripts.
// Always computed from a fresh read, never from the on-disk files.
func (s *BoardService) Transcripts(_ context.Context) (map[domain.Group]string, error) {
	messages, err := s.store.ListAll()
	if err != nil {
		return nil, err
	}
	return projection.Transcripts(messages), nil
}

// Search resolves index hits against the store so results always reflect
// current state; ids lingering in the index after a delete are skipped.
func (s *BoardService) Search(ctx context.Context, query string, limit int) ([]domain.Message, error) {
	if s.index == nil {
		return nil, fmt.Errorf("%w: search is not enabled", errors.ErrNotFound)
	}
	ids, err := s.index.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	results := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		m, err := s.store.GetByID(id)
		if err != nil {
			continue
		}
		results = append(results, m.Sanitized())
	}
	return results, nil
}

// authorize gates edit/delete/private-read. A message without a hash is
// permanently locked (Forbidden), a wrong password is Unauthorized.
func (s *BoardService) authorize(m domain.Message, password string) error {
	if !m.Editable() {
		return fmt.Errorf("%w: message has no password", errors.ErrForbidden)
	}
	match, err := auth.ComparePassword(password, m.PasswordHash)
	if err != nil {
		return err
	}
	if !match {
		return errors.ErrUnauthorized
	}
	return nil
}

func (s *BoardService) afterChange(ctx context.Context, op contract.ChangeOp, id string) {
	s.cache.Invalidate(ctx, id)
	change := contract.Change{Op: op, ID: id}
	for _, sink := range s.sinks {
		if err := sink.Consume(ctx, change); err != nil {
			s.log.Error("Change sink failed", "op", op, "id", id, "error", err)
		}
	}
	s.notifier.Publish(ctx, change)
}
