// Package domain contains core concepts of the rolling paper board.
// This file defines the Message entity and its visibility rules.
package domain

import "strings"

// Group identifies one of the shared boards. The valid set is fixed at
// startup through configuration.
type Group string

// Message is the sole domain entity. The persisted log or table holding
// messages is the single source of truth; transcripts and cache entries are
// derived views.
//
// A message without a password hash can never be edited or deleted, only
// liked. A private message always carries a password hash.
type Message struct {
	ID           string `json:"id"`
	Author       string `json:"author"`
	Group        Group  `json:"group"`
	Content      string `json:"content"`
	Timestamp    int64  `json:"timestamp"` // milliseconds since epoch
	Likes        int    `json:"likes"`
	PasswordHash string `json:"passwordHash,omitempty"`
	IsPrivate    bool   `json:"isPrivate,omitempty"`
}

// Sanitized returns a copy safe to hand to any caller: the password hash is
// stripped and private content is blanked.
func (m Message) Sanitized() Message {
	m.PasswordHash = ""
	if m.IsPrivate {
		m.Content = ""
	}
	return m
}

// Unlocked returns a copy for a caller who proved password knowledge in the
// same request: the hash is stripped but private content stays readable.
func (m Message) Unlocked() Message {
	m.PasswordHash = ""
	return m
}

// Editable reports whether edit/delete operations are permitted at all.
func (m Message) Editable() bool {
	return m.PasswordHash != ""
}

// CreateRequest is a validated client submission. The id is optional, the
// server assigns one when absent. Timestamp and likes are always
// server-assigned.
type CreateRequest struct {
	ID        string `json:"id" validate:"omitempty,max=64"`
	Author    string `json:"author" validate:"required,max=100"`
	Group     string `json:"group" validate:"required,max=50"`
	Content   string `json:"content" validate:"required,max=500"`
	Password  string `json:"password" validate:"omitempty,max=72"`
	IsPrivate bool   `json:"isPrivate"`
}

// UpdateRequest overwrites only the supplied fields. Group and timestamp are
// immutable after creation.
type UpdateRequest struct {
	Password string  `json:"password" validate:"required,max=72"`
	Author   *string `json:"author" validate:"omitempty,max=100"`
	Content  *string `json:"content" validate:"omitempty,max=500"`
}

// GroupSet is the configured enumeration of valid boards.
type GroupSet struct {
	members map[Group]struct{}
	names   []Group
}

// NewGroupSet parses a comma separated list such as "ESD,FDM".
func NewGroupSet(list string) GroupSet {
	set := GroupSet{members: make(map[Group]struct{})}
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		g := Group(name)
		if _, ok := set.members[g]; ok {
			continue
		}
		set.members[g] = struct{}{}
		set.names = append(set.names, g)
	}
	return set
}

func (s GroupSet) Contains(g Group) bool {
	_, ok := s.members[g]
	return ok
}

func (s GroupSet) Names() []Group {
	return s.names
}
