// Package memory is an in-process Ledger used by default and in tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"nuxo/internal/core"
	"nuxo/internal/query"
	"nuxo/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	users    map[string]core.User
	items    []core.Expense
	nextUser int64
	nextID   int64
	now      func() time.Time
}

func New() *Store {
	return &Store{
		users: make(map[string]core.User),
		now:   time.Now,
	}
}

func (s *Store) UpsertUser(_ context.Context, externalID, displayName string) (core.User, error) {
	u := core.User{ExternalChatID: strings.TrimSpace(externalID), DisplayName: displayName}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.ExternalChatID]; ok {
		return existing, nil
	}
	s.nextUser++
	u.ID = s.nextUser
	s.users[u.ExternalChatID] = u
	return u, nil
}

func (s *Store) InsertExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasUser(e.UserID) {
		return core.Expense{}, fmt.Errorf("user %d: %w", e.UserID, storage.ErrNotFound)
	}
	s.nextID++
	e.ID = s.nextID
	e.CreatedAt = s.now().UTC()
	s.items = append(s.items, e)
	return e, nil
}

func (s *Store) QueryExpenses(_ context.Context, userID int64, spec core.FilterSpec) ([]core.Expense, error) {
	p, err := query.Build(userID, spec)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	rows := append([]core.Expense(nil), s.items...)
	s.mu.Unlock()
	return query.Apply(p, rows), nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.items {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) hasUser(id int64) bool {
	for _, u := range s.users {
		if u.ID == id {
			return true
		}
	}
	return false
}
