// Package memory is a RowAppender kept in process, for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"nuxo/internal/core"
	"nuxo/internal/sheets"
)

type Sheet struct {
	mu    sync.Mutex
	rows  [][]any
	label func(core.PaymentMethod) string
	fail  error
}

func New(label func(core.PaymentMethod) string) *Sheet {
	return &Sheet{label: label}
}

// FailWith makes every following Append return err; nil restores normal behaviour.
func (s *Sheet) FailWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *Sheet) Append(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	s.rows = append(s.rows, sheets.Row(e, s.label))
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Sheet) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	copy(out, s.rows)
	return out
}
