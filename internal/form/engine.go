// Package form drives multi-step chat forms. It owns the rules every flow
// shares: cancel interception, rollback on rejected input and clean-up once a
// terminal state is reached.
package form

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nuxo/internal/log"
	"nuxo/internal/session"
)

const (
	msgCancelled     = "❌ Operação cancelada."
	msgUnexpectedErr = "⚠️ Algo deu errado. Tente novamente mais tarde."
)

type Engine struct {
	store  *session.Store
	flows  map[session.Kind]Flow
	logger *log.Logger
}

func NewEngine(store *session.Store, logger *log.Logger, flows ...Flow) *Engine {
	e := &Engine{
		store:  store,
		flows:  make(map[session.Kind]Flow, len(flows)),
		logger: logger.WithComponent(log.ComponentForm),
	}
	for _, f := range flows {
		e.flows[f.Kind()] = f
	}
	return e
}

// Result is the outcome of routing one event.
type Result struct {
	Responses []Response
	// Handled is false when the user has no form in progress.
	Handled bool
	State   string
}

// Start begins kind for the sender, discarding any form already in progress.
func (e *Engine) Start(ctx context.Context, kind session.Kind, ev Event) (Result, error) {
	flow, ok := e.flows[kind]
	if !ok {
		return Result{}, fmt.Errorf("unknown flow %q", kind)
	}

	h := e.store.Acquire(ev.Sender.ExternalID)
	defer h.Release()

	if prev := h.Get(); prev != nil {
		e.logger.DebugContext(ctx, "Replacing form in progress",
			log.FieldChatID, ev.Sender.ExternalID, log.FieldFlow, string(prev.Flow), log.FieldState, prev.State)
	}
	fc := h.Start(kind)
	tr, err := flow.Begin(ctx, fc, ev)
	if err != nil {
		h.Clear()
		return Result{}, fmt.Errorf("begin %s: %w", kind, err)
	}
	return e.commit(ctx, h, fc, ev, "", tr), nil
}

// Handle routes ev into the sender's form in progress, if any.
func (e *Engine) Handle(ctx context.Context, ev Event) Result {
	h := e.store.Acquire(ev.Sender.ExternalID)
	defer h.Release()

	current := h.Get()
	if current == nil {
		return Result{}
	}

	fields := log.NewFields().
		WithChat(ev.Sender.ExternalID).
		WithStep(string(current.Flow), current.State, ev.Kind.String())

	if ev.IsCancel() {
		h.Clear()
		e.logger.InfoContext(ctx, "Form cancelled", fields.ToSlice()...)
		return Result{Responses: []Response{Say(msgCancelled)}, Handled: true, State: StateCancelled}
	}

	flow, ok := e.flows[current.Flow]
	if !ok {
		h.Clear()
		e.logger.ErrorContext(ctx, "Form references unknown flow", fields.ToSlice()...)
		return Result{Responses: []Response{Say(msgUnexpectedErr)}, Handled: true, State: StateFailed}
	}

	working := current.Clone()
	tr, err := flow.Step(ctx, working, ev)
	if err != nil {
		if rej, ok := AsRejection(err); ok {
			// current is left untouched in the store.
			e.logger.DebugContext(ctx, "Input rejected", fields.WithError(rej.Reason).ToSlice()...)
			return Result{Responses: rej.Prompt, Handled: true, State: current.State}
		}
		h.Clear()
		e.logger.ErrorContext(ctx, "Form step failed", fields.WithError(err).ToSlice()...)
		return Result{Responses: []Response{Say(msgUnexpectedErr)}, Handled: true, State: StateFailed}
	}
	return e.commit(ctx, h, working, ev, current.State, tr)
}

func (e *Engine) commit(ctx context.Context, h *session.Handle, fc *session.FormContext, ev Event, from string, tr Transition) Result {
	level := slog.LevelDebug
	if IsTerminal(tr.Next) {
		h.Clear()
		level = slog.LevelInfo
		if tr.Next == StateFailed {
			level = slog.LevelWarn
		}
	} else {
		fc.State = tr.Next
		fc.UpdatedAt = time.Now()
		h.Put(fc)
	}

	fields := log.NewFields().
		WithChat(ev.Sender.ExternalID).
		WithStep(string(fc.Flow), from, ev.Kind.String())
	fields[log.FieldNextState] = tr.Next
	e.logger.LogContext(ctx, level, "Form step", fields.ToSlice()...)

	return Result{Responses: tr.Responses, Handled: true, State: tr.Next}
}
