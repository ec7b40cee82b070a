package session

import (
	"maps"
	"time"
)

// Kind names the flow a context belongs to.
type Kind string

// FormContext is the in-progress state of one user's form.
type FormContext struct {
	Flow      Kind
	State     string
	Values    map[string]string
	StartedAt time.Time
	UpdatedAt time.Time
}

func newFormContext(kind Kind, now time.Time) *FormContext {
	return &FormContext{
		Flow:      kind,
		Values:    make(map[string]string),
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so a step can be rolled back.
func (fc *FormContext) Clone() *FormContext {
	if fc == nil {
		return nil
	}
	cp := *fc
	cp.Values = maps.Clone(fc.Values)
	if cp.Values == nil {
		cp.Values = make(map[string]string)
	}
	return &cp
}

func (fc *FormContext) Set(field, value string) {
	if fc.Values == nil {
		fc.Values = make(map[string]string)
	}
	fc.Values[field] = value
}

func (fc *FormContext) Lookup(field string) (string, bool) {
	v, ok := fc.Values[field]
	return v, ok
}

// Value returns the collected value or "" when unset.
func (fc *FormContext) Value(field string) string {
	return fc.Values[field]
}

func (fc *FormContext) Unset(field string) {
	delete(fc.Values, field)
}
