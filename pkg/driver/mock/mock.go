// Package mock provides a scriptable in-memory session for testing without a device.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/devicelab-dev/actionrunner/pkg/core"
	"github.com/devicelab-dev/actionrunner/pkg/flow"
)

// Element scripts how the mock answers for one locator value.
type Element struct {
	// Texts are the visible texts of the matched elements; one entry per element.
	// Empty means a single element with no text.
	Texts []string
	// Absent hides the element until Show is called.
	Absent bool
	// AppearAfter hides the element for the first N lookups.
	AppearAfter int
	// NotActionable makes IsActionable report false.
	NotActionable bool

	FindErr  error
	ClickErr error
	TypeErr  error
}

// Call records one backend invocation.
type Call struct {
	Method string // find, actionable, click, type, dump
	Value  string // Locator value or element ID
	Text   string // typeText payload
}

// Session is a mock implementation of core.Session.
// Locators that were never scripted are absent.
type Session struct {
	mu       sync.Mutex
	target   string
	elements map[string]*Element
	lookups  map[string]int
	calls    []Call
	closed   int
	dead     bool

	// UITree is returned by DumpUITree.
	UITree  string
	DumpErr error
	// OnFind runs before each lookup, outside the lock. It may block on ctx.
	OnFind func(ctx context.Context, loc flow.Locator)
}

// New creates a mock session for target.
func New(target string) *Session {
	if target == "" {
		target = "mock-device"
	}
	return &Session{
		target:   target,
		elements: make(map[string]*Element),
		lookups:  make(map[string]int),
		UITree:   "<hierarchy/>",
	}
}

// Set scripts the element answered for a locator value.
func (s *Session) Set(value string, el Element) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := el
	s.elements[value] = &e
	return s
}

// Present is shorthand for Set with the given texts.
func (s *Session) Present(value string, texts ...string) *Session {
	return s.Set(value, Element{Texts: texts})
}

// Show makes an Absent element visible.
func (s *Session) Show(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.elements[value]; ok {
		e.Absent = false
	}
}

// Kill marks the session as no longer alive.
func (s *Session) Kill() {
	s.mu.Lock()
	s.dead = true
	s.mu.Unlock()
}

// FindBySelector implements core.Backend.
func (s *Session) FindBySelector(ctx context.Context, loc flow.Locator, parent *core.Element) ([]core.Element, error) {
	if s.OnFind != nil {
		s.OnFind(ctx, loc)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Method: "find", Value: loc.Value})
	s.lookups[loc.Value]++

	e, ok := s.elements[loc.Value]
	if !ok || e.Absent {
		return nil, nil
	}
	if e.FindErr != nil {
		return nil, e.FindErr
	}
	if s.lookups[loc.Value] <= e.AppearAfter {
		return nil, nil
	}

	texts := e.Texts
	if len(texts) == 0 {
		texts = []string{""}
	}
	out := make([]core.Element, len(texts))
	for i, text := range texts {
		out[i] = core.Element{ID: fmt.Sprintf("%s#%d", loc.Value, i), Text: text}
	}
	return out, nil
}

// IsActionable implements core.Backend.
func (s *Session) IsActionable(ctx context.Context, el core.Element) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Method: "actionable", Value: el.ID})
	if e := s.lookup(el); e != nil && e.NotActionable {
		return false, nil
	}
	return true, nil
}

// Click implements core.Backend.
func (s *Session) Click(ctx context.Context, el core.Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Method: "click", Value: el.ID})
	if e := s.lookup(el); e != nil && e.ClickErr != nil {
		return e.ClickErr
	}
	return nil
}

// TypeText implements core.Backend.
func (s *Session) TypeText(ctx context.Context, el core.Element, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Method: "type", Value: el.ID, Text: text})
	if e := s.lookup(el); e != nil && e.TypeErr != nil {
		return e.TypeErr
	}
	return nil
}

// DumpUITree implements core.Backend.
func (s *Session) DumpUITree(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Method: "dump"})
	if s.DumpErr != nil {
		return "", s.DumpErr
	}
	return s.UITree, nil
}

// lookup maps an element ID back to its script. Caller holds mu.
func (s *Session) lookup(el core.Element) *Element {
	value := el.ID
	if i := strings.LastIndex(value, "#"); i >= 0 {
		value = value[:i]
	}
	return s.elements[value]
}

// Target implements core.Session.
func (s *Session) Target() string { return s.target }

// Endpoint implements core.Session.
func (s *Session) Endpoint() string { return "mock://" + s.target }

// Alive implements core.Session.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.dead && s.closed == 0
}

// Close implements core.Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// Closed reports whether Close was called at least once.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed > 0
}

// Calls returns a copy of the recorded calls.
func (s *Session) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the recorded calls with the given method.
func (s *Session) CallsTo(method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Lookups returns how many times value was searched for.
func (s *Session) Lookups(value string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups[value]
}
