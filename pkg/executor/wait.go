package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devicelab-dev/actionrunner/pkg/core"
	"github.com/devicelab-dev/actionrunner/pkg/flow"
	"github.com/devicelab-dev/actionrunner/pkg/jsengine"
)

// match is the element an action settled on.
type match struct {
	Element core.Element
	Text    string
	Count   int // Eligible elements at the time of selection
}

type lookState int

const (
	lookAbsent        lookState = iota // Nothing located
	lookFiltered                        // Located, none eligible
	lookNotActionable                   // Selected, not displayed+enabled
	lookReady
)

// await polls until the action's element is selected (and actionable when the
// operation needs it) or the action timeout elapses. Sleeps are clamped to the
// remaining time, and backend calls are bounded by the same deadline, so a
// timeout is reported no later than one poll interval past it.
func (r *Runner) await(ctx context.Context, s core.Session, a *flow.Action, interval time.Duration, engine *jsengine.Engine) (match, error) {
	timeout := a.Timeout()
	deadline := time.Now().Add(timeout)
	pctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var last lookState
	var located int
	for {
		m, state, err := r.look(pctx, s, a, engine)
		if err != nil {
			if expired(ctx, pctx, err) {
				break
			}
			return match{}, err
		}
		if state == lookReady {
			return m, nil
		}
		last, located = state, m.Count

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if remaining < interval {
			interval = remaining
		}
		if !sleep(ctx, interval) {
			return match{}, core.ErrCancelled.WithCause(ctx.Err())
		}
	}

	desc := a.Locator.Describe()
	switch last {
	case lookFiltered:
		return match{Count: located}, core.ErrElementNotFound.WithMessage(
			fmt.Sprintf("%d element(s) located by %s, none eligible", located, desc))
	case lookNotActionable:
		return match{}, core.ErrWaitTimeout.WithMessage(
			fmt.Sprintf("element %s not clickable after %s", desc, timeout))
	default:
		return match{}, core.ErrWaitTimeout.WithMessage(
			fmt.Sprintf("element %s not present after %s", desc, timeout))
	}
}

// expired reports whether err came from the wait deadline cutting a backend
// call short while the run itself is still live.
func expired(ctx, pctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return errors.Is(pctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded)
}

// look makes one lookup attempt. For lookFiltered, m.Count carries the
// number of located elements.
func (r *Runner) look(ctx context.Context, s core.Session, a *flow.Action, engine *jsengine.Engine) (match, lookState, error) {
	elems, err := resolve(ctx, s, a.Locator)
	if err != nil {
		return match{}, lookAbsent, core.ErrOperation.WithMessage("find " + a.Locator.Describe()).WithCause(err)
	}
	if len(elems) == 0 {
		return match{}, lookAbsent, nil
	}

	eligible, err := filter(engine, a.Filter, elems)
	if err != nil {
		return match{}, lookAbsent, core.ErrOperation.WithCause(err)
	}
	if len(eligible) == 0 {
		return match{Count: len(elems)}, lookFiltered, nil
	}

	if a.Op == flow.OpWaitForAll {
		return match{Element: eligible[0], Text: eligible[0].Text, Count: len(eligible)}, lookReady, nil
	}
	if a.Index >= len(eligible) {
		return match{Count: len(elems)}, lookFiltered, nil
	}

	el := eligible[a.Index]
	if a.Op.NeedsActionable() {
		ok, err := s.IsActionable(ctx, el)
		if err != nil {
			return match{}, lookAbsent, core.ErrOperation.WithMessage("check " + a.Locator.Describe()).WithCause(err)
		}
		if !ok {
			return match{}, lookNotActionable, nil
		}
	}
	return match{Element: el, Text: el.Text, Count: len(eligible)}, lookReady, nil
}

// resolve walks a locator chain. Each parent level selects its first match;
// the final level returns every match.
func resolve(ctx context.Context, s core.Backend, loc flow.Locator) ([]core.Element, error) {
	var parent *core.Element
	for cur := &loc; cur != nil; cur = cur.Child {
		one := *cur
		one.Child = nil

		elems, err := s.FindBySelector(ctx, one, parent)
		if err != nil {
			return nil, err
		}
		if cur.Child == nil || len(elems) == 0 {
			return elems, nil
		}
		p := elems[0]
		parent = &p
	}
	return nil, nil
}

// filter keeps elements whose text satisfies expr. An empty expr keeps all.
func filter(engine *jsengine.Engine, expr string, elems []core.Element) ([]core.Element, error) {
	if expr == "" {
		return elems, nil
	}
	var out []core.Element
	for _, el := range elems {
		ok, err := engine.Match(expr, el.Text)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, el)
		}
	}
	return out, nil
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
