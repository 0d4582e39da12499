// Package executor runs action tables against a live session.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/actionrunner/pkg/core"
	"github.com/devicelab-dev/actionrunner/pkg/flow"
	"github.com/devicelab-dev/actionrunner/pkg/jsengine"
	"github.com/devicelab-dev/actionrunner/pkg/logger"
)

// DefaultPollInterval is the wait polling period when the policy sets none.
const DefaultPollInterval = 500 * time.Millisecond

// Policy controls waiting and short-circuiting for one run.
type Policy struct {
	PollInterval      time.Duration
	ContinueOnFailure bool // Treat every action as optional
	SnapshotOnFailure bool // Capture the UI tree when an action fails
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{PollInterval: DefaultPollInterval}
}

// RunnerConfig configures the runner.
type RunnerConfig struct {
	// Excluded is exposed to filter expressions as the array "excluded".
	Excluded []string
	// Variables are merged over the profile env for ${...} in input text.
	Variables map[string]string
	// Platform is copied into every report.
	Platform *core.PlatformInfo

	// Live progress callbacks
	OnActionStart    func(idx, total int, a *flow.Action)
	OnActionComplete func(idx int, a *flow.Action, result *core.ActionResult)
}

// Runner executes action tables sequentially.
type Runner struct {
	config RunnerConfig
}

// New creates a new Runner.
func New(cfg RunnerConfig) *Runner {
	return &Runner{config: cfg}
}

// Run executes every action of f against session in order and returns the report.
//
// The session is closed before Run returns, on every path. An error is returned
// only when the session or the table is unusable; element failures and
// cancellation are reported through the RunReport.
func (r *Runner) Run(ctx context.Context, session core.Session, f *flow.Flow, policy Policy) (*core.RunReport, error) {
	if policy.PollInterval <= 0 {
		policy.PollInterval = DefaultPollInterval
	}

	engine := jsengine.New()
	if err := r.validate(session, f, engine); err != nil {
		if session != nil {
			if cerr := session.Close(); cerr != nil {
				logger.Warn("close session: %v", cerr)
			}
		}
		return nil, err
	}
	r.prepareEngine(engine, f)

	start := time.Now()
	report := &core.RunReport{
		ID:        uuid.NewString(),
		Profile:   f.Name(),
		Target:    session.Target(),
		Platform:  r.config.Platform,
		Status:    core.RunCompleted,
		HaltedAt:  -1,
		StartTime: start,
		Planned:   len(f.Actions),
	}

	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("close session %s: %v", session.Target(), err)
		} else {
			report.SessionReleased = true
		}
		report.Duration = time.Since(start)
		report.ComputeSummary()
		logger.Info("run %s finished: %s (%d/%d actions, %s)",
			report.ID, report.Status, len(report.Results), report.Planned, report.Duration)
	}()

	logger.Info("run %s: profile %s on %s (%d actions)", report.ID, report.Profile, report.Target, len(f.Actions))

	if !sleep(ctx, f.LaunchSettle()) {
		report.Status = core.RunCancelled
		return report, nil
	}

	for i := range f.Actions {
		a := &f.Actions[i]

		if ctx.Err() != nil {
			report.Status = core.RunCancelled
			break
		}

		if r.config.OnActionStart != nil {
			r.config.OnActionStart(i, len(f.Actions), a)
		}

		result := r.execute(ctx, session, a, i, policy, engine)
		report.Results = append(report.Results, result)

		if r.config.OnActionComplete != nil {
			r.config.OnActionComplete(i, a, &report.Results[len(report.Results)-1])
		}

		if result.Status == core.StatusCancelled {
			report.Status = core.RunCancelled
			break
		}
		if result.Halted() {
			report.Status = core.RunHalted
			report.HaltedAt = i
			report.Error = fmt.Sprintf("action %d (%s): %s", i+1, result.Name, result.Error)
			logger.Error("required action %d (%s) %s: %s", i+1, result.Name, result.Status, result.Error)
			break
		}
		if !result.Status.IsSuccess() {
			logger.Warn("optional action %d (%s) %s: %s", i+1, result.Name, result.Status, result.Error)
		}

		if !sleep(ctx, a.Settle()) {
			report.Status = core.RunCancelled
			break
		}
	}

	return report, nil
}

// validate checks the entry constraints once, before any action runs.
func (r *Runner) validate(session core.Session, f *flow.Flow, engine *jsengine.Engine) error {
	if session == nil {
		return core.ErrInvalidSession.WithMessage("session is nil")
	}
	if !session.Alive() {
		return core.ErrInvalidSession.WithMessage("session " + session.Target() + " is not live")
	}
	if f == nil {
		return core.ErrInvalidConfig.WithMessage("no action table")
	}
	if err := f.Validate(); err != nil {
		return core.ErrInvalidConfig.WithCause(err)
	}
	for i := range f.Actions {
		if expr := f.Actions[i].Filter; expr != "" {
			if err := engine.Check(expr); err != nil {
				return core.ErrInvalidConfig.WithCause(fmt.Errorf("action %d: %w", i+1, err))
			}
		}
	}
	return nil
}

func (r *Runner) prepareEngine(engine *jsengine.Engine, f *flow.Flow) {
	engine.SetExcluded(r.config.Excluded)
	if f.Config.AppID != "" {
		engine.SetVariable("APP_ID", f.Config.AppID)
	}
	engine.SetVariables(f.Config.Env)
	engine.SetVariables(r.config.Variables)
}

// execute runs one action: wait, act, record.
func (r *Runner) execute(ctx context.Context, s core.Session, a *flow.Action, idx int, policy Policy, engine *jsengine.Engine) core.ActionResult {
	result := core.ActionResult{
		Index:     idx,
		Name:      a.Name(),
		Op:        a.Op,
		Required:  a.IsRequired() && !policy.ContinueOnFailure,
		StartTime: time.Now(),
	}

	m, err := r.await(ctx, s, a, policy.PollInterval, engine)
	if err == nil {
		err = r.apply(ctx, s, a, m, engine)
	}
	result.Duration = time.Since(result.StartTime)
	result.Status = statusOf(ctx, err)
	result.Category = core.CategoryFor(result.Status)
	result.Text = m.Text
	result.Count = m.Count
	if err != nil {
		result.Error = err.Error()
	}

	if (result.Status.IsSuccess() && a.Snapshot) ||
		(policy.SnapshotOnFailure && result.Status.HaltsRun()) {
		tree, derr := s.DumpUITree(ctx)
		if derr != nil {
			logger.Warn("snapshot after action %d failed: %v", idx+1, derr)
		}
		result.Snapshot = tree
	}

	logger.Debug("action %d %s: %s in %s", idx+1, result.Name, result.Status, result.Duration)
	return result
}

// apply performs the operation on the selected element.
func (r *Runner) apply(ctx context.Context, s core.Session, a *flow.Action, m match, engine *jsengine.Engine) error {
	switch a.Op {
	case flow.OpClick:
		if err := s.Click(ctx, m.Element); err != nil {
			return core.ErrOperation.WithMessage("click " + a.Locator.Describe()).WithCause(err)
		}
	case flow.OpTypeText:
		if err := s.TypeText(ctx, m.Element, engine.ExpandVariables(a.Input)); err != nil {
			return core.ErrOperation.WithMessage("type into " + a.Locator.Describe()).WithCause(err)
		}
	}
	return nil
}

// statusOf maps an action error to its status. Cancellation wins over
// whatever the backend returned while the context was being torn down.
func statusOf(ctx context.Context, err error) core.ActionStatus {
	switch {
	case err == nil:
		return core.StatusSuccess
	case ctx.Err() != nil, errors.Is(err, core.ErrCancelled),
		errors.Is(err, context.Canceled):
		return core.StatusCancelled
	case errors.Is(err, core.ErrWaitTimeout):
		return core.StatusTimeout
	case errors.Is(err, core.ErrElementNotFound):
		return core.StatusNotFound
	default:
		return core.StatusError
	}
}
