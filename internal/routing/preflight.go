package routing

import (
	"context"
	"errors"
	"fmt"

	"modelrouter/internal/catalog"
	"modelrouter/internal/core"
	"modelrouter/internal/exhaustion"
	"modelrouter/internal/selector"
)

// Preflight runs selection and usability checks for one task without calling a provider.
// An unrunnable task is a result with CanRun false, not an error.
func (s *Service) Preflight(ctx context.Context, task Task) (*PreflightResult, error) {
	snap, err := s.models(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.preflight(s.evaluator.Begin(ctx), snap, task)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// PreflightBatch evaluates tasks in order against one catalog snapshot and one credit lookup.
// A task with invalid constraints is reported as unrunnable; the rest of the batch still runs.
func (s *Service) PreflightBatch(ctx context.Context, tasks []Task) (*BatchResult, error) {
	snap, err := s.models(ctx)
	if err != nil {
		return nil, err
	}
	check := s.evaluator.Begin(ctx)

	out := &BatchResult{Results: make([]PreflightResult, 0, len(tasks)), Total: len(tasks)}
	for _, task := range tasks {
		res, err := s.preflight(check, snap, task)
		if err != nil {
			res = PreflightResult{TaskID: task.ID, Reason: invalidReason(err)}
		}
		if res.CanRun {
			out.Runnable++
		}
		out.Results = append(out.Results, res)
	}
	return out, nil
}

func (s *Service) preflight(check *exhaustion.Check, snap *catalog.Snapshot, task Task) (PreflightResult, error) {
	res := PreflightResult{TaskID: task.ID}

	var c selector.Constraints
	if task.ModelID == "" {
		var err error
		if c, err = task.Constraints.selector(); err != nil {
			return res, err
		}
	}

	var ranked []selector.Scored
	if task.ModelID != "" {
		picked, ok := selector.Pick(snap.Models, selector.Request{ModelID: task.ModelID, Constraints: c})
		if !ok {
			res.Reason = "model not found: " + task.ModelID
			return res, nil
		}
		ranked = []selector.Scored{picked}
	} else {
		ranked = selector.Suggest(snap.Models, c)
	}
	res.Candidates = len(ranked)
	if len(ranked) == 0 {
		res.Reason = "no models match the requested constraints"
		return res, nil
	}

	minWait := 0
	var lastReason string
	for _, cand := range ranked {
		if !s.caller.Supports(cand.Model) {
			lastReason = fmt.Sprintf("no adapter for route %q", cand.Model.Route)
			continue
		}
		u := check.ModelUsable(cand.Model)
		if u.Usable {
			res.CanRun = true
			res.Model = cand.Model
			res.Score = cand.Score
			return res, nil
		}
		lastReason = u.Reason
		if u.WaitSeconds > 0 && (minWait == 0 || u.WaitSeconds < minWait) {
			minWait = u.WaitSeconds
		}
	}

	res.WaitSeconds = minWait
	if len(ranked) == 1 {
		res.Model = ranked[0].Model
		res.Reason = lastReason
	} else {
		res.Reason = fmt.Sprintf("all %d candidates are unusable (last: %s)", len(ranked), lastReason)
	}
	return res, nil
}

func invalidReason(err error) string {
	var gwErr *core.GatewayError
	if errors.As(err, &gwErr) {
		return "invalid task: " + gwErr.Message
	}
	return "invalid task: " + err.Error()
}
