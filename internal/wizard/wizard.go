// Package wizard drives an ordered set of creation steps to completion,
// producing a validated CreationRequest for the submission pipeline.
package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"giglane/internal/handle"
)

// State is the lifecycle of a wizard run.
type State string

const (
	StateCollecting State = "collecting"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Fields accumulates user input across steps. A field written in one
// step persists when the user navigates back to it.
type Fields map[string]string

// Attachment is a file collected by a step, uploaded by the submission
// pipeline before the entity is created.
type Attachment struct {
	Filename string
	Data     []byte
}

// Snapshot is what a step predicate sees.
type Snapshot struct {
	Fields Fields
	Handle *handle.Result
}

// Step gates forward navigation with a predicate over the collected
// fields. A nil error from Check enables Advance.
type Step struct {
	Name  string
	Check func(s Snapshot) error
}

// ValidationError is a step-local failure. It blocks Advance and is
// surfaced to the caller instead of being silently swallowed.
type ValidationError struct {
	Step   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %s: %s", e.Step, e.Reason)
}

var (
	ErrNotTerminal = errors.New("submit is only allowed on the final step")
	ErrNotFailed   = errors.New("wizard is not in a submittable state")
)

// Wizard is a single-user, cooperative state machine: transitions happen
// synchronously in response to caller actions. Async handle checks feed
// in through ApplyHandleResult.
type Wizard struct {
	steps      []Step
	cur        int
	fields     Fields
	logo       *Attachment
	handleRes  *handle.Result
	state      State
	entityID   string
	idemKey    string
	lastSubmit error
}

// New builds a wizard positioned on step 0 with an empty field set and a
// fresh idempotency key. The key survives failed submissions so a retry
// of the same wizard run cannot create a duplicate entity.
func New(steps []Step) *Wizard {
	return &Wizard{
		steps:   steps,
		fields:  Fields{},
		state:   StateCollecting,
		idemKey: uuid.New().String(),
	}
}

// Set writes a field value. An availability result obtained for an
// older handle value is treated as pending by the handle step until a
// matching result arrives.
func (w *Wizard) Set(name, value string) {
	w.fields[name] = value
}

// Field reads a previously written field.
func (w *Wizard) Field(name string) string {
	return w.fields[name]
}

// Attach stores the logo attachment (or clears it when nil).
func (w *Wizard) Attach(att *Attachment) {
	w.logo = att
}

// ApplyHandleResult publishes an availability result into the wizard.
// Results for a candidate that no longer matches the handle field are
// ignored; the checker's issuance-order guard handles races upstream.
func (w *Wizard) ApplyHandleResult(res handle.Result) {
	if res.Candidate != w.fields[FieldHandle] {
		return
	}
	w.handleRes = &res
}

// Current returns the active step index.
func (w *Wizard) Current() int { return w.cur }

// State returns the wizard lifecycle state.
func (w *Wizard) State() State { return w.state }

// EntityID returns the created entity id after a successful submit.
func (w *Wizard) EntityID() string { return w.entityID }

// IdempotencyKey returns the key attached to every submission attempt of
// this wizard run.
func (w *Wizard) IdempotencyKey() string { return w.idemKey }

func (w *Wizard) snapshot() Snapshot {
	return Snapshot{Fields: w.fields, Handle: w.handleRes}
}

// Advance moves to the next step if the active step's predicate holds.
// On failure the step index is unchanged and the validation error is
// returned so the caller can tell the user what is missing.
func (w *Wizard) Advance() error {
	if w.cur >= len(w.steps)-1 {
		return ErrNotTerminal
	}
	step := w.steps[w.cur]
	if step.Check != nil {
		if err := step.Check(w.snapshot()); err != nil {
			return err
		}
	}
	w.cur++
	return nil
}

// Retreat moves one step back, floored at step 0. Fields are kept.
func (w *Wizard) Retreat() {
	if w.cur > 0 {
		w.cur--
	}
}

// validateAll re-runs every step predicate; Request and Submit refuse to
// build a payload from a partially valid field set.
func (w *Wizard) validateAll() error {
	snap := w.snapshot()
	for _, step := range w.steps {
		if step.Check == nil {
			continue
		}
		if err := step.Check(snap); err != nil {
			return err
		}
	}
	return nil
}

// SubmitFunc persists a CreationRequest and returns the new entity id.
type SubmitFunc func(ctx context.Context, req CreationRequest) (string, error)

// beginSubmit gates the Submitting transition: only the terminal step of
// a collecting (or previously failed) run may submit.
func (w *Wizard) beginSubmit() error {
	if w.state != StateCollecting && w.state != StateFailed {
		return ErrNotFailed
	}
	if w.cur != len(w.steps)-1 {
		return ErrNotTerminal
	}
	w.state = StateSubmitting
	return nil
}

// failSubmit records a failed attempt. The wizard stays on its terminal
// step with all fields intact so the user can retry.
func (w *Wizard) failSubmit(err error) {
	w.state = StateFailed
	w.lastSubmit = err
}

func (w *Wizard) succeed(id string) {
	w.state = StateSucceeded
	w.entityID = id
}

// LastSubmitError returns the error of the most recent failed submit.
func (w *Wizard) LastSubmitError() error { return w.lastSubmit }
