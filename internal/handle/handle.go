// Package handle validates candidate handles and checks them for
// availability against a directory of existing records.
package handle

import (
	"context"
	"regexp"
	"sync"
)

// Reason explains a check outcome. taken and check_failed are distinct:
// a lookup failure must never be reported as either available or taken.
type Reason string

const (
	ReasonOK           Reason = "ok"
	ReasonTooShort     Reason = "too_short"
	ReasonInvalidChars Reason = "invalid_chars"
	ReasonTaken        Reason = "taken"
	ReasonCheckFailed  Reason = "check_failed"
)

// MinLength is the default minimum handle length.
const MinLength = 3

var validHandle = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate runs the syntax checks only, short-circuiting on the first
// failure. No lookup is performed.
func Validate(candidate string) Reason {
	if len(candidate) < MinLength {
		return ReasonTooShort
	}
	if !validHandle.MatchString(candidate) {
		return ReasonInvalidChars
	}
	return ReasonOK
}

// Result is the outcome of a single availability check. Only the newest
// result is retained by a Checker; there is no history.
type Result struct {
	Candidate string `json:"candidate"`
	Available bool   `json:"available"`
	Reason    Reason `json:"reason"`
}

// Directory is the read-only lookup the checker consults.
type Directory interface {
	HandleExists(ctx context.Context, handle string) (bool, error)
}

// Checker resolves candidate handles against a Directory with
// latest-result-wins semantics: when checks overlap, only the most
// recently issued check may publish its result, regardless of the order
// in which responses arrive.
type Checker struct {
	dir Directory

	mu     sync.Mutex
	seq    uint64
	newest uint64
	latest *Result
}

// NewChecker wraps a directory.
func NewChecker(dir Directory) *Checker {
	return &Checker{dir: dir}
}

// Check validates the candidate and, if it is syntactically valid,
// consults the directory. The returned Result always describes this
// candidate; Latest reflects it only if no newer check was issued while
// the lookup was in flight.
func (c *Checker) Check(ctx context.Context, candidate string) Result {
	c.mu.Lock()
	c.seq++
	id := c.seq
	c.newest = id
	c.mu.Unlock()

	res := c.resolve(ctx, candidate)
	c.publish(id, res)
	return res
}

func (c *Checker) resolve(ctx context.Context, candidate string) Result {
	if reason := Validate(candidate); reason != ReasonOK {
		return Result{Candidate: candidate, Available: false, Reason: reason}
	}
	exists, err := c.dir.HandleExists(ctx, candidate)
	if err != nil {
		return Result{Candidate: candidate, Available: false, Reason: ReasonCheckFailed}
	}
	if exists {
		return Result{Candidate: candidate, Available: false, Reason: ReasonTaken}
	}
	return Result{Candidate: candidate, Available: true, Reason: ReasonOK}
}

// publish stores res unless a newer check was issued after id.
func (c *Checker) publish(id uint64, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.newest {
		return
	}
	c.latest = &res
}

// Latest returns the most recent published result, or false when no
// check has completed yet (or every completed check was superseded).
func (c *Checker) Latest() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return Result{}, false
	}
	return *c.latest, true
}

// Reset discards the published result, e.g. when the input field is
// cleared or the owning form goes away.
func (c *Checker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = nil
	c.newest = c.seq
}
