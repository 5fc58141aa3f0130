package handle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	mu       sync.Mutex
	existing map[string]bool
	err      error
	lookups  int
	// gates, when set, lets the test decide when each lookup returns;
	// entered signals that a lookup reached the directory.
	gates   map[string]chan struct{}
	entered map[string]chan struct{}
}

func (d *fakeDirectory) HandleExists(ctx context.Context, handle string) (bool, error) {
	d.mu.Lock()
	d.lookups++
	gate := d.gates[handle]
	entered := d.entered[handle]
	err := d.err
	exists := d.existing[handle]
	d.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return false, err
	}
	return exists, nil
}

func TestValidateShortCircuits(t *testing.T) {
	assert.Equal(t, ReasonTooShort, Validate("ab"))
	assert.Equal(t, ReasonInvalidChars, Validate("ab!"))
	assert.Equal(t, ReasonOK, Validate("abcde"))
	assert.Equal(t, ReasonOK, Validate("a-b_9"))
}

func TestCheckSkipsLookupOnSyntaxFailure(t *testing.T) {
	dir := &fakeDirectory{}
	c := NewChecker(dir)

	res := c.Check(context.Background(), "ab")
	assert.Equal(t, ReasonTooShort, res.Reason)
	res = c.Check(context.Background(), "ab!")
	assert.Equal(t, ReasonInvalidChars, res.Reason)
	assert.Equal(t, 0, dir.lookups)
}

func TestCheckAvailableAndTaken(t *testing.T) {
	dir := &fakeDirectory{existing: map[string]bool{"garden": true}}
	c := NewChecker(dir)

	res := c.Check(context.Background(), "garden")
	assert.False(t, res.Available)
	assert.Equal(t, ReasonTaken, res.Reason)

	res = c.Check(context.Background(), "meadow")
	assert.True(t, res.Available)
	assert.Equal(t, ReasonOK, res.Reason)

	latest, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, "meadow", latest.Candidate)
}

func TestLookupFailureIsNotAvailable(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("backend down")}
	c := NewChecker(dir)

	res := c.Check(context.Background(), "garden")
	assert.False(t, res.Available)
	assert.Equal(t, ReasonCheckFailed, res.Reason)
}

func TestStaleResponseDiscarded(t *testing.T) {
	aliceGate := make(chan struct{})
	aliceEntered := make(chan struct{})
	dir := &fakeDirectory{
		existing: map[string]bool{"alice": true},
		gates:    map[string]chan struct{}{"alice": aliceGate},
		entered:  map[string]chan struct{}{"alice": aliceEntered},
	}
	c := NewChecker(dir)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Check(context.Background(), "alice") // blocks on the gate
	}()
	<-aliceEntered // "alice" has been issued and is in flight

	// The newer check for "alicia" completes while "alice" is in flight.
	res := c.Check(context.Background(), "alicia")
	require.True(t, res.Available)

	// Now the stale "alice" response arrives; it must not be published.
	close(aliceGate)
	wg.Wait()

	latest, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, "alicia", latest.Candidate)
	assert.True(t, latest.Available)
}

func TestReset(t *testing.T) {
	dir := &fakeDirectory{}
	c := NewChecker(dir)
	c.Check(context.Background(), "meadow")
	c.Reset()
	_, ok := c.Latest()
	assert.False(t, ok)
}
