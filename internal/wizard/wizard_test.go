package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giglane/internal/handle"
)

func testRules() AgencyRules {
	return AgencyRules{
		Types: map[string]bool{
			"va_collective": true,
			"design_studio": true,
		},
		Aliases: map[string]string{
			"va":     "va_collective",
			"design": "design_studio",
		},
	}
}

func TestAdvanceGatedOnPredicate(t *testing.T) {
	w := Agency(testRules())

	// Step 0 (type): empty field blocks, index unchanged, error surfaced.
	err := w.Advance()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "type", ve.Step)
	assert.Equal(t, 0, w.Current())

	w.Set(FieldType, "va")
	require.NoError(t, w.Advance())
	assert.Equal(t, 1, w.Current())
}

func TestRetreatNeverClearsFields(t *testing.T) {
	w := Agency(testRules())
	w.Set(FieldType, "va")
	require.NoError(t, w.Advance())
	require.NoError(t, w.Advance()) // logo is optional

	w.Retreat()
	assert.Equal(t, 1, w.Current())
	w.Retreat()
	assert.Equal(t, 0, w.Current())
	w.Retreat() // floored at 0
	assert.Equal(t, 0, w.Current())
	assert.Equal(t, "va", w.Field(FieldType))
}

func TestHandleStepWaitsForCheck(t *testing.T) {
	w := Agency(testRules())
	w.Set(FieldType, "va")
	require.NoError(t, w.Advance())
	require.NoError(t, w.Advance())
	w.Set(FieldName, "Garden Agency")
	require.NoError(t, w.Advance())

	w.Set(FieldHandle, "garden")
	err := w.Advance()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Reason, "pending")

	// A result for a superseded candidate is ignored.
	w.ApplyHandleResult(handle.Result{Candidate: "gard", Available: true, Reason: handle.ReasonOK})
	assert.Error(t, w.Advance())

	// A taken result blocks with the reason.
	w.ApplyHandleResult(handle.Result{Candidate: "garden", Available: false, Reason: handle.ReasonTaken})
	err = w.Advance()
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, string(handle.ReasonTaken), ve.Reason)

	w.ApplyHandleResult(handle.Result{Candidate: "garden", Available: true, Reason: handle.ReasonOK})
	require.NoError(t, w.Advance())
	assert.Equal(t, 4, w.Current())
}

func completeWizard(t *testing.T) *AgencyWizard {
	t.Helper()
	w := Agency(testRules())
	w.Set(FieldType, "va")
	require.NoError(t, w.Advance())
	require.NoError(t, w.Advance()) // skip logo
	w.Set(FieldName, "Garden Agency")
	require.NoError(t, w.Advance())
	w.Set(FieldHandle, "garden")
	w.ApplyHandleResult(handle.Result{Candidate: "garden", Available: true, Reason: handle.ReasonOK})
	require.NoError(t, w.Advance())
	w.Set(FieldMailbox, "hello")
	return w
}

func TestEndToEndPayload(t *testing.T) {
	w := completeWizard(t)
	req, err := w.Request()
	require.NoError(t, err)
	assert.Equal(t, "Garden Agency", req.Name)
	assert.Equal(t, "garden", req.Username)
	assert.Equal(t, "va_collective", req.AgencyType)
	assert.Equal(t, "", req.LogoURL)
	assert.Equal(t, "hello@garden.com", req.OwnerEmail)
	assert.Nil(t, req.Logo)
	assert.NotEmpty(t, req.IdempotencyKey)
}

func TestSubmitOnlyOnTerminalStep(t *testing.T) {
	w := Agency(testRules())
	w.Set(FieldType, "va")
	require.NoError(t, w.Advance())
	_, err := w.Submit(context.Background(), func(ctx context.Context, req CreationRequest) (string, error) {
		t.Fatal("must not be called")
		return "", nil
	})
	assert.ErrorIs(t, err, ErrNotTerminal)
	assert.Equal(t, StateCollecting, w.State())
}

func TestSubmitFailurePreservesFields(t *testing.T) {
	w := completeWizard(t)
	boom := errors.New("backend unavailable")
	_, err := w.Submit(context.Background(), func(ctx context.Context, req CreationRequest) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, w.State())
	assert.Equal(t, 4, w.Current())
	assert.Equal(t, "Garden Agency", w.Field(FieldName))
	assert.ErrorIs(t, w.LastSubmitError(), boom)

	// Retry with the same idempotency key succeeds.
	key := w.IdempotencyKey()
	var seen string
	id, err := w.Submit(context.Background(), func(ctx context.Context, req CreationRequest) (string, error) {
		seen = req.IdempotencyKey
		return "agency-1", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "agency-1", id)
	assert.Equal(t, key, seen)
	assert.Equal(t, StateSucceeded, w.State())
	assert.Equal(t, "agency-1", w.EntityID())

	// A succeeded wizard cannot submit again.
	_, err = w.Submit(context.Background(), func(ctx context.Context, req CreationRequest) (string, error) {
		return "agency-2", nil
	})
	assert.ErrorIs(t, err, ErrNotFailed)
}

func TestLogoAttachmentFlowsIntoRequest(t *testing.T) {
	w := completeWizard(t)
	w.Attach(&Attachment{Filename: "logo.png", Data: []byte{0x89, 'P', 'N', 'G'}})
	req, err := w.Request()
	require.NoError(t, err)
	require.NotNil(t, req.Logo)
	assert.Equal(t, "logo.png", req.Logo.Filename)
}

func TestResolveType(t *testing.T) {
	rules := testRules()
	got, err := rules.ResolveType("va")
	require.NoError(t, err)
	assert.Equal(t, "va_collective", got)
	got, err = rules.ResolveType("design_studio")
	require.NoError(t, err)
	assert.Equal(t, "design_studio", got)
	_, err = rules.ResolveType("circus")
	assert.Error(t, err)
}
