package wizard

import (
	"context"
	"fmt"
	"strings"

	"giglane/internal/handle"
)

// Field names used by the agency creation wizard.
const (
	FieldType    = "agencyType"
	FieldName    = "name"
	FieldHandle  = "handle"
	FieldMailbox = "mailbox"
)

// MinNameLength gates the name step.
const MinNameLength = 3

// AgencyRules is the slice of workspace config the agency wizard needs:
// the catalog of agency types and the short aliases users type for them.
type AgencyRules struct {
	Types   map[string]bool
	Aliases map[string]string
	// MailboxDomain is appended to the handle for the derived owner
	// address, e.g. ".com" yields local@handle.com.
	MailboxDomain string
}

// ResolveType maps an alias or canonical type name to the canonical
// type, or returns an error when the input matches neither.
func (r AgencyRules) ResolveType(in string) (string, error) {
	in = strings.TrimSpace(in)
	if canonical, ok := r.Aliases[in]; ok {
		return canonical, nil
	}
	if r.Types[in] {
		return in, nil
	}
	return "", fmt.Errorf("unknown agency type %q", in)
}

func (r AgencyRules) mailboxDomain() string {
	if r.MailboxDomain == "" {
		return ".com"
	}
	return r.MailboxDomain
}

// AgencySteps is the canonical five-step agency creation sequence:
// type, logo (optional), name, handle, mailbox.
func AgencySteps(rules AgencyRules) []Step {
	return []Step{
		{
			Name: "type",
			Check: func(s Snapshot) error {
				if _, err := rules.ResolveType(s.Fields[FieldType]); err != nil {
					return &ValidationError{Step: "type", Reason: err.Error()}
				}
				return nil
			},
		},
		{
			Name: "logo", // optional, always passable
		},
		{
			Name: "name",
			Check: func(s Snapshot) error {
				if len(strings.TrimSpace(s.Fields[FieldName])) < MinNameLength {
					return &ValidationError{Step: "name", Reason: fmt.Sprintf("name must be at least %d characters", MinNameLength)}
				}
				return nil
			},
		},
		{
			Name: "handle",
			Check: func(s Snapshot) error {
				candidate := s.Fields[FieldHandle]
				if reason := handle.Validate(candidate); reason != handle.ReasonOK {
					return &ValidationError{Step: "handle", Reason: string(reason)}
				}
				// The availability check is async; a missing or stale
				// result counts as pending and blocks advance.
				if s.Handle == nil || s.Handle.Candidate != candidate {
					return &ValidationError{Step: "handle", Reason: "availability check pending"}
				}
				if !s.Handle.Available {
					return &ValidationError{Step: "handle", Reason: string(s.Handle.Reason)}
				}
				return nil
			},
		},
		{
			Name: "mailbox",
			Check: func(s Snapshot) error {
				local := strings.TrimSpace(s.Fields[FieldMailbox])
				if local == "" {
					return &ValidationError{Step: "mailbox", Reason: "mailbox name is required"}
				}
				if strings.ContainsAny(local, "@ ") {
					return &ValidationError{Step: "mailbox", Reason: "mailbox name must not contain @ or spaces"}
				}
				return nil
			},
		},
	}
}

// Agency builds a wizard for the canonical agency sequence.
func Agency(rules AgencyRules) *AgencyWizard {
	return &AgencyWizard{Wizard: New(AgencySteps(rules)), rules: rules}
}

// AgencyWizard binds the generic machine to the agency request shape.
type AgencyWizard struct {
	*Wizard
	rules AgencyRules
}

// CreationRequest is the immutable submission payload: the union of the
// wizard fields plus derived values. LogoURL is filled by the pipeline
// after the upload succeeds; it is empty in the request itself.
type CreationRequest struct {
	Name           string      `json:"name"`
	Username       string      `json:"username"`
	AgencyType     string      `json:"agencyType"`
	LogoURL        string      `json:"logoUrl"`
	OwnerEmail     string      `json:"ownerAgencyEmail"`
	Logo           *Attachment `json:"-"`
	IdempotencyKey string      `json:"-"`
}

// Request assembles the payload. All step predicates must hold.
func (w *AgencyWizard) Request() (CreationRequest, error) {
	if err := w.validateAll(); err != nil {
		return CreationRequest{}, err
	}
	agencyType, err := w.rules.ResolveType(w.fields[FieldType])
	if err != nil {
		return CreationRequest{}, err
	}
	username := w.fields[FieldHandle]
	return CreationRequest{
		Name:           strings.TrimSpace(w.fields[FieldName]),
		Username:       username,
		AgencyType:     agencyType,
		LogoURL:        "",
		OwnerEmail:     strings.TrimSpace(w.fields[FieldMailbox]) + "@" + username + w.rules.mailboxDomain(),
		Logo:           w.logo,
		IdempotencyKey: w.idemKey,
	}, nil
}

// Submit builds the CreationRequest and runs fn. Failure preserves the
// wizard state for a retry; success is terminal.
func (w *AgencyWizard) Submit(ctx context.Context, fn SubmitFunc) (string, error) {
	if err := w.beginSubmit(); err != nil {
		return "", err
	}
	req, err := w.Request()
	if err != nil {
		w.failSubmit(err)
		return "", err
	}
	id, err := fn(ctx, req)
	if err != nil {
		w.failSubmit(err)
		return "", err
	}
	w.succeed(id)
	return id, nil
}
