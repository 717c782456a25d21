// Package form holds the client-side state of one waitlist form: the field
// values being edited and where the last submission ended up.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/swcolombo/waitlist-api/internal/models"
	"github.com/swcolombo/waitlist-api/internal/services"
	apperrors "github.com/swcolombo/waitlist-api/pkg/errors"
)

// State of a form instance
type State int

const (
	Idle State = iota
	Submitting
	Success
	Failure
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNoRetry is returned by Retry when the last failure cannot be retried,
// or its one retry has already been used
var ErrNoRetry = errors.New("retry not available")

// ErrUnknownField is returned by Set for names outside the waitlist form
var ErrUnknownField = errors.New("unknown field")

// Submitter runs one submission. WaitlistService satisfies it.
type Submitter interface {
	Submit(ctx context.Context, req *models.WaitlistRequest) *models.SubmissionResult
}

// Form is safe for concurrent use. Only one submission runs at a time.
type Form struct {
	mu        sync.Mutex
	submitter Submitter
	state     State
	values    models.WaitlistRequest
	last      *models.SubmissionResult
	retried   bool
}

// New creates an idle form backed by submitter
func New(submitter Submitter) *Form {
	return &Form{submitter: submitter}
}

// Set updates one field by its wire name (name, email, designation,
// company, contact, phone)
func (f *Form) Set(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch field {
	case "name":
		f.values.Name = value
	case "email":
		f.values.Email = value
	case "designation":
		f.values.Designation = value
	case "company":
		f.values.Company = value
	case "contact":
		f.values.Contact = value
	case "phone":
		f.values.Phone = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

// Values returns a copy of the current field values
func (f *Form) Values() models.WaitlistRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// State returns the current state
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Last returns the result of the most recent completed submission, or nil
func (f *Form) Last() *models.SubmissionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Submit sends the current values. A call made while another submission is
// running is rejected without touching the form.
func (f *Form) Submit(ctx context.Context) *models.SubmissionResult {
	f.mu.Lock()
	if f.state == Submitting {
		f.mu.Unlock()
		return &models.SubmissionResult{Message: services.MsgInFlight, Cause: apperrors.ErrInFlight}
	}
	req := f.begin()
	f.mu.Unlock()

	return f.finish(f.submitter.Submit(ctx, &req), false)
}

// Retry resubmits the current values after a retryable failure. Each failure
// allows one retry; the check and the claim happen under one lock.
func (f *Form) Retry(ctx context.Context) (*models.SubmissionResult, error) {
	f.mu.Lock()
	if f.state != Failure || f.last == nil || !f.last.Retryable || f.retried {
		f.mu.Unlock()
		return nil, ErrNoRetry
	}
	f.retried = true
	req := f.begin()
	f.mu.Unlock()

	return f.finish(f.submitter.Submit(ctx, &req), true), nil
}

// Reset returns a finished form to Idle, keeping its values
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Submitting {
		f.state = Idle
	}
}

// begin marks the form as submitting and snapshots its values. Callers hold mu.
func (f *Form) begin() models.WaitlistRequest {
	f.state = Submitting
	return f.values
}

func (f *Form) finish(res *models.SubmissionResult, retry bool) *models.SubmissionResult {
	if res == nil {
		res = &models.SubmissionResult{Message: services.MsgGeneric}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.last = res
	f.retried = retry
	if res.OK {
		f.state = Success
		f.values = models.WaitlistRequest{}
	} else {
		f.state = Failure
	}
	return res
}
