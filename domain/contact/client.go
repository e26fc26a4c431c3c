package contact

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

type SubmissionState string

const (
	StateIdle       SubmissionState = "idle"
	StateSubmitting SubmissionState = "submitting"
	StateSubmitted  SubmissionState = "submitted"
	StateFailed     SubmissionState = "failed"
)

var (
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrInvalidForm        = errors.New("contact form has invalid fields")
	ErrSubmissionFailed   = errors.New("contact submission failed")
)

const contactEndpoint = "/api/contact"

// FormSession drives one visitor's contact form against POST /api/contact.
// It allows a single request in flight and reuses the idempotency key while
// the form contents are unchanged.
type FormSession struct {
	client *resty.Client

	mu          sync.Mutex
	form        ContactForm
	state       SubmissionState
	lastError   string
	fieldErrors FieldErrors
	receipt     *ContactResponse

	key            string
	keyFingerprint string
	newKey         func() string
}

func NewFormSession(baseURL string, timeout time.Duration) *FormSession {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return NewFormSessionWithClient(client)
}

func NewFormSessionWithClient(client *resty.Client) *FormSession {
	return &FormSession{
		client: client,
		state:  StateIdle,
		newKey: uuid.NewString,
	}
}

// Edit applies fn to the form under the session lock.
func (s *FormSession) Edit(fn func(form *ContactForm)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.form)
}

func (s *FormSession) SetDemoRequest(on bool) {
	s.Edit(func(form *ContactForm) { form.SetDemoRequest(on) })
}

// Form returns a copy of the current form contents.
func (s *FormSession) Form() ContactForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

func (s *FormSession) State() SubmissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Error is the message to show after a failed submission.
func (s *FormSession) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *FormSession) FieldErrors() FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fieldErrors
}

func (s *FormSession) Receipt() *ContactResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receipt
}

// Submit validates locally and, only when every rule passes, posts the form.
// Field errors leave the state untouched and never touch the network.
func (s *FormSession) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}

	ok, fieldErrs := s.form.Validate()
	s.fieldErrors = fieldErrs
	if !ok {
		s.mu.Unlock()
		return ErrInvalidForm
	}

	req := ToContactRequest(&s.form)
	key := s.idempotencyKeyLocked()
	s.state = StateSubmitting
	s.lastError = ""
	s.receipt = nil
	s.mu.Unlock()

	response, errMsg := s.post(ctx, req, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if errMsg != "" {
		s.state = StateFailed
		s.lastError = errMsg
		return fmt.Errorf("%w: %s", ErrSubmissionFailed, errMsg)
	}

	s.state = StateSubmitted
	s.receipt = response
	s.form.Reset()
	s.key, s.keyFingerprint = "", ""
	return nil
}

// post returns the receipt, or the user-facing error message.
func (s *FormSession) post(ctx context.Context, req *ContactRequest, key string) (*ContactResponse, string) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(idempotencyHeader, key).
		SetBody(req).
		SetResult(&ContactResponse{}).
		SetError(&ErrorResponse{}).
		Post(contactEndpoint)
	if err != nil {
		return nil, MsgClientFallback
	}

	if resp.IsError() || resp.StatusCode() != http.StatusOK {
		if body, ok := resp.Error().(*ErrorResponse); ok && body != nil && body.Error != "" {
			return nil, body.Error
		}
		return nil, MsgClientFallback
	}

	result, ok := resp.Result().(*ContactResponse)
	if !ok || result == nil || !result.Success {
		return nil, MsgClientFallback
	}
	return result, ""
}

func (s *FormSession) idempotencyKeyLocked() string {
	fp := s.form.Fingerprint()
	if s.key == "" || fp != s.keyFingerprint {
		s.key = s.newKey()
		s.keyFingerprint = fp
	}
	return s.key
}
