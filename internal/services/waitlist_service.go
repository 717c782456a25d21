package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/swcolombo/waitlist-api/config"
	"github.com/swcolombo/waitlist-api/internal/models"
	apperrors "github.com/swcolombo/waitlist-api/pkg/errors"
	"github.com/swcolombo/waitlist-api/pkg/httpclient"
	"github.com/swcolombo/waitlist-api/pkg/logger"
	"github.com/swcolombo/waitlist-api/pkg/metrics"
	"github.com/swcolombo/waitlist-api/pkg/sanitize"
	"github.com/swcolombo/waitlist-api/pkg/sheets"
	"github.com/swcolombo/waitlist-api/pkg/trigger"
)

// Messages shown to the submitter
const (
	MsgSuccess         = "Thanks! You're on the waitlist."
	MsgDeduped         = "You were already on the list."
	MsgSpam            = "Spam check failed."
	MsgNotConfigured   = "Server endpoint is not configured."
	MsgGeneric         = "Something went wrong. Please try again."
	MsgInFlight        = "A submission is already in progress."
	MsgRemoteFallback  = "Unknown error"
	MsgInvalidFallback = "Invalid input"

	maxRemoteMessageLen = 200
)

// Per-field messages, keyed by the Go field name
var fieldMessages = map[string]string{
	"Name":        "Please enter your full name",
	"Email":       "Enter a valid email",
	"Designation": "Please choose a valid designation",
	"Company":     "Company name must be at most 120 characters",
	"Contact":     "Contact number must be at most 30 characters",
}

// in-flight entries outlive the request timeout by this much
const inFlightSlack = 5 * time.Second

// WaitlistService validates lead-capture submissions and forwards them to the
// spreadsheet endpoint
type WaitlistService struct {
	config      config.WaitlistConfig
	fieldSet    models.FieldSet
	sheetClient *sheets.Client
	httpClient  httpclient.Client
	validate    *validator.Validate
	inFlight    *gocache.Cache
	inFlightTTL time.Duration
}

// NewWaitlistService creates a new waitlist service instance
func NewWaitlistService(cfg *config.Config, httpClient httpclient.Client) *WaitlistService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("designation", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag name
		return models.Designation(fl.Field().String()).IsValid()
	})

	ttl := cfg.Waitlist.Timeout() + inFlightSlack

	return &WaitlistService{
		config:   cfg.Waitlist,
		fieldSet: models.ParseFieldSet(cfg.Waitlist.FieldSet),
		sheetClient: sheets.NewClient(cfg.Waitlist.EndpointURL, httpClient,
			sheets.WithTimeout(cfg.Waitlist.Timeout()),
			sheets.WithStrictResponses(cfg.Waitlist.StrictResponse),
		),
		httpClient:  httpClient,
		validate:    validate,
		inFlight:    gocache.New(ttl, time.Minute),
		inFlightTTL: ttl,
	}
}

// FieldSet returns the active field set
func (s *WaitlistService) FieldSet() models.FieldSet {
	return s.fieldSet
}

// Configured reports whether an endpoint is set
func (s *WaitlistService) Configured() bool {
	return s.config.EndpointURL != ""
}

// CircuitOpen reports whether submissions are being refused because the
// endpoint kept failing
func (s *WaitlistService) CircuitOpen() bool {
	return s.sheetClient.CircuitOpen()
}

// Validate checks a normalized request and returns the first violation in
// field order (name, email, designation, company, contact). It is pure.
func (s *WaitlistService) Validate(req *models.WaitlistRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return apperrors.ValidationError("request", MsgInvalidFallback)
	}

	first := validationErrors[0]
	msg, ok := fieldMessages[first.StructField()]
	if !ok {
		msg = MsgInvalidFallback
	}
	return apperrors.ValidationError(strings.ToLower(first.StructField()), msg)
}

// Submit runs one submission through the pipeline. It never returns a Go
// error: every failure ends as a result with OK false.
func (s *WaitlistService) Submit(ctx context.Context, raw *models.WaitlistRequest) *models.SubmissionResult {
	submissionID := uuid.NewString()
	log := logger.With(
		zap.String("submission_id", submissionID),
		zap.String("field_set", string(s.fieldSet)),
	)

	req := s.prepare(raw)

	// Honeypot wins over field errors: a filled trap always gets the same
	// generic answer, whatever else was sent.
	if req.Phone != "" {
		s.record("spam")
		log.Warn("Waitlist submission rejected by honeypot", zap.String("email", logger.MaskEmail(req.Email)))
		return failure(MsgSpam, apperrors.ErrSpamRejected)
	}

	// Local validation
	if err := s.Validate(&req); err != nil {
		var fieldErr *apperrors.FieldError
		msg := MsgInvalidFallback
		if apperrors.As(err, &fieldErr) {
			msg = fieldErr.Message
		}
		s.record("invalid")
		log.Info("Waitlist submission rejected by validation", zap.Error(err))
		return failure(msg, err)
	}

	// Endpoint
	if !s.Configured() {
		s.record("not_configured")
		log.Error("Waitlist endpoint is not configured; set WAITLIST_ENDPOINT")
		return failure(MsgNotConfigured, apperrors.ErrNotConfigured)
	}

	// One submission per email at a time
	key := inFlightKey(req.Email)
	if err := s.inFlight.Add(key, submissionID, s.inFlightTTL); err != nil {
		s.record("in_flight")
		log.Warn("Waitlist submission already in flight", zap.String("email", logger.MaskEmail(req.Email)))
		return failure(MsgInFlight, apperrors.ErrInFlight)
	}
	defer s.inFlight.Delete(key)

	// Serialize, send, interpret
	outcome, err := s.sheetClient.Submit(ctx, toLead(req))
	if err != nil {
		return s.submitFailure(log, err)
	}

	if outcome.Deduped {
		s.record("deduped")
		log.Info("Waitlist lead already registered", zap.String("email", logger.MaskEmail(req.Email)))
		return &models.SubmissionResult{OK: true, Message: MsgDeduped, Deduped: true}
	}

	s.record("success")
	log.Info("Waitlist lead registered",
		zap.String("email", logger.MaskEmail(req.Email)),
		zap.Bool("implicit_success", outcome.Implicit))
	trigger.NotifyAsync(s.config.NotifyURL, trigger.Event{
		Type:         "waitlist.joined",
		SubmissionID: submissionID,
		FieldSet:     string(s.fieldSet),
		At:           time.Now().UTC(),
	}, s.httpClient)
	return &models.SubmissionResult{OK: true, Message: MsgSuccess}
}

func (s *WaitlistService) submitFailure(log *zap.Logger, err error) *models.SubmissionResult {
	switch {
	case apperrors.Is(err, apperrors.ErrRemote):
		s.record("remote_error")
		log.Warn("Waitlist endpoint rejected submission", zap.Error(err))

		msg := MsgRemoteFallback
		var rejection *apperrors.RemoteRejection
		if apperrors.As(err, &rejection) {
			if text := sanitize.Truncate(sanitize.Text(rejection.Message), maxRemoteMessageLen); text != "" {
				msg = text
			}
		}
		return failure(msg, err)

	case apperrors.Is(err, apperrors.ErrNotConfigured):
		s.record("not_configured")
		log.Error("Waitlist endpoint is not configured", zap.Error(err))
		return failure(MsgNotConfigured, err)

	default:
		s.record("transport_error")
		log.Error("Waitlist submission failed in transit", zap.Error(err))

		msg := MsgGeneric
		if detail := sheets.Detail(err); detail != "" {
			msg = fmt.Sprintf("Could not reach the waitlist (%s). Please try again.", detail)
		}
		res := failure(msg, err)
		res.Retryable = true
		if !apperrors.Is(err, apperrors.ErrTransport) {
			res.Cause = apperrors.TransportError(err)
		}
		return res
	}
}

// prepare normalizes the raw form state and strips markup from free text
func (s *WaitlistService) prepare(raw *models.WaitlistRequest) models.WaitlistRequest {
	if raw == nil {
		raw = &models.WaitlistRequest{}
	}
	req := raw.Normalized(s.fieldSet)
	req.Name = sanitize.Text(req.Name)
	req.Company = sanitize.Text(req.Company)
	req.Contact = sanitize.Text(req.Contact)
	return req
}

func (s *WaitlistService) record(status string) {
	metrics.WaitlistSubmissions.WithLabelValues(string(s.fieldSet), status).Inc()
}

func toLead(req models.WaitlistRequest) sheets.Lead {
	return sheets.Lead{
		Name:        req.Name,
		Email:       req.Email,
		Designation: req.Designation,
		Company:     req.Company,
		Contact:     req.Contact,
	}
}

func inFlightKey(email string) string {
	return "waitlist:" + strings.ToLower(email)
}

func failure(msg string, cause error) *models.SubmissionResult {
	return &models.SubmissionResult{OK: false, Message: msg, Cause: cause}
}
