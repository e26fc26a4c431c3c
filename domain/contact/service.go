package contact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/akeren/acs-site/internal/log"
	"github.com/akeren/acs-site/internal/models"
	"github.com/akeren/acs-site/pkg/circuitbreaker"
	"github.com/akeren/acs-site/pkg/constants"
	apperrors "github.com/akeren/acs-site/pkg/errors"
	"github.com/akeren/acs-site/pkg/mailer"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	MsgMissingFields      = "Missing required fields."
	MsgConfigurationError = "Email service configuration error."
	MsgConnectionFailed   = "Email service connection failed."
	MsgSendFailed         = "Failed to send email."
	MsgInvalidBody        = "Invalid request body."
	MsgSubmissionPending  = "A submission with this idempotency key is already in progress."
	MsgClientFallback     = "Failed to send message. Please try again later."
)

const (
	idempotencyPrefix  = "contact:idempotency:"
	idempotencyPending = "pending"
)

type ContactService interface {
	// Submit relays one contact submission as exactly one email.
	Submit(ctx context.Context, req *ContactRequest, opts SubmitOptions) (*ContactResponse, error)

	// VerifyRelay checks that the relay is reachable with the configured credentials.
	VerifyRelay(ctx context.Context) error

	// RecentDispatches lists the newest relay outcomes.
	RecentDispatches(ctx context.Context, limit int) ([]DispatchRecordResponse, error)

	// RelayHealth reports the relay circuit breaker state.
	RelayHealth() circuitbreaker.CircuitBreakerMetrics
}

// IdempotencyStore is the subset of the shared cache used to deduplicate submissions.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

type Settings struct {
	Sender           mailer.Address
	Recipients       []string
	SubjectPrefix    string
	VerifyBeforeSend bool
	SendTimeout      time.Duration
	IdempotencyTTL   time.Duration
	// Configured is false when relay credentials are missing.
	Configured bool
}

type contactService struct {
	logger     *log.Logger
	relay      mailer.Relay
	composer   *Composer
	repository DispatchRepository
	store      IdempotencyStore
	breaker    circuitbreaker.CircuitBreaker
	settings   Settings
	metrics    *contactMetrics
}

func NewContactService(
	logger *log.Logger,
	relay mailer.Relay,
	repository DispatchRepository,
	store IdempotencyStore,
	settings Settings,
	registerer prometheus.Registerer,
) (ContactService, error) {
	composer, err := NewComposer(settings.Sender, settings.Recipients, settings.SubjectPrefix)
	if err != nil {
		return nil, err
	}

	if settings.SendTimeout <= 0 {
		settings.SendTimeout = constants.DefaultMailSendTimeout
	}
	if settings.IdempotencyTTL <= 0 {
		settings.IdempotencyTTL = constants.DefaultContactIdempotencyTTL
	}

	s := &contactService{
		logger:     logger,
		relay:      relay,
		composer:   composer,
		repository: repository,
		store:      store,
		settings:   settings,
		metrics:    newContactMetrics(registerer),
	}

	s.breaker = circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 1,
		// Only an unreachable relay opens the circuit. A rejected message is
		// that submission's own failure.
		IsFailure: mailer.IsConnectionError,
		OnStateChange: func(from, to circuitbreaker.CircuitState) {
			logger.Warn("Email relay circuit changed state", "from", from.String(), "to", to.String())
		},
	})

	return s, nil
}

func (s *contactService) Submit(ctx context.Context, req *ContactRequest, opts SubmitOptions) (*ContactResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger).Scope("contact")

	ctx, span := otel.Tracer("contact").Start(ctx, "contact.submit")
	defer span.End()

	logger.Info("Contact submission received")

	if !req.hasAllFields() {
		logger.Warn("Contact submission is missing required fields")
		s.metrics.observe("invalid")
		span.SetAttributes(attribute.String("contact.outcome", "invalid"))
		return nil, apperrors.NewInvalidRequestError(MsgMissingFields, nil)
	}

	if !s.settings.Configured {
		logger.Error("Email credentials are not configured")
		s.metrics.observe(models.DispatchOutcomeConfigError)
		s.record(ctx, opts, models.DispatchOutcomeConfigError, nil, "missing relay credentials", 0)
		span.SetStatus(codes.Error, MsgConfigurationError)
		return nil, apperrors.NewConfigurationError(MsgConfigurationError, nil)
	}

	idemKey := ""
	if key := normalizeIdempotencyKey(opts.IdempotencyKey); key != "" && s.store != nil {
		idemKey = idempotencyPrefix + key + ":" + fingerprint(req)

		replay, err := s.claim(ctx, idemKey)
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				s.metrics.observe("conflict")
				return nil, err
			}
			logger.Warn("Idempotency store unavailable; continuing without deduplication", "error", err)
			idemKey = ""
		} else if replay != nil {
			logger.Info("Replaying stored response for idempotency key", "message_id", replay.MessageID)
			s.metrics.observe("replayed")
			span.SetAttributes(attribute.Bool("contact.replayed", true))
			return replay, nil
		}
	}

	response, err := s.dispatch(ctx, logger, req, opts)
	if err != nil {
		if mailer.IsOutcomeUnknown(err) {
			// The relay may have accepted the message; a retry must not send it twice.
			s.hold(ctx, logger, idemKey)
		} else {
			s.release(ctx, logger, idemKey)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.GetHumanReadableMessage(err))
		return nil, err
	}

	s.remember(ctx, logger, idemKey, response)
	span.SetAttributes(
		attribute.String("contact.outcome", models.DispatchOutcomeSent),
		attribute.String("mail.provider", s.relay.Name()),
	)
	return response, nil
}

func (s *contactService) dispatch(ctx context.Context, logger *log.Logger, req *ContactRequest, opts SubmitOptions) (*ContactResponse, error) {
	envelope, err := s.composer.Compose(req)
	if err != nil {
		logger.Error("Failed to compose contact email", "error", err)
		return nil, apperrors.NewInternalServerError(MsgSendFailed, err)
	}

	if s.settings.VerifyBeforeSend {
		logger.Info("Verifying email relay connection", "provider", s.relay.Name())

		if err := s.verify(ctx); err != nil {
			logger.Error("Email relay verification failed", "provider", s.relay.Name(), "error", err)
			s.metrics.observe(models.DispatchOutcomeConnectionFailed)
			s.record(ctx, opts, models.DispatchOutcomeConnectionFailed, nil, relayCause(err).Error(), 0)
			return nil, apperrors.NewRelayConnectionError(MsgConnectionFailed, err)
		}
	}

	logger.Info("Sending contact email", "provider", s.relay.Name(), "subject_length", len(envelope.Subject))

	start := time.Now()
	var receipt *mailer.Receipt
	err = s.breaker.Call(func() error {
		sendCtx, cancel := context.WithTimeout(ctx, s.settings.SendTimeout)
		defer cancel()

		var sendErr error
		receipt, sendErr = s.relay.Send(sendCtx, envelope)
		return sendErr
	})
	latency := time.Since(start)
	s.metrics.relayDuration.Observe(latency.Seconds())

	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		logger.Error("Email relay circuit is open; failing fast")
		s.metrics.observe(models.DispatchOutcomeConnectionFailed)
		s.record(ctx, opts, models.DispatchOutcomeConnectionFailed, nil, err.Error(), latency)
		return nil, apperrors.NewRelayConnectionError(MsgConnectionFailed, err)
	}

	if mailer.IsOutcomeUnknown(err) {
		cause := relayCause(err)
		logger.Error("Email relay timed out mid-delivery; outcome unknown", "provider", s.relay.Name(), "error", cause)
		s.metrics.observe(models.DispatchOutcomeIndeterminate)
		s.record(ctx, opts, models.DispatchOutcomeIndeterminate, nil, cause.Error(), latency)
		return nil, apperrors.NewRelayDispatchError(MsgSendFailed, cause)
	}

	if err != nil {
		cause := relayCause(err)
		logger.Error("Failed to send contact email", "provider", s.relay.Name(), "error", cause)
		s.metrics.observe(models.DispatchOutcomeDispatchFailed)
		s.record(ctx, opts, models.DispatchOutcomeDispatchFailed, nil, cause.Error(), latency)
		return nil, apperrors.NewRelayDispatchError(MsgSendFailed, cause)
	}

	logger.Info("Contact email sent",
		"provider", receipt.Provider,
		"message_id", receipt.MessageID,
		"latency_ms", latency.Milliseconds(),
	)
	s.metrics.observe(models.DispatchOutcomeSent)
	s.record(ctx, opts, models.DispatchOutcomeSent, receipt, "", latency)

	return &ContactResponse{
		Success:   true,
		MessageID: receipt.MessageID,
		Response:  receipt.Response,
	}, nil
}

func (s *contactService) verify(ctx context.Context) error {
	return s.breaker.Call(func() error {
		verifyCtx, cancel := context.WithTimeout(ctx, s.settings.SendTimeout)
		defer cancel()
		return s.relay.Verify(verifyCtx)
	})
}

func (s *contactService) VerifyRelay(ctx context.Context) error {
	if !s.settings.Configured {
		return apperrors.NewConfigurationError(MsgConfigurationError, nil)
	}
	if err := s.verify(ctx); err != nil {
		return apperrors.NewRelayConnectionError(MsgConnectionFailed, err)
	}
	return nil
}

func (s *contactService) RecentDispatches(ctx context.Context, limit int) ([]DispatchRecordResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	records, err := s.repository.ListRecent(ctx, limit)
	if err != nil {
		logger.Error("Failed to list dispatch records", "error", err)
		return nil, err
	}

	responses := make([]DispatchRecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, ToDispatchRecordResponse(record))
	}
	return responses, nil
}

func (s *contactService) RelayHealth() circuitbreaker.CircuitBreakerMetrics {
	return s.breaker.Metrics()
}

// claim returns a stored response to replay, a conflict AppError while the
// same submission is in flight, or (nil, nil) when the caller owns the key.
func (s *contactService) claim(ctx context.Context, key string) (*ContactResponse, error) {
	ok, err := s.store.SetNX(ctx, key, idempotencyPending, s.pendingTTL())
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}

	stored, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if stored == "" || stored == idempotencyPending {
		return nil, apperrors.NewConflictError(MsgSubmissionPending, nil)
	}

	var response ContactResponse
	if err := json.Unmarshal([]byte(stored), &response); err != nil {
		return nil, apperrors.NewConflictError(MsgSubmissionPending, err)
	}
	return &response, nil
}

// pendingTTL bounds how long a crashed request can hold its key.
func (s *contactService) pendingTTL() time.Duration {
	ttl := 2*s.settings.SendTimeout + 10*time.Second
	if ttl > s.settings.IdempotencyTTL {
		return s.settings.IdempotencyTTL
	}
	return ttl
}

func (s *contactService) release(ctx context.Context, logger *log.Logger, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.Warn("Failed to release idempotency key", "error", err)
	}
}

// hold keeps the key pending for the full idempotency window.
func (s *contactService) hold(ctx context.Context, logger *log.Logger, key string) {
	if key == "" {
		return
	}
	if err := s.store.Set(context.WithoutCancel(ctx), key, idempotencyPending, s.settings.IdempotencyTTL); err != nil {
		logger.Warn("Failed to hold idempotency key", "error", err)
	}
}

func (s *contactService) remember(ctx context.Context, logger *log.Logger, key string, response *ContactResponse) {
	if key == "" {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		logger.Warn("Failed to encode response for idempotency", "error", err)
		return
	}

	if err := s.store.Set(context.WithoutCancel(ctx), key, string(payload), s.settings.IdempotencyTTL); err != nil {
		logger.Warn("Failed to store idempotent response", "error", err)
	}
}

func (s *contactService) record(ctx context.Context, opts SubmitOptions, outcome string, receipt *mailer.Receipt, detail string, latency time.Duration) {
	if s.repository == nil || !s.repository.Enabled() {
		return
	}

	record := &models.DispatchRecord{
		CorrelationID:  opts.CorrelationID,
		IdempotencyKey: normalizeIdempotencyKey(opts.IdempotencyKey),
		Provider:       s.relay.Name(),
		Outcome:        outcome,
		ErrorDetail:    detail,
		LatencyMs:      latency.Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	}
	if receipt != nil {
		record.MessageID = receipt.MessageID
		record.RelayResponse = receipt.Response
	}

	if err := s.repository.RecordDispatch(context.WithoutCancel(ctx), record); err != nil {
		s.logger.Warn("Failed to record dispatch", "outcome", outcome, "error", err)
	}
}

// relayCause strips the relay wrapper so callers see the provider's own message.
func relayCause(err error) error {
	var connErr *mailer.ConnectionError
	if errors.As(err, &connErr) && connErr.Err != nil {
		return connErr.Err
	}
	var sendErr *mailer.SendError
	if errors.As(err, &sendErr) && sendErr.Err != nil {
		return sendErr.Err
	}
	return err
}

func fingerprint(req *ContactRequest) string {
	sum := sha256.Sum256([]byte(req.Name + "\x1f" + req.Email + "\x1f" + req.Subject + "\x1f" + req.Message))
	return hex.EncodeToString(sum[:8])
}
