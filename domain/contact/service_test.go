package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/akeren/acs-site/internal/log"
	"github.com/akeren/acs-site/internal/models"
	"github.com/akeren/acs-site/pkg/circuitbreaker"
	apperrors "github.com/akeren/acs-site/pkg/errors"
	"github.com/akeren/acs-site/pkg/mailer"
	"github.com/akeren/acs-site/pkg/memcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testSettings() Settings {
	return Settings{
		Sender:           mailer.Address{Name: "ACS Contact Form", Email: "info@automatedconsultancy.com"},
		Recipients:       []string{"support@automatedconsultancy.com"},
		SubjectPrefix:    "[ACS Contact]",
		VerifyBeforeSend: true,
		SendTimeout:      5 * time.Second,
		IdempotencyTTL:   time.Hour,
		Configured:       true,
	}
}

func validRequest() *ContactRequest {
	return &ContactRequest{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Subject: "Pricing question",
		Message: "How much does the lead scoring cost?",
	}
}

type serviceFixture struct {
	relay   *MockRelay
	repo    *MockDispatchRepository
	service ContactService
}

func newServiceFixture(t *testing.T, settings Settings, store IdempotencyStore) *serviceFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	relay := NewMockRelay(ctrl)
	repo := NewMockDispatchRepository(ctrl)

	relay.EXPECT().Name().Return("smtp").AnyTimes()
	repo.EXPECT().Enabled().Return(true).AnyTimes()

	service, err := NewContactService(log.NewLoggerWithJSONOutput(), relay, repo, store, settings, nil)
	require.NoError(t, err)

	return &serviceFixture{relay: relay, repo: repo, service: service}
}

func outcomeIs(outcome string) gomock.Matcher {
	return gomock.Cond(func(x any) bool {
		record, ok := x.(*models.DispatchRecord)
		return ok && record.Outcome == outcome
	})
}

func TestContactService_Submit(t *testing.T) {
	t.Run("successful submission sends exactly one email", func(t *testing.T) {
		f := newServiceFixture(t, testSettings(), nil)

		var sent *mailer.Envelope
		f.relay.EXPECT().Verify(gomock.Any()).Return(nil)
		f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, env *mailer.Envelope) (*mailer.Receipt, error) {
				sent = env
				return &mailer.Receipt{MessageID: "<id-1@acs>", Response: "250 OK", Provider: "smtp"}, nil
			}).
			Times(1)
		f.repo.EXPECT().RecordDispatch(gomock.Any(), outcomeIs(models.DispatchOutcomeSent)).Return(nil)

		response, err := f.service.Submit(context.Background(), validRequest(), SubmitOptions{})

		require.NoError(t, err)
		assert.Equal(t, &ContactResponse{Success: true, MessageID: "<id-1@acs>", Response: "250 OK"}, response)

		require.NotNil(t, sent)
		assert.Equal(t, "info@automatedconsultancy.com", sent.From.Email)
		assert.Equal(t, "ada@example.com", sent.ReplyTo)
		assert.Equal(t, []string{"support@automatedconsultancy.com"}, sent.To)
		assert.Equal(t, "[ACS Contact] Pricing question", sent.Subject)
		assert.Equal(t, "Name: Ada Lovelace\nEmail: ada@example.com\n\nHow much does the lead scoring cost?", sent.Text)
	})

	t.Run("sender never comes from the submitter", func(t *testing.T) {
		f := newServiceFixture(t, testSettings(), nil)

		req := validRequest()
		req.Email = "attacker@evil.example\r\nBcc: victim@example.com"

		f.relay.EXPECT().Verify(gomock.Any()).Return(nil)
		f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, env *mailer.Envelope) (*mailer.Receipt, error) {
				assert.Equal(t, "info@automatedconsultancy.com", env.From.Email)
				assert.NotContains(t, env.ReplyTo, "\n")
				assert.NotContains(t, env.ReplyTo, "\r")
				return &mailer.Receipt{MessageID: "<id@acs>", Response: "250 OK"}, nil
			})
		f.repo.EXPECT().RecordDispatch(gomock.Any(), gomock.Any()).Return(nil)

		_, err := f.service.Submit(context.Background(), req, SubmitOptions{})
		require.NoError(t, err)
	})

	t.Run("html body escapes every user field", func(t *testing.T) {
		f := newServiceFixture(t, testSettings(), nil)

		req := &ContactRequest{
			Name:    "<script>alert(1)</script>",
			Email:   "x@y.co",
			Subject: "Hello there",
			Message: "line one\n<b>line two</b>",
		}

		f.relay.EXPECT().Verify(gomock.Any()).Return(nil)
		f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, env *mailer.Envelope) (*mailer.Receipt, error) {
				assert.NotContains(t, env.HTML, "<script>")
				assert.Contains(t, env.HTML, "&lt;script&gt;")
				assert.Contains(t, env.HTML, "line one<br/>&lt;b&gt;line two&lt;/b&gt;")
				return &mailer.Receipt{}, nil
			})
		f.repo.EXPECT().RecordDispatch(gomock.Any(), gomock.Any()).Return(nil)

		_, err := f.service.Submit(context.Background(), req, SubmitOptions{})
		require.NoError(t, err)
	})

	t.Run("missing field never reaches the relay", func(t *testing.T) {
		for _, blank := range []string{"name", "email", "subject", "message"} {
			f := newServiceFixture(t, testSettings(), nil)

			req := validRequest()
			switch blank {
			case "name":
				req.Name = ""
			case "email":
				req.Email = ""
			case "subject":
				req.Subject = ""
			case "message":
				req.Message = ""
			}

			response, err := f.service.Submit(context.Background(), req, SubmitOptions{})

			assert.Nil(t, response, blank)
			assert.Equal(t, 400, apperrors.HTTPStatusCode(err), blank)
			assert.Equal(t, MsgMissingFields, apperrors.GetHumanReadableMessage(err), blank)
		}
	})

	t.Run("unconfigured relay is a configuration error", func(t *testing.T) {
		settings := testSettings()
		settings.Configured = false
		f := newServiceFixture(t, settings, nil)

		f.repo.EXPECT().RecordDispatch(gomock.Any(), outcomeIs(models.DispatchOutcomeConfigError)).Return(nil)

		_, err := f.service.Submit(context.Background(), validRequest(), SubmitOptions{})

		assert.Equal(t, 500, apperrors.HTTPStatusCode(err))
		assert.Equal(t, MsgConfigurationError, apperrors.GetHumanReadableMessage(err))
	})

	t.Run("verification failure skips the send", func(t *testing.T) {
		f := newServiceFixture(t, testSettings(), nil)

		f.relay.EXPECT().Verify(gomock.Any()).
			Return(&mailer.ConnectionError{Provider: "smtp", Err: errors.New("dial tcp: connection refused")})
		f.repo.EXPECT().RecordDispatch(gomock.Any(), outcomeIs(models.DispatchOutcomeConnectionFailed)).Return(nil)

		_, err := f.service.Submit(context.Background(), validRequest(), SubmitOptions{})

		assert.Equal(t, 500, apperrors.HTTPStatusCode(err))
		assert.Equal(t, MsgConnectionFailed, apperrors.GetHumanReadableMessage(err))
		assert.Empty(t, apperrors.Details(err))
	})

	t.Run("send failure surfaces the relay diagnostic", func(t *testing.T) {
		f := newServiceFixture(t, testSettings(), nil)

		f.relay.EXPECT().Verify(gomock.Any()).Return(nil)
		f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).
			Return(nil, &mailer.SendError{Provider: "smtp", Err: errors.New("550 mailbox unavailable")})
		f.repo.EXPECT().RecordDispatch(gomock.Any(), outcomeIs(models.DispatchOutcomeDispatchFailed)).Return(nil)

		_, err := f.service.Submit(context.Background(), validRequest(), SubmitOptions{})

		assert.Equal(t, 500, apperrors.HTTPStatusCode(err))
		assert.Equal(t, MsgSendFailed, apperrors.GetHumanReadableMessage(err))
		assert.Equal(t, "550 mailbox unavailable", apperrors.Details(err))
	})

	t.Run("dispatch log failure does not fail the submission", func(t *testing.T) {
		f := newServiceFixture(t, testSettings(), nil)

		f.relay.EXPECT().Verify(gomock.Any()).Return(nil)
		f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).Return(&mailer.Receipt{MessageID: "<m@acs>"}, nil)
		f.repo.EXPECT().RecordDispatch(gomock.Any(), gomock.Any()).Return(apperrors.NewDatabaseError("down", nil))

		response, err := f.service.Submit(context.Background(), validRequest(), SubmitOptions{})

		require.NoError(t, err)
		assert.True(t, response.Success)
	})
}

func TestContactService_Idempotency(t *testing.T) {
	settings := testSettings()
	settings.VerifyBeforeSend = false

	t.Run("replays the stored response without sending again", func(t *testing.T) {
		f := newServiceFixture(t, settings, memcache.New())

		f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).
			Return(&mailer.Receipt{MessageID: "<once@acs>", Response: "250 OK"}, nil).
			Times(1)
		f.repo.EXPECT().RecordDispatch(gomock.Any(), gomock.Any()).Return(nil).Times(1)

		opts := SubmitOptions{IdempotencyKey: "key-123"}
		first, err := f.service.Submit(context.Background(), validRequest(), opts)
		require.NoError(t, err)

		second, err := f.service.Submit(context.Background(), validRequest(), opts)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("same key with different contents is a new submission", func(t *testing.T) {
		f := newServiceFixture(t, settings, memcache.New())

		f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).Return(&mailer.Receipt{MessageID: "<m@acs>"}, nil).Times(2)
		f.repo.EXPECT().RecordDispatch(gomock.Any(), gomock.Any()).Return(nil).Times(2)

		opts := SubmitOptions{IdempotencyKey: "key-123"}
		_, err := f.service.Submit(context.Background(), validRequest(), opts)
		require.NoError(t, err)

		changed := validRequest()
		changed.Message = "A completely different message body"
		_, err = f.service.Submit(context.Background(), changed, opts)
		require.NoError(t, err)
	})

	t.Run("in-flight key is a conflict", func(t *testing.T) {
		store := memcache.New()
		f := newServiceFixture(t, settings, store)

		key := idempotencyPrefix + "key-123:" + fingerprint(validRequest())
		require.NoError(t, store.Set(context.Background(), key, idempotencyPending, time.Minute))

		_, err := f.service.Submit(context.Background(), validRequest(), SubmitOptions{IdempotencyKey: "key-123"})

		assert.Equal(t, 409, apperrors.HTTPStatusCode(err))
		assert.Equal(t, MsgSubmissionPending, apperrors.GetHumanReadableMessage(err))
	})

	t.Run("failed send releases the key for a retry", func(t *testing.T) {
		f := newServiceFixture(t, settings, memcache.New())

		gomock.InOrder(
			f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).
				Return(nil, &mailer.SendError{Provider: "smtp", Err: errors.New("timeout")}),
			f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).
				Return(&mailer.Receipt{MessageID: "<retry@acs>"}, nil),
		)
		f.repo.EXPECT().RecordDispatch(gomock.Any(), gomock.Any()).Return(nil).Times(2)

		opts := SubmitOptions{IdempotencyKey: "key-123"}
		_, err := f.service.Submit(context.Background(), validRequest(), opts)
		require.Error(t, err)

		response, err := f.service.Submit(context.Background(), validRequest(), opts)
		require.NoError(t, err)
		assert.Equal(t, "<retry@acs>", response.MessageID)
	})

	t.Run("send cut off mid-delivery keeps the key held", func(t *testing.T) {
		store := memcache.New()
		f := newServiceFixture(t, settings, store)

		unknown := &mailer.SendError{Provider: "smtp", Err: fmt.Errorf("%w: %w", mailer.ErrOutcomeUnknown, context.DeadlineExceeded)}
		f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil, unknown).Times(1)
		f.repo.EXPECT().RecordDispatch(gomock.Any(), outcomeIs(models.DispatchOutcomeIndeterminate)).Return(nil).Times(1)

		opts := SubmitOptions{IdempotencyKey: "key-123"}
		_, err := f.service.Submit(context.Background(), validRequest(), opts)
		assert.Equal(t, MsgSendFailed, apperrors.GetHumanReadableMessage(err))
		assert.Contains(t, apperrors.Details(err), "delivery outcome unknown")

		_, err = f.service.Submit(context.Background(), validRequest(), opts)
		assert.Equal(t, 409, apperrors.HTTPStatusCode(err))
		assert.Equal(t, MsgSubmissionPending, apperrors.GetHumanReadableMessage(err))

		key := idempotencyPrefix + "key-123:" + fingerprint(validRequest())
		stored, err := store.Get(context.Background(), key)
		require.NoError(t, err)
		assert.Equal(t, idempotencyPending, stored)
	})

	t.Run("held key lives for the full idempotency window", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := NewMockIdempotencyStore(ctrl)
		store.EXPECT().SetNX(gomock.Any(), gomock.Any(), idempotencyPending, gomock.Any()).Return(true, nil)
		store.EXPECT().Set(gomock.Any(), gomock.Any(), idempotencyPending, settings.IdempotencyTTL).Return(nil)

		f := newServiceFixture(t, settings, store)
		f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).
			Return(nil, &mailer.SendError{Provider: "smtp", Err: mailer.ErrOutcomeUnknown})
		f.repo.EXPECT().RecordDispatch(gomock.Any(), gomock.Any()).Return(nil)

		_, err := f.service.Submit(context.Background(), validRequest(), SubmitOptions{IdempotencyKey: "key-123"})
		require.Error(t, err)
	})

	t.Run("unavailable store falls back to a plain send", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := NewMockIdempotencyStore(ctrl)
		store.EXPECT().SetNX(gomock.Any(), gomock.Any(), idempotencyPending, gomock.Any()).
			Return(false, errors.New("redis: connection refused"))

		f := newServiceFixture(t, settings, store)
		f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).Return(&mailer.Receipt{MessageID: "<m@acs>"}, nil)
		f.repo.EXPECT().RecordDispatch(gomock.Any(), gomock.Any()).Return(nil)

		response, err := f.service.Submit(context.Background(), validRequest(), SubmitOptions{IdempotencyKey: "key-123"})

		require.NoError(t, err)
		assert.True(t, response.Success)
	})

	t.Run("no key means no deduplication", func(t *testing.T) {
		f := newServiceFixture(t, settings, memcache.New())

		f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).Return(&mailer.Receipt{}, nil).Times(2)
		f.repo.EXPECT().RecordDispatch(gomock.Any(), gomock.Any()).Return(nil).Times(2)

		for i := 0; i < 2; i++ {
			_, err := f.service.Submit(context.Background(), validRequest(), SubmitOptions{})
			require.NoError(t, err)
		}
	})
}

func TestContactService_CircuitBreaker(t *testing.T) {
	settings := testSettings()
	settings.VerifyBeforeSend = false

	t.Run("unreachable relay opens the circuit", func(t *testing.T) {
		f := newServiceFixture(t, settings, nil)

		f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).
			Return(nil, &mailer.ConnectionError{Provider: "smtp", Err: errors.New("dial tcp: connection refused")}).
			Times(5)
		f.repo.EXPECT().RecordDispatch(gomock.Any(), gomock.Any()).Return(nil).Times(6)

		for i := 0; i < 5; i++ {
			_, err := f.service.Submit(context.Background(), validRequest(), SubmitOptions{})
			require.Error(t, err)
		}

		assert.Equal(t, circuitbreaker.Open, f.service.RelayHealth().State)

		_, err := f.service.Submit(context.Background(), validRequest(), SubmitOptions{})
		assert.Equal(t, MsgConnectionFailed, apperrors.GetHumanReadableMessage(err))
	})

	t.Run("rejected messages never open the circuit", func(t *testing.T) {
		f := newServiceFixture(t, settings, nil)

		f.relay.EXPECT().Send(gomock.Any(), gomock.Any()).
			Return(nil, &mailer.SendError{Provider: "smtp", Err: errors.New("554 rejected: content")}).
			Times(6)
		f.repo.EXPECT().RecordDispatch(gomock.Any(), outcomeIs(models.DispatchOutcomeDispatchFailed)).Return(nil).Times(6)

		for i := 0; i < 6; i++ {
			_, err := f.service.Submit(context.Background(), validRequest(), SubmitOptions{})
			assert.Equal(t, MsgSendFailed, apperrors.GetHumanReadableMessage(err))
		}

		assert.Equal(t, circuitbreaker.Closed, f.service.RelayHealth().State)
	})
}

func TestContactService_VerifyRelay(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		f := newServiceFixture(t, testSettings(), nil)
		f.relay.EXPECT().Verify(gomock.Any()).Return(nil)

		assert.NoError(t, f.service.VerifyRelay(context.Background()))
	})

	t.Run("unreachable", func(t *testing.T) {
		f := newServiceFixture(t, testSettings(), nil)
		f.relay.EXPECT().Verify(gomock.Any()).Return(&mailer.ConnectionError{Provider: "smtp", Err: errors.New("auth failed")})

		err := f.service.VerifyRelay(context.Background())
		assert.Equal(t, MsgConnectionFailed, apperrors.GetHumanReadableMessage(err))
	})
}

func TestContactService_RecentDispatches(t *testing.T) {
	f := newServiceFixture(t, testSettings(), nil)

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.repo.EXPECT().ListRecent(gomock.Any(), 10).Return([]*models.DispatchRecord{
		{ID: "a", Provider: "smtp", Outcome: models.DispatchOutcomeSent, MessageID: "<a@acs>", CreatedAt: created},
	}, nil)

	records, err := f.service.RecentDispatches(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "sent", records[0].Outcome)
	assert.True(t, strings.HasPrefix(records[0].CreatedAt, "2026-03-01"))
}
