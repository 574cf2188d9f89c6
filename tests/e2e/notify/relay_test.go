//go:build e2e

package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"tutor-booking/internal/domain/user"
	"tutor-booking/internal/handler/dto/request"
	"tutor-booking/internal/handler/dto/response"
	"tutor-booking/internal/infra/notify"
	"tutor-booking/internal/pkg/clock"
	"tutor-booking/tests/common/builder"
	"tutor-booking/tests/common/dbtest"
	"tutor-booking/tests/common/httptest"
	"tutor-booking/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type published struct {
	routingKey string
	messageID  string
	body       []byte
}

type recordingPublisher struct {
	mu   sync.Mutex
	err  error
	sent []published
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey, messageID string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{routingKey: routingKey, messageID: messageID, body: body})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type relaySuite struct {
	e2e.SharedSuite

	student  *builder.UserBuilder
	provider *builder.ProviderBuilder
}

func TestRelaySuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(relaySuite))
}

func (s *relaySuite) SetupSubTest() {
	s.SharedSuite.SetupSubTest()
	s.student = builder.NewUserBuilder()
	s.provider = builder.NewProviderBuilder()
	dbtest.CreateTestUser(s.T(), s.DB, s.student)
	dbtest.CreateTestProvider(s.T(), s.DB, s.provider)
}

func (s *relaySuite) requestBooking() uuid.UUID {
	t := s.T()
	token := s.JWT.GenerateToken(t, s.student.ID, user.RoleStudent)
	w := httptest.PerformRequest(t, s.Router, http.MethodPost, "/api/bookings", request.CreateBookingRequest{
		ProviderID:  s.provider.ID,
		SessionMode: "in_person",
	}, token)
	var res response.BookingResponse
	httptest.AssertSuccessResponse(t, w, http.StatusCreated, &res)
	return uuid.MustParse(res.ID)
}

func (s *relaySuite) jobState(bookingID uuid.UUID) (status string, attempts int) {
	t := s.T()
	err := s.DB.QueryRow(t.Context(),
		"SELECT status, attempts FROM notification_jobs WHERE booking_id = $1 AND event = 'booking.created'",
		bookingID).Scan(&status, &attempts)
	require.NoError(t, err)
	return status, attempts
}

func (s *relaySuite) TestRunOnce() {
	s.Run("publishes the queued job once", func() {
		t := s.T()
		bookingID := s.requestBooking()

		pub := &recordingPublisher{}
		relay := notify.NewRelay(s.DB, pub, clock.NewMockClock(time.Now().Add(time.Minute)), notify.RelayOptions{MaxAttempts: 3})

		n, err := relay.RunOnce(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		require.Len(t, pub.sent, 1)
		assert.Equal(t, "booking.created", pub.sent[0].routingKey)

		var payload notify.Payload
		require.NoError(t, json.Unmarshal(pub.sent[0].body, &payload))
		assert.Equal(t, bookingID, payload.BookingID)
		assert.Equal(t, s.provider.UserID, payload.RecipientID)
		assert.Equal(t, s.student.ID, payload.ActorID)
		assert.Equal(t, payload.JobID.String(), pub.sent[0].messageID)
		assert.Contains(t, payload.Message, "£40.00")

		status, attempts := s.jobState(bookingID)
		assert.Equal(t, "sent", status)
		assert.Equal(t, 1, attempts)

		n, err = relay.RunOnce(t.Context())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Len(t, pub.sent, 1)
	})

	s.Run("retries with backoff then gives up", func() {
		t := s.T()
		bookingID := s.requestBooking()

		clk := clock.NewMockClock(time.Now().Add(time.Minute))
		pub := &recordingPublisher{err: errors.New("broker unavailable")}
		relay := notify.NewRelay(s.DB, pub, clk, notify.RelayOptions{MaxAttempts: 2, RetryBase: time.Second})

		n, err := relay.RunOnce(t.Context())
		require.NoError(t, err)
		assert.Zero(t, n)
		status, attempts := s.jobState(bookingID)
		assert.Equal(t, "queued", status)
		assert.Equal(t, 1, attempts)

		// not due yet
		_, err = relay.RunOnce(t.Context())
		require.NoError(t, err)
		_, attempts = s.jobState(bookingID)
		assert.Equal(t, 1, attempts)

		clk.Add(time.Hour)
		_, err = relay.RunOnce(t.Context())
		require.NoError(t, err)
		status, attempts = s.jobState(bookingID)
		assert.Equal(t, "failed", status)
		assert.Equal(t, 2, attempts)
	})
}
