//go:build unit

package api_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"tutor-booking/internal/domain/booking"
	"tutor-booking/internal/domain/review"
	"tutor-booking/internal/domain/user"
	"tutor-booking/internal/handler/api"
	resdto "tutor-booking/internal/handler/dto/response"
	"tutor-booking/internal/pkg/errs"
	"tutor-booking/internal/pkg/ptr"
	"tutor-booking/internal/usecase/commands"
	"tutor-booking/internal/usecase/queries"
	"tutor-booking/tests/common/builder"
	"tutor-booking/tests/common/httptest"
	"tutor-booking/tests/common/testutil"
	commandsmock "tutor-booking/tests/mock/commands"
	queriesmock "tutor-booking/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type BookingHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *commandsmock.MockBookingCommands
	mockQueries  *queriesmock.MockBookingQueries
	handler      *api.BookingHandler
	bb           *builder.BookingBuilder
}

func (s *BookingHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = commandsmock.NewMockBookingCommands(s.mockCtrl)
	s.mockQueries = queriesmock.NewMockBookingQueries(s.mockCtrl)
	s.handler = api.NewBookingHandler(s.mockCommands, s.mockQueries)
	s.bb = builder.NewBookingBuilder()

	// Mock authentication middleware: the bearer value is the caller's user id
	authMiddleware := func(c *gin.Context) {
		raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"kind": "unauthorized", "message": "Unauthorized"}})
			return
		}
		c.Set("user_id", id)
		c.Set("user_role", user.RoleStudent)
		c.Next()
	}

	g := s.router.Group("/api", authMiddleware)
	g.POST("/bookings", s.handler.Create)
	g.GET("/bookings", s.handler.List)
	g.GET("/bookings/:id", s.handler.Get)
	g.POST("/bookings/:id/respond", s.handler.Respond)
	g.POST("/bookings/:id/cancel", s.handler.Cancel)
	g.POST("/bookings/:id/complete", s.handler.Complete)
	g.POST("/bookings/:id/messages", s.handler.SendMessage)
	g.POST("/bookings/:id/messages/read", s.handler.MarkRead)
	g.GET("/bookings/:id/review-eligibility", s.handler.ReviewEligibility)
	g.GET("/providers/:id/stats", s.handler.ProviderStats)
}

func (s *BookingHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestBookingHandlerSuite(t *testing.T) {
	suite.Run(t, new(BookingHandlerTestSuite))
}

func (s *BookingHandlerTestSuite) studentToken() string { return s.bb.RequesterID.String() }
func (s *BookingHandlerTestSuite) tutorToken() string   { return s.bb.ProviderUserID.String() }

type testCaseBooking struct {
	name       string
	mutate     func(m map[string]any)
	expectCode int
}

// ================================================================================
// TestCreate
// ================================================================================

func (s *BookingHandlerTestSuite) TestCreate() {
	url := "/api/bookings"
	reqBody := s.bb.BuildCreateRequestDTO()
	created := s.bb.MustBuildDomain()

	s.Run("success: 201 with snapshot price and opening message", func() {
		s.mockCommands.EXPECT().CreateBooking(gomock.Any(), commands.CreateBookingInput{
			RequesterID:    s.bb.RequesterID,
			ProviderID:     s.bb.ProviderID,
			SessionMode:    "remote",
			PreferredDate:  s.bb.PreferredDate,
			OpeningMessage: s.bb.Message,
		}).Return(created, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, s.studentToken())

		var body resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &body)
		httptest.AssertHeaders(s.T(), rec, map[string]string{"Location": "/api/bookings/" + created.ID().String()})
		s.Equal("pending", body.Status)
		s.Equal("requester", body.ViewerRole)
		s.Equal(int64(4000), body.Price.AmountMinor)
		s.Equal("£40.00", body.Price.Display)
		s.Require().Len(body.Messages, 1)
		s.Equal("Hi", body.Messages[0].Content)
	})

	s.Run("error: 400 on request validation", func() {
		cases := []testCaseBooking{
			{name: "missing provider_id", mutate: testutil.Field("provider_id", nil), expectCode: http.StatusBadRequest},
			{name: "malformed provider_id", mutate: testutil.Field("provider_id", "not-a-uuid"), expectCode: http.StatusBadRequest},
			{name: "unknown session mode", mutate: testutil.Field("session_mode", "hybrid"), expectCode: http.StatusBadRequest},
			{name: "missing session mode", mutate: testutil.Field("session_mode", nil), expectCode: http.StatusBadRequest},
			{name: "preferred date too long", mutate: testutil.Field("preferred_date", strings.Repeat("d", 101)), expectCode: http.StatusBadRequest},
			{name: "message too long", mutate: testutil.Field("message", strings.Repeat("m", 2001)), expectCode: http.StatusBadRequest},
		}
		for _, tc := range cases {
			s.Run(tc.name, func() {
				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, testutil.DtoMap(s.T(), reqBody, tc.mutate), s.studentToken())
				httptest.AssertErrorResponse(s.T(), rec, tc.expectCode, "validation", "Invalid request")
			})
		}
	})

	s.Run("error: engine failures map by kind", func() {
		cases := []struct {
			name string
			err  error
			code int
			kind string
		}{
			{"duplicate pending", booking.ErrDuplicatePending, http.StatusConflict, "conflict"},
			{"unknown provider", booking.ErrProviderNotFound, http.StatusNotFound, "not_found"},
			{"self booking", booking.ErrSelfBooking, http.StatusBadRequest, "validation"},
			{"storage failure", errs.New("connection reset"), http.StatusInternalServerError, "internal"},
		}
		for _, tc := range cases {
			s.Run(tc.name, func() {
				s.mockCommands.EXPECT().CreateBooking(gomock.Any(), gomock.Any()).Return(nil, tc.err).Times(1)
				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, s.studentToken())
				httptest.AssertErrorResponse(s.T(), rec, tc.code, tc.kind, "")
			})
		}
	})

	s.Run("error: 401 without token", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "unauthorized", "")
	})
}

// ================================================================================
// TestRespond
// ================================================================================

func (s *BookingHandlerTestSuite) TestRespond() {
	pending := s.bb.MustBuildDomain()
	url := "/api/bookings/" + pending.ID().String() + "/respond"

	s.Run("success: tutor accepts with a note", func() {
		accepted := s.bb.MustBuildDomain(booking.StatusAccepted)
		s.mockCommands.EXPECT().
			RespondToBooking(gomock.Any(), s.bb.ProviderUserID, pending.ID(), booking.StatusAccepted, ptr.Of("Sure")).
			Return(&commands.TransitionResult{Booking: accepted}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url,
			map[string]any{"status": "accepted", "message": "Sure"}, s.tutorToken())

		var body resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("accepted", body.Status)
		s.Equal("provider", body.ViewerRole)
	})

	s.Run("error: 400 when status is not a response", func() {
		for _, status := range []string{"cancelled", "completed", "pending", ""} {
			rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, map[string]any{"status": status}, s.tutorToken())
			httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "validation", "")
		}
	})

	s.Run("error: 403 when the student responds", func() {
		s.mockCommands.EXPECT().RespondToBooking(gomock.Any(), s.bb.RequesterID, pending.ID(), booking.StatusAccepted, nil).
			Return(nil, booking.ErrRoleNotPermitted).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, map[string]any{"status": "accepted"}, s.studentToken())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusForbidden, "forbidden", "")
	})

	s.Run("error: 422 when already decided", func() {
		s.mockCommands.EXPECT().RespondToBooking(gomock.Any(), gomock.Any(), gomock.Any(), booking.StatusDeclined, nil).
			Return(nil, booking.ErrInvalidTransition).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, map[string]any{"status": "declined"}, s.tutorToken())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnprocessableEntity, "invalid_transition", "")
	})

	s.Run("error: 400 on malformed booking id", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings/abc/respond", map[string]any{"status": "accepted"}, s.tutorToken())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "validation", "invalid id")
	})
}

// ================================================================================
// TestCancel / TestComplete
// ================================================================================

func (s *BookingHandlerTestSuite) TestCancel() {
	pending := s.bb.MustBuildDomain()
	cancelled := s.bb.MustBuildDomain(booking.StatusCancelled)
	url := "/api/bookings/" + pending.ID().String() + "/cancel"

	s.Run("success: without body", func() {
		s.mockCommands.EXPECT().CancelBooking(gomock.Any(), s.bb.RequesterID, pending.ID(), nil).Return(&commands.TransitionResult{Booking: cancelled}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, s.studentToken())
		var body resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("cancelled", body.Status)
		s.False(body.ReviewLinked)
	})

	s.Run("success: chunked request with an empty body", func() {
		s.mockCommands.EXPECT().CancelBooking(gomock.Any(), s.bb.RequesterID, pending.ID(), nil).Return(&commands.TransitionResult{Booking: cancelled}, nil).Times(1)

		rec := httptest.PerformStreamedRequest(s.T(), s.router, http.MethodPost, url, strings.NewReader(""), s.studentToken())
		var body resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("cancelled", body.Status)
	})

	s.Run("success: chunked request with a note", func() {
		s.mockCommands.EXPECT().CancelBooking(gomock.Any(), s.bb.RequesterID, pending.ID(), ptr.Of("Sick")).Return(&commands.TransitionResult{Booking: cancelled}, nil).Times(1)

		rec := httptest.PerformStreamedRequest(s.T(), s.router, http.MethodPost, url, strings.NewReader(`{"message":"Sick"}`), s.studentToken())
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
	})

	s.Run("success: reviewed accepted booking keeps its review link", func() {
		s.mockCommands.EXPECT().CancelBooking(gomock.Any(), s.bb.RequesterID, pending.ID(), nil).
			Return(&commands.TransitionResult{Booking: cancelled, ReviewLinked: true}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, s.studentToken())
		var body resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("cancelled", body.Status)
		s.True(body.ReviewLinked)
	})

	s.Run("error: 400 on truncated chunked json", func() {
		rec := httptest.PerformStreamedRequest(s.T(), s.router, http.MethodPost, url, strings.NewReader(`{"message":`), s.studentToken())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "validation", "")
	})

	s.Run("success: with note", func() {
		s.mockCommands.EXPECT().CancelBooking(gomock.Any(), s.bb.RequesterID, pending.ID(), ptr.Of("Plans changed")).Return(&commands.TransitionResult{Booking: cancelled}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, map[string]any{"message": "Plans changed"}, s.studentToken())
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
	})

	s.Run("error: 403 for outsiders", func() {
		outsider := uuid.New()
		s.mockCommands.EXPECT().CancelBooking(gomock.Any(), outsider, pending.ID(), nil).Return(nil, booking.ErrNotParticipant).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, outsider.String())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusForbidden, "forbidden", "")
	})
}

func (s *BookingHandlerTestSuite) TestComplete() {
	accepted := s.bb.MustBuildDomain(booking.StatusAccepted)
	completed := s.bb.MustBuildDomain(booking.StatusAccepted, booking.StatusCompleted)
	url := "/api/bookings/" + accepted.ID().String() + "/complete"

	s.Run("success", func() {
		s.mockCommands.EXPECT().CompleteBooking(gomock.Any(), s.bb.ProviderUserID, accepted.ID(), ptr.Of("Done")).Return(&commands.TransitionResult{Booking: completed}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, map[string]any{"message": "Done"}, s.tutorToken())
		var body resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("completed", body.Status)
		s.False(body.ReviewLinked)
	})

	s.Run("error: 422 from pending", func() {
		s.mockCommands.EXPECT().CompleteBooking(gomock.Any(), gomock.Any(), gomock.Any(), nil).Return(nil, booking.ErrInvalidTransition).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, s.tutorToken())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnprocessableEntity, "invalid_transition", "")
	})
}

// ================================================================================
// TestMessages
// ================================================================================

func (s *BookingHandlerTestSuite) TestSendMessage() {
	bk := s.bb.MustBuildDomain(booking.StatusAccepted)
	url := "/api/bookings/" + bk.ID().String() + "/messages"

	s.Run("success: 201", func() {
		msg, err := bk.AppendMessage(s.bb.RequesterID, mustContent(s.T(), "See you then"), s.bb.Now.Add(time.Hour))
		s.Require().NoError(err)
		s.mockCommands.EXPECT().SendMessage(gomock.Any(), s.bb.RequesterID, bk.ID(), "See you then").Return(msg, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, map[string]any{"content": "See you then"}, s.studentToken())
		var body resdto.MessageResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &body)
		s.Equal("See you then", body.Content)
		s.Equal(s.bb.RequesterID.String(), body.SenderID)
		s.False(body.Read)
	})

	s.Run("error: 400 on empty or oversized content", func() {
		for _, content := range []any{"", nil, strings.Repeat("x", 2001)} {
			body := map[string]any{}
			if content != nil {
				body["content"] = content
			}
			rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, body, s.studentToken())
			httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "validation", "")
		}
	})

	s.Run("error: whitespace-only content rejected by engine", func() {
		s.mockCommands.EXPECT().SendMessage(gomock.Any(), gomock.Any(), gomock.Any(), "   ").Return(nil, booking.ErrEmptyMessage).Times(1)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, map[string]any{"content": "   "}, s.studentToken())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "validation", "")
	})
}

func (s *BookingHandlerTestSuite) TestMarkRead() {
	id := uuid.New()
	s.mockCommands.EXPECT().MarkThreadRead(gomock.Any(), s.bb.ProviderUserID, id).Return(2, nil).Times(1)

	rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings/"+id.String()+"/messages/read", nil, s.tutorToken())

	var body map[string]int
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
	s.Equal(2, body["marked"])
}

// ================================================================================
// TestQueries
// ================================================================================

func (s *BookingHandlerTestSuite) TestGet() {
	bk := s.bb.MustBuildDomain()

	s.Run("success", func() {
		s.mockQueries.EXPECT().GetBooking(gomock.Any(), s.bb.ProviderUserID, bk.ID()).
			Return(queries.NewBookingView(bk, s.bb.ProviderUserID, false), nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/bookings/"+bk.ID().String(), nil, s.tutorToken())
		var body resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(1, body.UnreadCount)
		s.Equal("provider", body.ViewerRole)
	})

	s.Run("error: 404", func() {
		s.mockQueries.EXPECT().GetBooking(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, booking.ErrBookingNotFound).Times(1)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/bookings/"+uuid.NewString(), nil, s.tutorToken())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "not_found", "")
	})
}

func (s *BookingHandlerTestSuite) TestList() {
	s.Run("success: forwards filters and cursor", func() {
		bk := s.bb.MustBuildDomain()
		next := &queries.Cursor{After: "next-page"}
		s.mockQueries.EXPECT().ListMyBookings(gomock.Any(), s.bb.RequesterID, queries.ListOptions{
			Role: "requester", Status: "pending", Limit: 5, After: &queries.Cursor{After: "abc"},
		}).Return(&queries.BookingPage{Items: []*queries.BookingView{queries.NewBookingView(bk, s.bb.RequesterID, false)}, NextCursor: next}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/bookings?role=requester&status=pending&limit=5&cursor=abc", nil, s.studentToken())
		var body resdto.BookingListResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Require().Len(body.Items, 1)
		s.Require().NotNil(body.NextCursor)
		s.Equal("next-page", *body.NextCursor)
	})

	s.Run("error: 400 on bad query", func() {
		for _, q := range []string{"role=admin", "status=archived", "limit=0", "limit=101"} {
			rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/bookings?"+q, nil, s.studentToken())
			httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "validation", "")
		}
	})

	s.Run("error: 400 on corrupt cursor", func() {
		s.mockQueries.EXPECT().ListMyBookings(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, queries.ErrInvalidCursor).Times(1)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/bookings?cursor=%25%25", nil, s.studentToken())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "validation", "invalid cursor")
	})
}

func (s *BookingHandlerTestSuite) TestReviewEligibility() {
	id := uuid.New()
	url := "/api/bookings/" + id.String() + "/review-eligibility"

	s.Run("eligible: 204", func() {
		s.mockQueries.EXPECT().CanPostReview(gomock.Any(), id, s.bb.RequesterID).Return(nil).Times(1)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, s.studentToken())
		s.Equal(http.StatusNoContent, rec.Code)
	})

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not the student", review.ErrNotBookingRequester, http.StatusForbidden},
		{"not completed", review.ErrBookingNotReviewable, http.StatusUnprocessableEntity},
		{"already reviewed", review.ErrReviewAlreadyExists, http.StatusConflict},
		{"unknown booking", booking.ErrBookingNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.mockQueries.EXPECT().CanPostReview(gomock.Any(), id, gomock.Any()).Return(tc.err).Times(1)
			rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, s.studentToken())
			httptest.AssertErrorResponse(s.T(), rec, tc.code, "", "")
		})
	}
}

func (s *BookingHandlerTestSuite) TestProviderStats() {
	providerID := uuid.New()
	url := "/api/providers/" + providerID.String() + "/stats"

	s.Run("success", func() {
		s.mockQueries.EXPECT().GetProviderStats(gomock.Any(), providerID).Return(&queries.ProviderStats{
			ProviderID: providerID,
			Pending:    1,
			Active:     2,
			Completed:  3,
			Earnings:   []queries.MoneyView{{AmountMinor: 12000, Currency: "GBP", Display: "£120.00"}},
		}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, s.tutorToken())
		var body resdto.ProviderStatsResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(providerID.String(), body.ProviderID)
		s.Equal(1, body.Pending)
		s.Equal(2, body.Active)
		s.Equal(3, body.Completed)
		s.Equal([]resdto.MoneyResponse{{AmountMinor: 12000, Currency: "GBP", Display: "£120.00"}}, body.Earnings)
	})

	s.Run("success: no earnings renders an empty list", func() {
		s.mockQueries.EXPECT().GetProviderStats(gomock.Any(), providerID).Return(&queries.ProviderStats{ProviderID: providerID, Earnings: []queries.MoneyView{}}, nil).Times(1)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, s.tutorToken())
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"earnings":[]`)
	})

	s.Run("error: 404 unknown provider", func() {
		s.mockQueries.EXPECT().GetProviderStats(gomock.Any(), providerID).Return(nil, booking.ErrProviderNotFound).Times(1)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, s.tutorToken())
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "not_found", "")
	})
}

func mustContent(t *testing.T, s string) booking.MessageContent {
	t.Helper()
	c, err := booking.NewMessageContent(s)
	if err != nil {
		t.Fatal(err)
	}
	return c
}
