//go:build unit

package queries_test

import (
	"context"
	"testing"
	"time"

	"tutor-booking/internal/domain/booking"
	"tutor-booking/internal/domain/review"
	"tutor-booking/internal/pkg/clock"
	"tutor-booking/internal/pkg/errs"
	"tutor-booking/internal/usecase/commands"
	"tutor-booking/internal/usecase/queries"
	"tutor-booking/internal/usecase/shared"
	"tutor-booking/tests/common/memstore"
	sharedmock "tutor-booking/tests/mock/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type BookingQueriesTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memstore.Store
	clock   *clock.MockClock
	engine  commands.BookingCommands
	queries queries.BookingQueries

	requesterID uuid.UUID
	providers   []shared.ProviderSnapshot
}

func TestBookingQueriesSuite(t *testing.T) {
	suite.Run(t, new(BookingQueriesTestSuite))
}

func (s *BookingQueriesTestSuite) SetupTest() {
	s.ctx = context.Background()
	ctrl := gomock.NewController(s.T())
	notifier := sharedmock.NewMockNotificationPort(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	s.store = memstore.New()
	s.clock = clock.NewMockClock(time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))
	s.engine = commands.NewBookingCommands(s.store, s.store.Directory(), notifier, s.clock, commands.EngineOptions{})
	s.queries = queries.NewBookingQueries(s.store)

	s.requesterID = uuid.New()
	s.providers = nil
	for i := range 5 {
		rate, err := booking.NewMoney(int64(3000+i*500), "GBP")
		s.Require().NoError(err)
		p := shared.ProviderSnapshot{ID: uuid.New(), UserID: uuid.New(), HourlyRate: rate}
		s.store.PutProvider(p)
		s.providers = append(s.providers, p)
	}
}

func (s *BookingQueriesTestSuite) book(p shared.ProviderSnapshot) *booking.Booking {
	s.clock.Add(time.Minute)
	b, err := s.engine.CreateBooking(s.ctx, commands.CreateBookingInput{
		RequesterID: s.requesterID,
		ProviderID:  p.ID,
		SessionMode: "remote",
	})
	s.Require().NoError(err)
	return b
}

func (s *BookingQueriesTestSuite) TestGetBooking_OutsiderIsForbidden() {
	b := s.book(s.providers[0])

	_, err := s.queries.GetBooking(s.ctx, uuid.New(), b.ID())
	s.ErrorIs(err, booking.ErrNotParticipant)
	s.Equal(errs.KindForbidden, errs.KindOf(err))

	_, err = s.queries.GetBooking(s.ctx, s.requesterID, uuid.New())
	s.ErrorIs(err, booking.ErrBookingNotFound)
	s.Equal(errs.KindNotFound, errs.KindOf(err))
}

func (s *BookingQueriesTestSuite) TestGetBooking_ViewerRole() {
	b := s.book(s.providers[0])

	asRequester, err := s.queries.GetBooking(s.ctx, s.requesterID, b.ID())
	s.Require().NoError(err)
	s.Equal("requester", asRequester.ViewerRole)

	asProvider, err := s.queries.GetBooking(s.ctx, s.providers[0].UserID, b.ID())
	s.Require().NoError(err)
	s.Equal("provider", asProvider.ViewerRole)
}

func (s *BookingQueriesTestSuite) TestListMyBookings_PagesNewestFirst() {
	var created []uuid.UUID
	for _, p := range s.providers {
		created = append(created, s.book(p).ID())
	}

	first, err := s.queries.ListMyBookings(s.ctx, s.requesterID, queries.ListOptions{Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(first.Items, 2)
	s.Equal(created[4], first.Items[0].ID)
	s.Equal(created[3], first.Items[1].ID)
	s.Require().NotNil(first.NextCursor)

	second, err := s.queries.ListMyBookings(s.ctx, s.requesterID, queries.ListOptions{Limit: 2, After: first.NextCursor})
	s.Require().NoError(err)
	s.Require().Len(second.Items, 2)
	s.Equal(created[2], second.Items[0].ID)

	third, err := s.queries.ListMyBookings(s.ctx, s.requesterID, queries.ListOptions{Limit: 2, After: second.NextCursor})
	s.Require().NoError(err)
	s.Require().Len(third.Items, 1)
	s.Equal(created[0], third.Items[0].ID)
	s.Nil(third.NextCursor)
}

func (s *BookingQueriesTestSuite) TestListMyBookings_Filters() {
	b := s.book(s.providers[0])
	s.book(s.providers[1])
	_, err := s.engine.CancelBooking(s.ctx, s.requesterID, b.ID(), nil)
	s.Require().NoError(err)

	page, err := s.queries.ListMyBookings(s.ctx, s.requesterID, queries.ListOptions{Status: "cancelled"})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal(b.ID(), page.Items[0].ID)

	page, err = s.queries.ListMyBookings(s.ctx, s.requesterID, queries.ListOptions{Role: "provider"})
	s.Require().NoError(err)
	s.Empty(page.Items)

	page, err = s.queries.ListMyBookings(s.ctx, s.providers[1].UserID, queries.ListOptions{Role: "provider"})
	s.Require().NoError(err)
	s.Len(page.Items, 1)

	_, err = s.queries.ListMyBookings(s.ctx, s.requesterID, queries.ListOptions{Role: "admin"})
	s.ErrorIs(err, queries.ErrInvalidListRole)

	_, err = s.queries.ListMyBookings(s.ctx, s.requesterID, queries.ListOptions{Status: "archived"})
	s.ErrorIs(err, booking.ErrInvalidStatus)

	_, err = s.queries.ListMyBookings(s.ctx, s.requesterID, queries.ListOptions{After: &queries.Cursor{After: "garbage"}})
	s.ErrorIs(err, queries.ErrInvalidCursor)
}

func (s *BookingQueriesTestSuite) TestReads_RetriedOnceOnTransientFailure() {
	b := s.book(s.providers[0])

	s.Run("one transient failure is absorbed", func() {
		before := s.store.ReadCount()
		s.store.FailNextRead(memstore.Transient())
		view, err := s.queries.GetBooking(s.ctx, s.requesterID, b.ID())
		s.Require().NoError(err)
		s.Equal(b.ID(), view.ID)
		s.Equal(before+2, s.store.ReadCount())
	})

	s.Run("two transient failures surface", func() {
		s.store.FailNextRead(memstore.Transient())
		s.store.FailNextRead(memstore.Transient())
		_, err := s.queries.GetBooking(s.ctx, s.requesterID, b.ID())
		s.Require().Error(err)
		s.Equal(errs.KindInternal, errs.KindOf(err))
	})

	s.Run("not found is not retried", func() {
		before := s.store.ReadCount()
		_, err := s.queries.GetBooking(s.ctx, s.requesterID, uuid.New())
		s.ErrorIs(err, booking.ErrBookingNotFound)
		s.Equal(before+1, s.store.ReadCount())
	})
}

func (s *BookingQueriesTestSuite) TestGetProviderStats() {
	p := s.providers[0]
	providerUser := p.UserID

	pending := s.book(p)
	_, err := s.engine.CancelBooking(s.ctx, s.requesterID, pending.ID(), nil)
	s.Require().NoError(err)

	completed := s.book(p)
	_, err = s.engine.RespondToBooking(s.ctx, providerUser, completed.ID(), booking.StatusAccepted, nil)
	s.Require().NoError(err)
	_, err = s.engine.CompleteBooking(s.ctx, providerUser, completed.ID(), nil)
	s.Require().NoError(err)

	s.book(p)

	stats, err := s.queries.GetProviderStats(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(1, stats.Pending)
	s.Equal(0, stats.Active)
	s.Equal(1, stats.Completed)
	s.Require().Len(stats.Earnings, 1)
	s.Equal("£30.00", stats.Earnings[0].Display)

	_, err = s.queries.GetProviderStats(s.ctx, uuid.New())
	s.ErrorIs(err, booking.ErrProviderNotFound)
}

func (s *BookingQueriesTestSuite) TestCanPostReview_NegativeCases() {
	p := s.providers[0]
	b := s.book(p)

	s.Run("pending booking", func() {
		err := s.queries.CanPostReview(s.ctx, b.ID(), s.requesterID)
		s.ErrorIs(err, review.ErrBookingNotReviewable)
	})

	_, err := s.engine.RespondToBooking(s.ctx, p.UserID, b.ID(), booking.StatusAccepted, nil)
	s.Require().NoError(err)

	s.Run("provider is not the reviewer", func() {
		err := s.queries.CanPostReview(s.ctx, b.ID(), p.UserID)
		s.ErrorIs(err, review.ErrNotBookingRequester)
		s.Equal(errs.KindForbidden, errs.KindOf(err))
	})

	s.Run("accepted booking is reviewable", func() {
		s.NoError(s.queries.CanPostReview(s.ctx, b.ID(), s.requesterID))
	})

	s.Run("duplicate review", func() {
		s.store.PutReview(b.ID())
		err := s.queries.CanPostReview(s.ctx, b.ID(), s.requesterID)
		s.ErrorIs(err, review.ErrReviewAlreadyExists)

		view, err := s.queries.GetBooking(s.ctx, s.requesterID, b.ID())
		s.Require().NoError(err)
		s.True(view.ReviewLinked)
	})

	s.Run("cancelled booking", func() {
		other := s.book(s.providers[1])
		_, err := s.engine.CancelBooking(s.ctx, s.requesterID, other.ID(), nil)
		s.Require().NoError(err)
		err = s.queries.CanPostReview(s.ctx, other.ID(), s.requesterID)
		s.ErrorIs(err, review.ErrBookingNotReviewable)
		s.Equal(errs.KindInvalidTransition, errs.KindOf(err))
	})

	s.Run("unknown booking", func() {
		err := s.queries.CanPostReview(s.ctx, uuid.New(), s.requesterID)
		s.ErrorIs(err, booking.ErrBookingNotFound)
	})
}
