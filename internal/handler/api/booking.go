package api

import (
	"io"
	"net/http"

	"tutor-booking/internal/domain/booking"
	reqdto "tutor-booking/internal/handler/dto/request"
	resdto "tutor-booking/internal/handler/dto/response"
	"tutor-booking/internal/handler/httperr"
	"tutor-booking/internal/handler/middleware"
	"tutor-booking/internal/pkg/errs"
	"tutor-booking/internal/usecase/commands"
	"tutor-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	errUnauthenticated = errs.New("no authenticated user in context")
	errInvalidID       = errs.NewKind(errs.ErrValidation, "invalid id")
)

type BookingHandler struct {
	cmds commands.BookingCommands
	q    queries.BookingQueries
}

func NewBookingHandler(cmds commands.BookingCommands, q queries.BookingQueries) *BookingHandler {
	return &BookingHandler{cmds: cmds, q: q}
}

// @Summary Create booking
// @Description Request a session with a tutor. The price is the tutor's current hourly rate.
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.CreateBookingRequest true "Booking request"
// @Success 201 {object} resdto.BookingResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	var req reqdto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	b, err := h.cmds.CreateBooking(c.Request.Context(), req.ToInput(actorID))
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	c.Header("Location", "/api/bookings/"+b.ID().String())
	// a new booking is pending and cannot carry a review yet
	c.JSON(http.StatusCreated, resdto.FromBookingView(queries.NewBookingView(b, actorID, false)))
}

// @Summary List my bookings
// @Description Bookings where the caller is the student or the tutor, newest first
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param role query string false "requester or provider"
// @Param status query string false "Booking status"
// @Param cursor query string false "Cursor from the previous page"
// @Param limit query int false "Page size (1-100)"
// @Success 200 {object} resdto.BookingListResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	var query reqdto.ListBookingsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidRequest(c, err)
		return
	}

	opts := queries.ListOptions{Role: query.Role, Status: query.Status, Limit: query.Limit}
	if query.Cursor != "" {
		opts.After = &queries.Cursor{After: query.Cursor}
	}
	page, err := h.q.ListMyBookings(c.Request.Context(), actorID, opts)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromBookingPage(page))
}

// @Summary Get booking
// @Description Booking with its message thread, visible to participants only
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.BookingResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	actorID, bookingID, ok := actorAndBooking(c)
	if !ok {
		return
	}
	view, err := h.q.GetBooking(c.Request.Context(), actorID, bookingID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromBookingView(view))
}

// @Summary Respond to booking
// @Description Tutor accepts or declines a pending booking
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.RespondRequest true "Response"
// @Success 200 {object} resdto.BookingResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /bookings/{id}/respond [post]
func (h *BookingHandler) Respond(c *gin.Context) {
	actorID, bookingID, ok := actorAndBooking(c)
	if !ok {
		return
	}
	var req reqdto.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	target, err := booking.ParseStatus(req.Status)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	res, err := h.cmds.RespondToBooking(c.Request.Context(), actorID, bookingID, target, req.Message)
	h.writeTransition(c, res, actorID, err)
}

// @Summary Cancel booking
// @Description Either participant cancels a pending or accepted booking
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.NoteRequest false "Optional note"
// @Success 200 {object} resdto.BookingResponse
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	actorID, bookingID, ok := actorAndBooking(c)
	if !ok {
		return
	}
	note, ok := bindNote(c)
	if !ok {
		return
	}
	res, err := h.cmds.CancelBooking(c.Request.Context(), actorID, bookingID, note)
	h.writeTransition(c, res, actorID, err)
}

// @Summary Complete booking
// @Description Tutor marks an accepted booking as completed
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.NoteRequest false "Optional note"
// @Success 200 {object} resdto.BookingResponse
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /bookings/{id}/complete [post]
func (h *BookingHandler) Complete(c *gin.Context) {
	actorID, bookingID, ok := actorAndBooking(c)
	if !ok {
		return
	}
	note, ok := bindNote(c)
	if !ok {
		return
	}
	res, err := h.cmds.CompleteBooking(c.Request.Context(), actorID, bookingID, note)
	h.writeTransition(c, res, actorID, err)
}

// @Summary Send message
// @Description Append a message to the booking thread
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.MessageRequest true "Message"
// @Success 201 {object} resdto.MessageResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 429 {object} httperr.Response
// @Router /bookings/{id}/messages [post]
func (h *BookingHandler) SendMessage(c *gin.Context) {
	actorID, bookingID, ok := actorAndBooking(c)
	if !ok {
		return
	}
	var req reqdto.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	m, err := h.cmds.SendMessage(c.Request.Context(), actorID, bookingID, req.Content)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resdto.FromMessageView(queries.NewMessageView(m)))
}

// @Summary Mark thread read
// @Description Mark every message from the other participant as read
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} map[string]int
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /bookings/{id}/messages/read [post]
func (h *BookingHandler) MarkRead(c *gin.Context) {
	actorID, bookingID, ok := actorAndBooking(c)
	if !ok {
		return
	}
	n, err := h.cmds.MarkThreadRead(c.Request.Context(), actorID, bookingID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

// @Summary Review eligibility
// @Description 204 when the caller may review this booking
// @Tags reviews
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 204
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /bookings/{id}/review-eligibility [get]
func (h *BookingHandler) ReviewEligibility(c *gin.Context) {
	actorID, bookingID, ok := actorAndBooking(c)
	if !ok {
		return
	}
	if err := h.q.CanPostReview(c.Request.Context(), bookingID, actorID); err != nil {
		httperr.FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Provider stats
// @Description Booking counts and completed earnings per currency for a tutor profile
// @Tags providers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Provider profile ID"
// @Success 200 {object} resdto.ProviderStatsResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /providers/{id}/stats [get]
func (h *BookingHandler) ProviderStats(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.FromError(c, errInvalidID)
		return
	}
	stats, err := h.q.GetProviderStats(c.Request.Context(), providerID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	res, err := resdto.FromProviderStats(stats)
	if err != nil {
		httperr.FromError(c, errs.Wrap(err, "map provider stats"))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *BookingHandler) writeTransition(c *gin.Context, res *commands.TransitionResult, actorID uuid.UUID, err error) {
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromBookingView(queries.NewBookingView(res.Booking, actorID, res.ReviewLinked)))
}

func actor(c *gin.Context) (uuid.UUID, bool) {
	actorID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errUnauthenticated, httperr.KindUnauthorized, "Unauthorized", nil)
		return uuid.Nil, false
	}
	return actorID, true
}

func actorAndBooking(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	actorID, ok := actor(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.FromError(c, errInvalidID)
		return uuid.Nil, uuid.Nil, false
	}
	return actorID, bookingID, true
}

func bindNote(c *gin.Context) (*string, bool) {
	if c.Request.ContentLength == 0 {
		return nil, true
	}
	var req reqdto.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// chunked requests report an unknown length, so an empty body shows up here
		if errs.Is(err, io.EOF) {
			return nil, true
		}
		invalidRequest(c, err)
		return nil, false
	}
	return req.Message, true
}

func invalidRequest(c *gin.Context, err error) {
	httperr.AbortWithError(c, http.StatusBadRequest, err, string(errs.KindValidation), "Invalid request", err.Error())
}
