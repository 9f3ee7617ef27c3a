package api

import (
	"net/http"

	reqdto "culture-booking/internal/handler/dto/request"
	resdto "culture-booking/internal/handler/dto/response"
	"culture-booking/internal/pkg/errs"
	"culture-booking/internal/usecase/commands"
	"culture-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	bookingCommands commands.BookingCommands
	bookingQueries  queries.BookingQueries
}

func NewBookingHandler(bookingCommands commands.BookingCommands, bookingQueries queries.BookingQueries) *BookingHandler {
	return &BookingHandler{
		bookingCommands: bookingCommands,
		bookingQueries:  bookingQueries,
	}
}

// @Summary Create booking
// @Description Reserve capacity and open a payment checkout
// @Tags bookings
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key for duplicate prevention"
// @Param request body reqdto.CreateBookingRequest true "Booking request"
// @Success 201 {object} resdto.CreateBookingResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	idempotencyKey, err := h.getIdempotencyKey(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	var req reqdto.CreateBookingRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	result, err := h.bookingCommands.CreateBooking(c.Request.Context(), commands.CreateBookingInput{
		IdempotencyKey: idempotencyKey,
		UnitID:         req.UnitID,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		Quantity:       req.Quantity,
		Provider:       req.NormalizedProvider(),
	})
	if err != nil {
		switch {
		case errs.Is(err, errs.ErrUnitNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Inventory unit not found",
			})
		case errs.Is(err, errs.ErrUnitInactive):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Unit is not open for booking",
			})
		case errs.Is(err, errs.ErrCapacityExceeded):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Not enough remaining capacity",
			})
		case errs.Is(err, errs.ErrUnknownProvider):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unknown payment provider",
			})
		case errs.Is(err, errs.ErrDuplicateBooking):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Duplicate booking request with different parameters",
			})
		case errs.Is(err, errs.ErrIdempotencyInProgress):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Booking request is currently being processed",
			})
		case errs.Is(err, errs.ErrDomainValidation):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Domain validation failed",
			})
		case errs.Is(err, errs.ErrGatewayUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Payment gateway unavailable, please retry",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, resdto.FromCreateBookingResult(result))
}

// @Summary Get booking
// @Tags bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.BookingResponse
// @Failure 404 {object} map[string]string
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid booking ID",
		})
		return
	}

	view, err := h.bookingQueries.GetByID(c.Request.Context(), id)
	if err != nil {
		if errs.Is(err, errs.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Booking not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, resdto.FromBookingView(view))
}

// @Summary Cancel booking
// @Description Cancel a pending booking and release its reservation
// @Tags bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid booking ID",
		})
		return
	}

	if err := h.bookingCommands.CancelBooking(c.Request.Context(), id); err != nil {
		switch {
		case errs.Is(err, errs.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Booking not found",
			})
		case errs.Is(err, errs.ErrInvalidStateTransition):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Booking is no longer pending",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// @Summary Look up ticket
// @Description Scanning-tool lookup by ticket identifier
// @Tags tickets
// @Produce json
// @Param ticketID path string true "Ticket identifier"
// @Success 200 {object} resdto.TicketResponse
// @Failure 404 {object} map[string]string
// @Router /tickets/{ticketID} [get]
func (h *BookingHandler) GetTicket(c *gin.Context) {
	ticketID := c.Param("ticketID")
	if ticketID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Ticket identifier required",
		})
		return
	}

	view, err := h.bookingQueries.GetByTicketID(c.Request.Context(), ticketID)
	if err != nil {
		if errs.Is(err, errs.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Ticket not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, resdto.FromTicketView(view))
}

func (h *BookingHandler) getIdempotencyKey(c *gin.Context) (uuid.UUID, error) {
	raw := c.GetHeader("Idempotency-Key")
	if raw == "" {
		return uuid.Nil, errs.ErrIdempotencyKeyRequired
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.Wrap(errs.ErrIdempotencyKeyRequired, "must be a UUID")
	}
	return key, nil
}
