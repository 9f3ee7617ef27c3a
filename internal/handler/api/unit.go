package api

import (
	"net/http"

	resdto "culture-booking/internal/handler/dto/response"
	"culture-booking/internal/pkg/errs"
	"culture-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UnitHandler struct {
	unitQueries queries.UnitQueries
}

func NewUnitHandler(unitQueries queries.UnitQueries) *UnitHandler {
	return &UnitHandler{unitQueries: unitQueries}
}

// @Summary Get unit availability
// @Tags units
// @Produce json
// @Param id path string true "Unit ID"
// @Success 200 {object} resdto.UnitResponse
// @Failure 404 {object} map[string]string
// @Router /units/{id} [get]
func (h *UnitHandler) GetUnit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid unit ID",
		})
		return
	}

	view, err := h.unitQueries.GetByID(c.Request.Context(), id)
	if err != nil {
		if errs.Is(err, errs.ErrUnitNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Inventory unit not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, resdto.FromUnitView(view))
}
