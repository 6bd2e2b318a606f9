package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Anushervon04/university-crm-final/internal/service"
	"github.com/Anushervon04/university-crm-final/pkg/response"
)

// DashboardHandler exposes dashboard endpoints.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Dean godoc
// @Summary Dean dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/dean [get]
func (h *DashboardHandler) Dean(c *gin.Context) {
	dash, err := h.dashboard.Dean(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dash, nil)
}

// ViceDean godoc
// @Summary Vice-dean dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/vice-dean [get]
func (h *DashboardHandler) ViceDean(c *gin.Context) {
	dash, err := h.dashboard.ViceDean(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dash, nil)
}

// Live godoc
// @Summary Live lessons dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/live [get]
func (h *DashboardHandler) Live(c *gin.Context) {
	dash, err := h.dashboard.Live(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dash, nil)
}
