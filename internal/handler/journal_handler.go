package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Anushervon04/university-crm-final/internal/service"
	appErrors "github.com/Anushervon04/university-crm-final/pkg/errors"
	"github.com/Anushervon04/university-crm-final/pkg/response"
)

const maxImportSize = 10 << 20

// JournalHandler exposes journal grid, entry and import endpoints.
type JournalHandler struct {
	journal   *service.JournalService
	importer  *service.ImportService
	dashboard *service.DashboardService
	metrics   *service.MetricsService
}

// NewJournalHandler constructs JournalHandler.
func NewJournalHandler(journal *service.JournalService, importer *service.ImportService, dashboard *service.DashboardService, metrics *service.MetricsService) *JournalHandler {
	return &JournalHandler{journal: journal, importer: importer, dashboard: dashboard, metrics: metrics}
}

// Grid godoc
// @Summary Journal grid for an assignment
// @Tags Journal
// @Produce json
// @Param assignment_id query string true "Assignment ID"
// @Param days query int false "Window size in days"
// @Success 200 {object} response.Envelope
// @Router /journal [get]
func (h *JournalHandler) Grid(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req := service.GridRequest{AssignmentID: c.Query("assignment_id")}
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid days"))
			return
		}
		req.Days = days
	}
	rows, err := h.journal.Grid(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Record godoc
// @Summary Record a journal entry
// @Description Writes one grade/attendance cell and reprices the student's week
// @Tags Journal
// @Accept json
// @Produce json
// @Param payload body service.RecordEntryRequest true "Entry payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /journal/entries [post]
func (h *JournalHandler) Record(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RecordEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.journal.Record(c.Request.Context(), actor, req)
	if err != nil {
		switch {
		case appErrors.Is(err, appErrors.ErrCellLocked):
			h.metrics.RecordJournalWrite("locked")
		default:
			h.metrics.RecordJournalWrite("rejected")
		}
		response.Error(c, err)
		return
	}
	h.metrics.RecordJournalWrite("recorded")
	if h.dashboard != nil {
		h.dashboard.Invalidate(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Import godoc
// @Summary Import journal entries from an Excel workbook
// @Tags Journal
// @Accept multipart/form-data
// @Produce json
// @Param assignment_id formData string true "Assignment ID"
// @Param file formData file true "Workbook (.xlsx)"
// @Success 200 {object} response.Envelope
// @Router /journal/import [post]
func (h *JournalHandler) Import(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	assignmentID := c.PostForm("assignment_id")
	if assignmentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "assignment_id is required"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "workbook file is required"))
		return
	}
	if fileHeader.Size > maxImportSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "workbook exceeds 10MB limit"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	result, err := h.importer.ImportJournal(c.Request.Context(), actor, assignmentID, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.dashboard != nil {
		h.dashboard.Invalidate(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, result, nil)
}
