package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"unistock/internal/core/apperror"
	"unistock/internal/domain/reports"
)

// ReportsHandler serves aggregated reporting queries.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

func (h *ReportsHandler) parsePeriod(c *gin.Context) (reports.Period, bool) {
	var period reports.Period
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid or missing from date, expected YYYY-MM-DD"))
		return period, false
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid or missing to date, expected YYYY-MM-DD"))
		return period, false
	}
	period.From = from
	period.To = to.AddDate(0, 0, 1) // inclusive end date in the query, half-open internally
	if !period.From.Before(period.To) {
		h.Error(c, apperror.NewValidation("from must not be after to"))
		return period, false
	}
	return period, true
}

// Monthly returns per-month totals for one calendar year.
func (h *ReportsHandler) Monthly(c *gin.Context) {
	year := h.ParseIntQuery(c, "year", time.Now().Year())

	rows, err := h.service.MonthlyTotals(c.Request.Context(), year)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"year": year, "months": rows})
}

// BestSellers returns the top sold variants over a period.
func (h *ReportsHandler) BestSellers(c *gin.Context) {
	period, ok := h.parsePeriod(c)
	if !ok {
		return
	}
	limit := h.ParseIntQuery(c, "limit", 10)

	rows, err := h.service.BestSellers(c.Request.Context(), period, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"period": period, "rows": rows})
}

// TopSuppliers ranks suppliers by purchase volume over a period.
func (h *ReportsHandler) TopSuppliers(c *gin.Context) {
	period, ok := h.parsePeriod(c)
	if !ok {
		return
	}
	limit := h.ParseIntQuery(c, "limit", 10)

	rows, err := h.service.TopSuppliers(c.Request.Context(), period, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"period": period, "rows": rows})
}

// RegisterRoutes registers report routes.
func (h *ReportsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/monthly", h.Monthly)
	rg.GET("/best-sellers", h.BestSellers)
	rg.GET("/top-suppliers", h.TopSuppliers)
}
