package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	audit "navo-system/internal/services/audit/handler"
)

type AuditHTTPHandler struct {
	audit *audit.AuditHandler
}

func NewAuditHTTPHandler(auditHandler *audit.AuditHandler) *AuditHTTPHandler {
	return &AuditHTTPHandler{audit: auditHandler}
}

type AuditQuery struct {
	Page       int    `form:"page,default=1"`
	PageSize   int    `form:"page_size,default=20"`
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	Severity   string `form:"severity"`
	Search     string `form:"search"`
	StartDate  string `form:"start_date"`
	EndDate    string `form:"end_date"`
}

func (q AuditQuery) filters(c *gin.Context) (audit.Filters, bool) {
	f := audit.Filters{
		Action:     q.Action,
		TargetType: q.TargetType,
		Severity:   q.Severity,
		Search:     q.Search,
	}
	if q.StartDate != "" {
		from, err := time.Parse("2006-01-02", q.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("start_date must be YYYY-MM-DD"))
			return f, false
		}
		f.From = &from
	}
	if q.EndDate != "" {
		to, err := time.Parse("2006-01-02", q.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("end_date must be YYYY-MM-DD"))
			return f, false
		}
		end := to.AddDate(0, 0, 1).Add(-time.Second)
		f.To = &end
	}
	return f, true
}

func (h *AuditHTTPHandler) ListLogs(c *gin.Context) {
	var query AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}
	filters, ok := query.filters(c)
	if !ok {
		return
	}

	logs, totalCount, err := h.audit.Query(c.Request.Context(), filters, query.Page, query.PageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("Audit logs retrieved", logs, paginationMeta{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: totalCount,
	}))
}

func (h *AuditHTTPHandler) Statistics(c *gin.Context) {
	stats, err := h.audit.Statistics(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Audit statistics retrieved", stats))
}

func (h *AuditHTTPHandler) Export(c *gin.Context) {
	var query AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}
	filters, ok := query.filters(c)
	if !ok {
		return
	}

	filename := "audit-logs-" + time.Now().Format("2006-01-02") + ".csv"
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+filename)

	if err := h.audit.ExportCSV(c.Request.Context(), filters, c.Writer); err != nil {
		// Headers may already be written; log-and-abort is all that is left.
		c.Status(http.StatusInternalServerError)
	}
}
