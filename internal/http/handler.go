package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nurpe/payroll-breakdowns/internal/http/middleware"
	"github.com/nurpe/payroll-breakdowns/internal/model"
	"github.com/nurpe/payroll-breakdowns/internal/service"
)

const (
	contentTypeZip = "application/zip"
	contentTypePDF = "application/pdf"
)

type Handler struct {
	payroll        *service.PayrollService
	log            zerolog.Logger
	uploadMaxBytes int64
}

func NewHandler(payroll *service.PayrollService, log zerolog.Logger, uploadMaxBytes int64) *Handler {
	return &Handler{payroll: payroll, log: log, uploadMaxBytes: uploadMaxBytes}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.GET("/healthz", h.healthz)
	router.POST("/sessions", h.startSession)

	protected := router.Group("/")
	protected.Use(authMiddleware)
	protected.GET("/technicians", h.listTechnicians)
	protected.POST("/technicians", h.addTechnician)
	protected.PUT("/technicians/:name", h.editTechnician)
	protected.POST("/uploads", h.upload)
	protected.POST("/reports/match", h.match)
	protected.POST("/reports/export", h.export)
	protected.POST("/reports/export/pdf", h.exportPDF)
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) startSession(c *gin.Context) {
	result, err := h.payroll.StartSession(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) listTechnicians(c *gin.Context) {
	sess, ok := middleware.MustSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"technicians": h.payroll.ListTechnicians(sess)})
}

type addTechnicianRequest struct {
	Name    string   `json:"name" binding:"required"`
	RatePct *float64 `json:"rate_pct"`
	Truck   bool     `json:"truck"`
	Meter   bool     `json:"meter"`
}

func (h *Handler) addTechnician(c *gin.Context) {
	sess, ok := middleware.MustSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}

	var req addTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.payroll.AddTechnician(sess, service.AddTechnicianInput{
		Name:    req.Name,
		RatePct: req.RatePct,
		Truck:   req.Truck,
		Meter:   req.Meter,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

type editTechnicianRequest struct {
	RatePct *float64 `json:"rate_pct" binding:"required"`
	Truck   bool     `json:"truck"`
	Meter   bool     `json:"meter"`
}

func (h *Handler) editTechnician(c *gin.Context) {
	sess, ok := middleware.MustSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}

	var req editTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.payroll.EditTechnician(sess, service.EditTechnicianInput{
		Name:    c.Param("name"),
		RatePct: *req.RatePct,
		Truck:   req.Truck,
		Meter:   req.Meter,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"technician": profile})
}

func (h *Handler) upload(c *gin.Context) {
	sess, ok := middleware.MustSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}

	if h.uploadMaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadMaxBytes)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open file"})
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.payroll.Upload(c.Request.Context(), sess, header.Filename, file)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type rolesRequest struct {
	DateColumn       string `json:"date_column"`
	TechnicianColumn string `json:"technician_column"`
	FeeColumn        string `json:"fee_column"`
}

// bindRoles reads the optional column mapping; an empty body means defaults.
func bindRoles(c *gin.Context) (model.ColumnRoles, bool) {
	var req rolesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return model.ColumnRoles{}, false
		}
	}
	return model.ColumnRoles{
		Date:       req.DateColumn,
		Technician: req.TechnicianColumn,
		JobFee:     req.FeeColumn,
	}, true
}

func (h *Handler) match(c *gin.Context) {
	sess, ok := middleware.MustSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}
	roles, ok := bindRoles(c)
	if !ok {
		return
	}

	out, err := h.payroll.Match(sess, roles)
	if errors.Is(err, service.ErrNoMatch) && out != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
			"roles": out.Roles,
			"match": out.Match,
		})
		return
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) export(c *gin.Context) {
	sess, ok := middleware.MustSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}
	roles, ok := bindRoles(c)
	if !ok {
		return
	}

	result, err := h.payroll.Export(c.Request.Context(), sess, roles)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentTypeZip, result.Content)
}

func (h *Handler) exportPDF(c *gin.Context) {
	sess, ok := middleware.MustSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}
	roles, ok := bindRoles(c)
	if !ok {
		return
	}

	result, err := h.payroll.ExportSummaryPDF(c.Request.Context(), sess, roles)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentTypePDF, result.Content)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInputShape):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoUpload):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoMatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
