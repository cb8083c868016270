package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tonywei17/classroom-billing/internal/ingest"
	"github.com/tonywei17/classroom-billing/internal/service"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	importService   *service.ImportService
	summaryService  *service.SummaryService
	reconcile       *service.ReconcileService
	invoiceService  *service.InvoiceService
	documentService *service.DocumentService
	maxUploadMB     int64
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	importService *service.ImportService,
	summaryService *service.SummaryService,
	reconcile *service.ReconcileService,
	invoiceService *service.InvoiceService,
	documentService *service.DocumentService,
	maxUploadMB int64,
	logger Logger,
) *Handlers {
	return &Handlers{
		importService:   importService,
		summaryService:  summaryService,
		reconcile:       reconcile,
		invoiceService:  invoiceService,
		documentService: documentService,
		maxUploadMB:     maxUploadMB,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "classroom-billing",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// Upload handles POST /api/imports. The three form fields are required; a
// missing one rejects the request before anything is written.
func (h *Handlers) Upload(c *gin.Context) {
	billingMonth := c.PostForm("billing_month")
	fileType := c.PostForm("file_type")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "file is required"})
		return
	}
	if billingMonth == "" {
		c.JSON(http.StatusBadRequest, Response{Error: "billing_month is required"})
		return
	}
	if fileType == "" {
		c.JSON(http.StatusBadRequest, Response{Error: "file_type is required"})
		return
	}
	if fileHeader.Size > h.maxUploadMB<<20 {
		c.JSON(http.StatusBadRequest, Response{Error: "file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "failed to read upload"})
		return
	}
	defer file.Close()

	rows, err := ingest.DecodeWorkbook(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}

	result, err := h.importService.Import(c.Request.Context(), service.ImportRequest{
		BillingMonth: billingMonth,
		FileName:     fileHeader.Filename,
		FileType:     fileType,
		Rows:         rows,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// GetImport handles GET /api/imports/:id
func (h *Handlers) GetImport(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid import id"})
		return
	}

	batch, err := h.importService.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: batch})
}

// MonthlySummary handles GET /api/summary?billing_month=YYYY-MM
func (h *Handlers) MonthlySummary(c *gin.Context) {
	billingMonth := c.Query("billing_month")
	if billingMonth == "" {
		c.JSON(http.StatusBadRequest, Response{Error: "billing_month is required"})
		return
	}

	summary, err := h.summaryService.MonthlySummary(c.Request.Context(), billingMonth)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// GenerateInvoicesRequest is the body of POST /api/invoices/generate. With a
// department id it generates one invoice; without, the whole month.
type GenerateInvoicesRequest struct {
	BillingMonth         string `json:"billing_month" binding:"required"`
	InvoiceType          string `json:"invoice_type" binding:"required"`
	DepartmentID         *int64 `json:"department_id,omitempty"`
	AdjustmentAmount     int64  `json:"adjustment_amount"`
	NonTaxableAmount     int64  `json:"non_taxable_amount"`
	MaterialReturnAmount int64  `json:"material_return_amount"`
}

// GenerateInvoices handles POST /api/invoices/generate
func (h *Handlers) GenerateInvoices(c *gin.Context) {
	var req GenerateInvoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}

	if req.DepartmentID != nil {
		invoice, err := h.invoiceService.Generate(c.Request.Context(), service.GenerateRequest{
			DepartmentID:         *req.DepartmentID,
			BillingMonth:         req.BillingMonth,
			InvoiceType:          req.InvoiceType,
			AdjustmentAmount:     req.AdjustmentAmount,
			NonTaxableAmount:     req.NonTaxableAmount,
			MaterialReturnAmount: req.MaterialReturnAmount,
		})
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, Response{Success: true, Data: invoice})
		return
	}

	result, err := h.invoiceService.GenerateMonth(c.Request.Context(), req.BillingMonth, req.InvoiceType)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid invoice id"})
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: invoice})
}

// FindDuplicates handles GET /api/invoices/:id/duplicates
func (h *Handlers) FindDuplicates(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid invoice id"})
		return
	}

	groups, err := h.reconcile.FindDuplicates(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: groups})
}

// DeleteDuplicatesRequest is the body of POST /api/invoices/duplicates/delete
type DeleteDuplicatesRequest struct {
	ItemIDs []string `json:"item_ids" binding:"required"`
}

// DeleteDuplicates handles POST /api/invoices/duplicates/delete
func (h *Handlers) DeleteDuplicates(c *gin.Context) {
	var req DeleteDuplicatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}

	deleted, err := h.reconcile.DeleteItems(c.Request.Context(), req.ItemIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"deleted_count": deleted}})
}

// InvoiceDocument handles GET /api/invoices/:id/document
func (h *Handlers) InvoiceDocument(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid invoice id"})
		return
	}

	name, data, err := h.documentService.RenderInvoice(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// InvoiceDocumentArchive handles GET /api/invoices/documents with either
// billing_month or ids (comma separated invoice ids).
func (h *Handlers) InvoiceDocumentArchive(c *gin.Context) {
	billingMonth := c.Query("billing_month")
	idsParam := c.Query("ids")

	var name string
	var data []byte
	var err error

	switch {
	case billingMonth != "":
		name, data, _, err = h.documentService.RenderMonthArchive(c.Request.Context(), billingMonth)
	case idsParam != "":
		var ids []int64
		for _, raw := range strings.Split(idsParam, ",") {
			id, parseErr := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if parseErr != nil {
				c.JSON(http.StatusBadRequest, Response{Error: "invalid invoice id list"})
				return
			}
			ids = append(ids, id)
		}
		name, data, _, err = h.documentService.RenderArchive(c.Request.Context(), ids)
	default:
		c.JSON(http.StatusBadRequest, Response{Error: "billing_month or ids is required"})
		return
	}

	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/zip", data)
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Error: err.Error()})
	default:
		h.logger.Error("Request failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Error: "internal error"})
	}
}
