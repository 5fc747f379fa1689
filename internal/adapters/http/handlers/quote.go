package handlers

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

const (
	// importFormField is the multipart field carrying an uploaded document.
	importFormField = "file"

	// exportFilename is suggested to browsers downloading the export.
	exportFilename = "quotes.json"
)

// QuoteHandler handles quote store endpoints.
type QuoteHandler struct {
	book *app.Quotebook
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(book *app.Quotebook) *QuoteHandler {
	return &QuoteHandler{
		book: book,
	}
}

// QuoteResponse is the HTTP response structure for a quote.
type QuoteResponse struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// AddQuoteRequest is the body of POST /api/v1/quotes.
// Blank fields are rejected by the quotebook so the user message is posted.
type AddQuoteRequest struct {
	Text     string `json:"text"     validate:"max=2000"`
	Category string `json:"category" validate:"max=200"`
}

// ListQuotesRequest holds the query parameters of GET /api/v1/quotes.
type ListQuotesRequest struct {
	dto.PageRequest

	// Category narrows the list; empty or "all" lists everything.
	Category string `form:"category"`
}

// ImportResponse reports how many quotes an import appended.
type ImportResponse struct {
	Imported int `json:"imported"`
}

// CategoriesResponse lists the selectable filter values.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// FilterRequest selects a category filter.
type FilterRequest struct {
	Category string `json:"category" validate:"max=200"`
}

// FilterResponse reports the selected category filter.
type FilterResponse struct {
	Category string `json:"category"`
}

// toQuoteResponse converts a domain Quote to an HTTP response.
func toQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{
		Text:     q.Text,
		Category: q.Category,
	}
}

// ListQuotes handles GET /api/v1/quotes
// Returns a page of the store, optionally narrowed to one category.
//
// @Summary List quotes
// @Tags quotes
// @Produce json
// @Param category query string false "Category filter"
// @Param cursor query string false "Opaque cursor from a previous page"
// @Param limit query int false "Page size (1-100)"
// @Success 200 {object} dto.Page[QuoteResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes [get]
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var req ListQuotesRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = domain.AllCategories
	}

	page, err := dto.Paginate(domain.FilterByCategory(h.book.Quotes(), category), req.PageRequest)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.ErrorCodeBadRequest,
			"cursor is invalid",
		).WithTraceID(dto.GetTraceID(c)))
		return
	}

	c.JSON(http.StatusOK, dto.MapPage(page, toQuoteResponse))
}

// AddQuote handles POST /api/v1/quotes
//
// @Summary Add a quote
// @Tags quotes
// @Accept json
// @Produce json
// @Param request body AddQuoteRequest true "Quote"
// @Success 201 {object} QuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/quotes [post]
func (h *QuoteHandler) AddQuote(c *gin.Context) {
	var req AddQuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	quote, err := h.book.Add(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toQuoteResponse(quote))
}

// GetRandomQuote handles GET /api/v1/quotes/random
// Picks a quote from the subset selected by the current category filter.
//
// @Summary Show a random quote
// @Tags quotes
// @Produce json
// @Success 200 {object} QuoteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quotes/random [get]
func (h *QuoteHandler) GetRandomQuote(c *gin.Context) {
	quote, err := h.book.ShowRandom(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuoteResponse(quote))
}

// GetLastViewed handles GET /api/v1/quotes/last
func (h *QuoteHandler) GetLastViewed(c *gin.Context) {
	quote, ok := h.book.LastViewed()
	if !ok {
		dto.HandleError(c, domain.NewNotFoundError("quote", "last viewed"))
		return
	}

	c.JSON(http.StatusOK, toQuoteResponse(quote))
}

// ExportQuotes handles GET /api/v1/quotes/export
// Serves the full store as a downloadable JSON document.
func (h *QuoteHandler) ExportQuotes(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.book.Export(c.Request.Context(), &buf); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

// ImportQuotes handles POST /api/v1/quotes/import
// Accepts either a raw JSON body or a multipart upload in the "file" field.
//
// @Summary Import quotes
// @Tags quotes
// @Accept json,mpfd
// @Produce json
// @Success 200 {object} ImportResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes/import [post]
func (h *QuoteHandler) ImportQuotes(c *gin.Context) {
	body, closeBody, err := importBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.ErrorCodeBadRequest,
			"upload must carry a \"file\" field",
		).WithTraceID(dto.GetTraceID(c)))
		return
	}
	defer closeBody()

	n, err := h.book.Import(c.Request.Context(), body)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ImportResponse{Imported: n})
}

// importBody selects the document reader for an import request.
func importBody(c *gin.Context) (io.Reader, func(), error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return c.Request.Body, func() {}, nil
	}

	header, err := c.FormFile(importFormField)
	if err != nil {
		return nil, nil, err
	}

	f, err := header.Open()
	if err != nil {
		return nil, nil, err
	}

	return f, func() { _ = f.Close() }, nil
}

// ListCategories handles GET /api/v1/categories
func (h *QuoteHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, CategoriesResponse{Categories: h.book.Categories()})
}

// GetFilter handles GET /api/v1/filter
func (h *QuoteHandler) GetFilter(c *gin.Context) {
	c.JSON(http.StatusOK, FilterResponse{Category: h.book.Filter()})
}

// SetFilter handles PUT /api/v1/filter
// A blank category selects "all".
func (h *QuoteHandler) SetFilter(c *gin.Context) {
	var req FilterRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	if err := h.book.SetFilter(c.Request.Context(), req.Category); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, FilterResponse{Category: h.book.Filter()})
}

// RegisterQuoteRoutes registers the public quote routes on the given router group.
// Import is registered separately so it can sit behind authentication.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.POST("", h.AddQuote)
	quotes.GET("/random", h.GetRandomQuote)
	quotes.GET("/last", h.GetLastViewed)
	quotes.GET("/export", h.ExportQuotes)

	rg.GET("/categories", h.ListCategories)
	rg.GET("/filter", h.GetFilter)
	rg.PUT("/filter", h.SetFilter)
}

// RegisterImportRoute registers POST /quotes/import with optional extra middleware.
func (h *QuoteHandler) RegisterImportRoute(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	rg.POST("/quotes/import", append(mw, h.ImportQuotes)...)
}

// NewQuoteGauge reports the store size as the quotebook_quotes gauge.
func NewQuoteGauge(book *app.Quotebook) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "quotebook_quotes",
		Help: "Number of quotes in the local store.",
	}, func() float64 {
		return float64(book.Len())
	})
}
