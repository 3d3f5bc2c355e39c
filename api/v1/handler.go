package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"cohortly/internal/analysis"
	"cohortly/internal/csvinput"
	"cohortly/internal/events"
	"cohortly/internal/metrics"
)

const (
	errInvalidRequest = "Invalid request"
	errInvalidUpload  = "Invalid CSV upload"
)

// API serves the analysis endpoints.
type API struct {
	Logger *slog.Logger
	// ExcludeEventPattern is applied to every run.
	ExcludeEventPattern string
}

// AnalyzeResponse wraps one report with an identifier.
type AnalyzeResponse struct {
	ID          string           `json:"id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Report      *analysis.Report `json:"report"`
}

// ColumnsResponse is the detected mapping for a header line.
type ColumnsResponse struct {
	Mapping events.ColumnMapping `json:"mapping"`
	Missing []string             `json:"missing"`
}

// Register mounts the v1 routes on a router.
func (a *API) Register(router fiber.Router) {
	router.Post("/columns", a.ColumnsHandler)
	router.Post("/analyze", a.AnalyzeHandler)
}

func (a *API) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// ColumnsHandler detects the column mapping of a header line.
func (a *API) ColumnsHandler(c *fiber.Ctx) error {
	var req ColumnsRequest
	if err := c.BodyParser(&req); err != nil {
		return handleError(c, fiber.NewError(http.StatusBadRequest, errInvalidRequest))
	}
	if err := validateStruct(&req); err != nil {
		return handleError(c, fiber.NewError(http.StatusBadRequest, err.Error()))
	}

	mapping := events.AutoDetectColumns(req.Headers)
	missing := mapping.Missing()
	if missing == nil {
		missing = []string{}
	}
	return c.JSON(ColumnsResponse{Mapping: mapping, Missing: missing})
}

// AnalyzeHandler runs a full analysis over a JSON table or a multipart CSV upload.
func (a *API) AnalyzeHandler(c *fiber.Ctx) error {
	logger := a.logger()
	start := time.Now()
	logger.Info("Received analyze request", slog.String("method", c.Method()), slog.String("path", c.Path()))

	req, err := parseAnalyzeRequest(c)
	if err != nil {
		logger.Debug("Failed to parse analyze request", slog.Any("error", err))
		metrics.ObserveAnalysis(metrics.Run{Source: "http", Err: err}, time.Since(start))
		return handleError(c, err)
	}

	opts, err := req.Options(a.ExcludeEventPattern)
	if err != nil {
		metrics.ObserveAnalysis(metrics.Run{Source: "http", Err: err}, time.Since(start))
		return handleError(c, fiber.NewError(http.StatusBadRequest, err.Error()))
	}

	report, err := analysis.Analyze(req.Headers, req.Rows, opts)
	if err != nil {
		metrics.ObserveAnalysis(metrics.Run{Source: "http", Err: err}, time.Since(start))
		if errors.Is(err, analysis.ErrMissingRequiredColumns) {
			return handleError(c, fiber.NewError(http.StatusUnprocessableEntity, err.Error()))
		}
		logger.Error("Analysis failed", slog.Any("error", err))
		return handleError(c, fiber.NewError(http.StatusInternalServerError, "Analysis failed"))
	}

	metrics.ObserveAnalysis(runOf(report), time.Since(start))
	logger.Info("Analysis completed",
		slog.String("datasetType", report.DatasetType.String()),
		slog.Int("rows", report.Quality.TotalRows),
		slog.Int("insights", len(report.Insights)),
		slog.Duration("elapsed", time.Since(start)))

	return c.Status(http.StatusOK).JSON(AnalyzeResponse{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Report:      report,
	})
}

func parseAnalyzeRequest(c *fiber.Ctx) (*AnalyzeRequest, error) {
	var req AnalyzeRequest
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if err := parseUpload(c, &req); err != nil {
			return nil, err
		}
	} else if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(http.StatusBadRequest, errInvalidRequest)
	}

	if req.Rows == nil {
		req.Rows = []events.RawRow{}
	}
	if err := validateStruct(&req); err != nil {
		return nil, fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return &req, nil
}

// parseUpload reads the "file" part and the run options from form values.
func parseUpload(c *fiber.Ctx, req *AnalyzeRequest) error {
	header, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, errInvalidUpload)
	}
	file, err := header.Open()
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, errInvalidUpload)
	}
	defer file.Close()

	table, err := csvinput.Read(file)
	if err != nil {
		if errors.Is(err, csvinput.ErrEmptyInput) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, errInvalidUpload)
	}

	req.Headers = table.Headers
	req.Rows = table.Rows
	req.Mapping = events.ColumnMapping{
		Timestamp: c.FormValue("timestamp_column"),
		UserID:    c.FormValue("userid_column"),
		EventName: c.FormValue("eventname_column"),
		SessionID: c.FormValue("sessionid_column"),
		Platform:  c.FormValue("platform_column"),
		Channel:   c.FormValue("channel_column"),
	}
	req.FunnelSteps = splitList(c.FormValue("funnel_steps"))
	req.StrictOrder = c.FormValue("strict_order") == "true"
	req.CohortEvent = c.FormValue("cohort_event")
	req.ActiveEvents = splitList(c.FormValue("active_events"))
	req.From = c.FormValue("from")
	req.To = c.FormValue("to")
	req.Tz = c.FormValue("tz")
	return nil
}

func runOf(report *analysis.Report) metrics.Run {
	keys := make([]string, len(report.Insights))
	for i, in := range report.Insights {
		keys[i] = in.Key
	}
	return metrics.Run{
		Source:      "http",
		DatasetType: report.DatasetType.String(),
		ValidRows:   report.Quality.ValidRows,
		FailedRows:  report.Quality.FailedRows,
		InsightKeys: keys,
	}
}

func handleError(c *fiber.Ctx, err error) error {
	if fiberErr, ok := err.(*fiber.Error); ok {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiberErr.Message,
		})
	}

	return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
		"error": errInvalidRequest,
	})
}
