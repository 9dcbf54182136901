package maintenance

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	httperr "github.com/aevon-lab/meterstats/internal/core/errors"
	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/aevon-lab/meterstats/internal/reconcile"
	"github.com/gin-gonic/gin"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
)

// apiError carries the structured HTTP error shape from a helper back to the handler.
type apiError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *apiError) Error() string {
	return e.message
}

type importBody struct {
	Days           int  `json:"days"`
	ForceOverwrite bool `json:"force_overwrite"`
	PurgeRawAfter  bool `json:"purge_raw_after"`
}

type replayBody struct {
	Start       time.Time `json:"start" binding:"required"`
	End         time.Time `json:"end" binding:"required"`
	Granularity string    `json:"granularity"`
}

type resetBody struct {
	Confirm bool `json:"confirm"`
}

type meterView struct {
	ID          string                  `json:"id"`
	StatisticID statistics.StatisticKey `json:"statistic_id"`
	CostID      statistics.StatisticKey `json:"cost_statistic_id"`
	UnitSystem  string                  `json:"unit_system"`
	Unit        string                  `json:"unit"`
}

// ListMetersHandler handles GET /v1/meters.
func (s *Service) ListMetersHandler(c *gin.Context) {
	list, err := s.engine.Meters(c.Request.Context())
	if err != nil {
		writeError(c, classify(err, "Failed to list meters"))
		return
	}

	out := make([]meterView, 0, len(list))
	for _, m := range list {
		key := m.Key()
		out = append(out, meterView{
			ID:          m.ID,
			StatisticID: key,
			CostID:      statistics.CostKey(key),
			UnitSystem:  m.UnitSystem,
			Unit:        statistics.NativeUnit(m.UnitSystem),
		})
	}
	c.JSON(http.StatusOK, gin.H{"meters": out})
}

// ImportHandler handles POST /v1/meters/:meter_id/import. An empty body imports
// the configured default window.
func (s *Service) ImportHandler(c *gin.Context) {
	var body importBody
	if err := s.bindJSON(c, &body, true); err != nil {
		writeError(c, err)
		return
	}
	if body.Days == 0 {
		body.Days = s.defaultDays
	}

	result, err := s.engine.Import(c.Request.Context(), reconcile.ImportRequest{
		MeterID:        c.Param("meter_id"),
		Days:           body.Days,
		ForceOverwrite: body.ForceOverwrite,
		PurgeRawAfter:  body.PurgeRawAfter,
	})
	if err != nil {
		writeError(c, classify(err, "Import failed"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReplayHandler handles POST /v1/meters/:meter_id/replay.
func (s *Service) ReplayHandler(c *gin.Context) {
	var body replayBody
	if err := s.bindJSON(c, &body, false); err != nil {
		writeError(c, err)
		return
	}

	result, err := s.engine.Replay(c.Request.Context(), reconcile.ReplayRequest{
		MeterID:     c.Param("meter_id"),
		Start:       body.Start,
		End:         body.End,
		Granularity: strings.ToUpper(body.Granularity),
	})
	if err != nil {
		writeError(c, classify(err, "Replay failed"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// ValidateHandler handles GET /v1/statistics/:statistic_id/validate.
// Query parameters: hours (optional, restricts the scan to the last N hours)
func (s *Service) ValidateHandler(c *gin.Context) {
	var since *time.Time
	if raw := c.Query("hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			writeError(c, &apiError{
				statusCode: http.StatusBadRequest,
				errorType:  httperr.HttpInvalidRequestError,
				message:    "hours must be a positive integer",
				details:    raw,
			})
			return
		}
		start := s.now().UTC().Add(-time.Duration(hours) * time.Hour)
		since = &start
	}

	result, err := s.engine.ValidateMonotonic(c.Request.Context(), resolveStatisticID(c.Param("statistic_id")), since)
	if err != nil {
		writeError(c, classify(err, "Validation failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"statistic_id": result.StatisticID,
		"checked":      result.Checked,
		"valid":        len(result.Violations) == 0,
		"start_time":   result.StartTime,
		"violations":   violationViews(result.Violations),
	})
}

// ResetHandler handles POST /v1/statistics/:statistic_id/reset.
func (s *Service) ResetHandler(c *gin.Context) {
	var body resetBody
	if err := s.bindJSON(c, &body, true); err != nil {
		writeError(c, err)
		return
	}

	key := resolveStatisticID(c.Param("statistic_id"))
	result, err := s.engine.Reset(c.Request.Context(), key, body.Confirm)
	if err != nil {
		writeError(c, classify(err, "Reset failed"))
		return
	}
	slog.Warn("[Maintenance] Statistics reset",
		"statistic_id", result.StatisticID,
		"deleted", result.Deleted,
		"cost_deleted", result.CostDeleted)
	c.JSON(http.StatusOK, result)
}

// bindJSON reads at most maxBodySizeBytes and decodes it into dst.
func (s *Service) bindJSON(c *gin.Context, dst interface{}, allowEmpty bool) *apiError {
	maxBytes := int64(s.maxBodySizeBytes)
	bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBytes+1)) // +1 to detect oversized requests
	if err != nil {
		slog.Error("[Maintenance] Failed to read request body", "error", err)
		return &apiError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}
	if int64(len(bodyBytes)) > maxBytes {
		return &apiError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}
	if allowEmpty && len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	if err := c.ShouldBindJSON(dst); err != nil {
		return &apiError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
			details:    err.Error(),
		}
	}
	return nil
}

// resolveStatisticID accepts either a statistic id or a bare meter id.
func resolveStatisticID(raw string) statistics.StatisticKey {
	if strings.Contains(raw, ".") {
		return statistics.StatisticKey(raw)
	}
	return statistics.KeyForMeter(raw)
}

// classify maps engine errors to HTTP responses.
func classify(err error, fallback string) *apiError {
	status, errorType := http.StatusInternalServerError, httperr.HttpInternalError
	switch {
	case errors.Is(err, reconcile.ErrImportInProgress):
		status, errorType = http.StatusConflict, httperr.HttpImportBusyError
	case errors.Is(err, reconcile.ErrUnknownMeter):
		status, errorType = http.StatusNotFound, httperr.HttpMeterNotFoundError
	case errors.Is(err, reconcile.ErrResetNotConfirmed):
		status, errorType = http.StatusBadRequest, httperr.HttpResetNotConfirmed
	case errors.Is(err, statistics.ErrUnrecognizedUnit):
		status, errorType = http.StatusBadRequest, httperr.HttpUnknownUnitError
	case errors.Is(err, statistics.ErrInvalidMetadata):
		status, errorType = http.StatusBadRequest, httperr.HttpInvalidMetadataError
	case errors.Is(err, reconcile.ErrInvalidRequest),
		errors.Is(err, reconcile.ErrInvalidGranularity),
		errors.Is(err, statistics.ErrInvalidKey):
		status, errorType = http.StatusBadRequest, httperr.HttpInvalidRequestError
	}

	if status == http.StatusInternalServerError {
		slog.Error("[Maintenance] "+fallback, "error", err)
		return &apiError{statusCode: status, errorType: errorType, message: fallback, details: err.Error()}
	}
	return &apiError{statusCode: status, errorType: errorType, message: err.Error()}
}

type violationView struct {
	Index       int       `json:"index"`
	Start       time.Time `json:"start"`
	PreviousSum string    `json:"previous_sum"`
	CurrentSum  string    `json:"current_sum"`
	Delta       string    `json:"delta"`
}

func violationViews(in []reconcile.Violation) []violationView {
	out := make([]violationView, 0, len(in))
	for _, v := range in {
		out = append(out, violationView{
			Index:       v.Index,
			Start:       v.Start,
			PreviousSum: v.PreviousSum.String(),
			CurrentSum:  v.CurrentSum.String(),
			Delta:       v.Delta().String(),
		})
	}
	return out
}

// writeError serializes an apiError as the JSON HTTP response.
func writeError(c *gin.Context, err *apiError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}

