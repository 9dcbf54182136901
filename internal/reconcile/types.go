package reconcile

import (
	"errors"
	"fmt"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/shopspring/decimal"
)

const (
	// DefaultImportDays is the history window of an import without an explicit days value.
	DefaultImportDays = 365
	// MaxImportDays bounds a single import request.
	MaxImportDays = 730

	// GranularityHourly is the only replay granularity: replaying one period at
	// several granularities yields overlapping bucket starts and double-counted deltas.
	GranularityHourly = "HOURLY"

	validationBatchSize = 1000
)

var (
	// ErrImportInProgress is returned when a request for a key arrives while an
	// import for that key is running. The request is dropped, not queued.
	ErrImportInProgress = errors.New("import already in progress")

	// ErrResetNotConfirmed guards the destructive reset operation.
	ErrResetNotConfirmed = errors.New("reset requires confirm=true")

	// ErrInvalidGranularity is returned for any replay granularity other than HOURLY.
	ErrInvalidGranularity = errors.New("only HOURLY granularity is supported")

	// ErrInvalidRequest marks request validation errors.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnknownMeter is returned when the meter id is not registered.
	ErrUnknownMeter = errors.New("unknown meter")
)

// ImportRequest asks for the last Days of source history to be imported.
type ImportRequest struct {
	MeterID        string
	Days           int
	ForceOverwrite bool // bypass the overlap filter and recompute from the baseline preceding the window
	PurgeRawAfter  bool // discard raw per-sample history for the key after a successful import
}

func (r ImportRequest) normalized() (ImportRequest, error) {
	if r.MeterID == "" {
		return r, invalidRequestf("meter_id is required")
	}
	if r.Days == 0 {
		r.Days = DefaultImportDays
	}
	if r.Days < 0 || r.Days > MaxImportDays {
		return r, invalidRequestf("days must be between 1 and %d, got %d", MaxImportDays, r.Days)
	}
	return r, nil
}

// ReplayRequest re-imports an explicit window from real source payloads.
type ReplayRequest struct {
	MeterID     string
	Start       time.Time
	End         time.Time
	Granularity string // HOURLY only; empty means HOURLY
}

func (r ReplayRequest) normalized() (ReplayRequest, error) {
	if r.MeterID == "" {
		return r, invalidRequestf("meter_id is required")
	}
	if r.Granularity == "" {
		r.Granularity = GranularityHourly
	}
	if r.Granularity != GranularityHourly {
		return r, fmt.Errorf("%w: got %q", ErrInvalidGranularity, r.Granularity)
	}
	if !r.End.After(r.Start) {
		return r, invalidRequestf("end time must be after start time")
	}
	return r, nil
}

// ImportResult summarizes one pipeline run.
type ImportResult struct {
	RunID            string                  `json:"run_id"`
	MeterID          string                  `json:"meter_id"`
	StatisticID      statistics.StatisticKey `json:"statistic_id"`
	Fetched          int                     `json:"fetched"`
	Imported         int                     `json:"imported"`
	LastBucket       *time.Time              `json:"last_bucket,omitempty"`
	AnchorWritten    bool                    `json:"anchor_written"`
	AnchorsRealigned int                     `json:"anchors_realigned"` // committed anchors rewritten across both series
	CostRows         int                     `json:"cost_rows"`
	PurgedRaw        int64                   `json:"purged_raw"`
	Verified         bool                    `json:"verified"`
}

// Violation is one place where the cumulative sum decreased.
type Violation struct {
	Index       int             `json:"index"`
	Start       time.Time       `json:"start"`
	PreviousSum decimal.Decimal `json:"previous_sum"`
	CurrentSum  decimal.Decimal `json:"current_sum"`
}

// Delta is current minus previous sum; always negative for a violation.
func (v Violation) Delta() decimal.Decimal {
	return v.CurrentSum.Sub(v.PreviousSum)
}

// ValidationResult is the outcome of ValidateMonotonic.
type ValidationResult struct {
	StatisticID statistics.StatisticKey `json:"statistic_id"`
	Checked     int                     `json:"checked"`
	Violations  []Violation             `json:"violations"`
	StartTime   *time.Time              `json:"start_time,omitempty"`
}

// ResetResult reports rows removed by Reset.
type ResetResult struct {
	StatisticID statistics.StatisticKey `json:"statistic_id"`
	Deleted     int64                   `json:"deleted"`
	CostDeleted int64                   `json:"cost_deleted"`
}

func invalidRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
