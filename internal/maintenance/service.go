package maintenance

import (
	"context"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/aevon-lab/meterstats/internal/meters"
	"github.com/aevon-lab/meterstats/internal/reconcile"
	"github.com/gin-gonic/gin"
)

// Engine is the subset of reconcile.Coordinator the maintenance API drives.
type Engine interface {
	Meters(ctx context.Context) ([]meters.Meter, error)
	Import(ctx context.Context, req reconcile.ImportRequest) (*reconcile.ImportResult, error)
	Replay(ctx context.Context, req reconcile.ReplayRequest) (*reconcile.ImportResult, error)
	ValidateMonotonic(ctx context.Context, key statistics.StatisticKey, since *time.Time) (*reconcile.ValidationResult, error)
	Reset(ctx context.Context, key statistics.StatisticKey, confirm bool) (*reconcile.ResetResult, error)
}

type Service struct {
	engine           Engine
	defaultDays      int
	maxBodySizeBytes int
	now              func() time.Time
}

func NewService(engine Engine, defaultDays, maxBodySizeMB int) *Service {
	if engine == nil {
		panic("maintenance: engine must not be nil")
	}
	if defaultDays <= 0 {
		defaultDays = reconcile.DefaultImportDays
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		engine:           engine,
		defaultDays:      defaultDays,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
		now:              time.Now,
	}
}

// RegisterRoutes registers the maintenance routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/meters", s.ListMetersHandler)
	r.POST("/v1/meters/:meter_id/import", s.ImportHandler)
	r.POST("/v1/meters/:meter_id/replay", s.ReplayHandler)
	r.GET("/v1/statistics/:statistic_id/validate", s.ValidateHandler)
	r.POST("/v1/statistics/:statistic_id/reset", s.ResetHandler)
}
