package meters

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a meter id is not registered.
var ErrNotFound = errors.New("meter not found")

// Meter is one registered physical meter.
// Meters are loaded at startup from YAML files and fingerprinted so a changed
// definition is visible in logs.
type Meter struct {
	ID          string
	Name        string
	UnitSystem  string           // imperial | metric
	Price       *decimal.Decimal // optional per-unit price override for the cost series
	Currency    string
	Fingerprint string // SHA-256 of the raw YAML file
}

// Key returns the consumption statistic id of the meter.
func (m Meter) Key() statistics.StatisticKey {
	return statistics.KeyForMeter(m.ID)
}

// rawMeter is the on-disk YAML shape.
type rawMeter struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	UnitSystem   string `yaml:"unit_system"`    // optional; defaults to imperial
	PricePerUnit string `yaml:"price_per_unit"` // optional decimal string
	Currency     string `yaml:"currency"`       // optional; required with price_per_unit
}

// Repository defines how registered meters are looked up.
type Repository interface {
	// Get returns the meter with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Meter, error)

	// List returns all registered meters ordered by id.
	List(ctx context.Context) ([]Meter, error)
}

// FileSystemRepository loads meter definitions from *.yaml files in a directory.
// Each file holds exactly one meter. Definitions are loaded once at startup.
type FileSystemRepository struct {
	dir    string
	meters map[string]Meter // keyed by ID
}

// NewFileSystemRepository creates a repository and eagerly loads every meter in dir.
// Returns an error if any file is malformed or two files declare the same meter.
func NewFileSystemRepository(dir string) (*FileSystemRepository, error) {
	repo := &FileSystemRepository{
		dir:    dir,
		meters: make(map[string]Meter),
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

// NewStaticRepository builds a repository from already constructed meters.
func NewStaticRepository(list []Meter) *FileSystemRepository {
	repo := &FileSystemRepository{meters: make(map[string]Meter, len(list))}
	for _, m := range list {
		if m.UnitSystem == "" {
			m.UnitSystem = statistics.UnitSystemImperial
		}
		repo.meters[m.ID] = m
	}
	return repo
}

func (r *FileSystemRepository) load() error {
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil // no meters directory: zero meters registered
	}
	if err != nil {
		return fmt.Errorf("meter config dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("meter config path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading meter config dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading meter file %s: %w", path, err)
		}

		var raw rawMeter
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing meter file %s: %w", path, err)
		}
		if raw.ID == "" {
			continue // skip empty / comment-only files
		}

		meter, err := raw.toMeter()
		if err != nil {
			return err
		}
		meter.Fingerprint = fmt.Sprintf("%x", sha256.Sum256(data))

		if _, exists := r.meters[meter.ID]; exists {
			return fmt.Errorf("meter %q: duplicate meter id (check multiple YAML files)", meter.ID)
		}
		r.meters[meter.ID] = meter
	}
	return nil
}

func (raw rawMeter) toMeter() (Meter, error) {
	unitSystem := raw.UnitSystem
	if unitSystem == "" {
		unitSystem = statistics.UnitSystemImperial
	}
	if !statistics.ValidUnitSystem(unitSystem) {
		return Meter{}, fmt.Errorf("meter %q: unsupported unit_system %q", raw.ID, raw.UnitSystem)
	}
	if err := statistics.KeyForMeter(raw.ID).Validate(); err != nil {
		return Meter{}, fmt.Errorf("meter %q: %w", raw.ID, err)
	}

	meter := Meter{
		ID:         raw.ID,
		Name:       raw.Name,
		UnitSystem: unitSystem,
		Currency:   raw.Currency,
	}
	if meter.Name == "" {
		meter.Name = statistics.StatisticName(raw.ID)
	}

	if raw.PricePerUnit != "" {
		price, err := decimal.NewFromString(raw.PricePerUnit)
		if err != nil {
			return Meter{}, fmt.Errorf("meter %q: invalid price_per_unit %q: %w", raw.ID, raw.PricePerUnit, err)
		}
		if price.IsNegative() {
			return Meter{}, fmt.Errorf("meter %q: price_per_unit must be >= 0", raw.ID)
		}
		if raw.Currency == "" {
			return Meter{}, fmt.Errorf("meter %q: currency is required with price_per_unit", raw.ID)
		}
		meter.Price = &price
	}
	return meter, nil
}

// Get returns the meter with the given id, or ErrNotFound.
func (r *FileSystemRepository) Get(_ context.Context, id string) (*Meter, error) {
	meter, ok := r.meters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &meter, nil
}

// List returns all registered meters ordered by id.
func (r *FileSystemRepository) List(_ context.Context) ([]Meter, error) {
	return r.GetMeters(), nil
}

// GetMeters returns all meters as a slice ordered by id.
func (r *FileSystemRepository) GetMeters() []Meter {
	out := make([]Meter, 0, len(r.meters))
	for _, m := range r.meters {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
