package filter

import (
	"context"
	_ "embed"
	"log/slog"

	"horsemarket-web/internal/api"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

//go:embed regions.yaml
var defaultRegions []byte

type regionFile struct {
	Regions []api.Region `yaml:"regions"`
}

// Table is an immutable region to district lookup.
type Table struct {
	regions   []string
	districts map[string][]string
}

func NewTable(regions []api.Region) *Table {
	t := &Table{districts: make(map[string][]string, len(regions))}
	for _, r := range regions {
		if r.Name == "" {
			continue
		}
		if _, seen := t.districts[r.Name]; !seen {
			t.regions = append(t.regions, r.Name)
		}
		t.districts[r.Name] = append([]string(nil), r.Districts...)
	}
	return t
}

func ParseTable(data []byte) (*Table, error) {
	var file regionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "parse region table")
	}
	if len(file.Regions) == 0 {
		return nil, errors.New("region table is empty")
	}
	return NewTable(file.Regions), nil
}

func DefaultTable() *Table {
	t, err := ParseTable(defaultRegions)
	if err != nil {
		panic(err)
	}
	return t
}

type RegionSource interface {
	Regions(ctx context.Context) ([]api.Region, error)
}

// Load fetches the table once from source and falls back to the built-in table.
func Load(ctx context.Context, source RegionSource, logger *slog.Logger) *Table {
	regions, err := source.Regions(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Error loading regions, using built-in table", "error", err)
		return DefaultTable()
	}
	if len(regions) == 0 {
		logger.WarnContext(ctx, "API returned no regions, using built-in table")
		return DefaultTable()
	}
	logger.InfoContext(ctx, "Loaded region table", "regions", len(regions))
	return NewTable(regions)
}

func (t *Table) Regions() []string {
	return append([]string(nil), t.regions...)
}

// Districts returns the districts of region, or nil when region is unknown or empty.
func (t *Table) Districts(region string) []string {
	districts, ok := t.districts[region]
	if !ok {
		return nil
	}
	return append([]string(nil), districts...)
}

func (t *Table) HasRegion(region string) bool {
	_, ok := t.districts[region]
	return ok
}

func (t *Table) HasDistrict(region, district string) bool {
	for _, d := range t.districts[region] {
		if d == district {
			return true
		}
	}
	return false
}
