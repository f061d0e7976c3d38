// Package vigil carries the pieces shared by the serve and replay
// binaries: the version string and the datasource wiring.
package vigil

import (
	"context"
	"fmt"
	"time"

	"github.com/peter-kozarec/vigil/pkg/common"
	"github.com/peter-kozarec/vigil/pkg/config"
	"github.com/peter-kozarec/vigil/pkg/data/duckdb"
	"github.com/peter-kozarec/vigil/pkg/datasource"
	"github.com/peter-kozarec/vigil/pkg/datasource/csvfile"
	"github.com/peter-kozarec/vigil/pkg/datasource/record"
	"github.com/peter-kozarec/vigil/pkg/datasource/synthetic"
	"github.com/peter-kozarec/vigil/pkg/server"
	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

const Version = "0.1.0"

// NewSourceFactory builds the per-session datasource factory for the
// configured dataset kind, plus a cleanup for shared underlying handles.
func NewSourceFactory(cfg config.DatasetConfig) (server.SourceFactory, func(), error) {
	noop := func() {}

	switch cfg.Kind {
	case "csv":
		comma := csvfile.DefaultComma
		if cfg.Separator != "" {
			comma = rune(cfg.Separator[0])
		}
		factory := func() (datasource.Source, error) {
			reader := csvfile.NewReader(csvfile.Config{
				Path:        cfg.Path,
				TimeColumn:  cfg.TimeColumn,
				ValueColumn: cfg.ValueColumn,
				Comma:       comma,
				TimeLayout:  cfg.TimeLayout,
			})
			if err := reader.Open(); err != nil {
				return nil, err
			}
			return reader, nil
		}
		return factory, noop, nil

	case "record":
		source := record.NewSource[record.BinaryPoint](cfg.Path)
		if err := source.Open(); err != nil {
			return nil, nil, err
		}
		factory := func() (datasource.Source, error) {
			return record.NewPointReader(source), nil
		}
		return factory, func() { source.Close() }, nil

	case "duckdb":
		points, err := loadDuckdbPoints(cfg)
		if err != nil {
			return nil, nil, err
		}
		factory := func() (datasource.Source, error) {
			return datasource.NewSliceSource(points), nil
		}
		return factory, noop, nil

	case "synthetic":
		factory := func() (datasource.Source, error) {
			return synthetic.NewPointGenerator(cfg.Seed, time.Now(), fixed.FromFloat64(cfg.Baseline), cfg.Noise, 0), nil
		}
		return factory, noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown dataset kind %q", cfg.Kind)
	}
}

// loadDuckdbPoints preloads the whole observation table so every
// session replays from memory.
func loadDuckdbPoints(cfg config.DatasetConfig) ([]common.DataPoint, error) {
	reader := duckdb.NewReader(cfg.Path)
	if err := reader.Connect(); err != nil {
		return nil, err
	}
	defer reader.Close()

	from := time.Unix(0, 0)
	to := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)

	var points []common.DataPoint
	err := reader.LoadPoints(context.Background(), cfg.Table, from, to, func(point common.DataPoint) error {
		points = append(points, point)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}
