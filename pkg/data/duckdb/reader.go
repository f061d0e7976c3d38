package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/peter-kozarec/vigil/pkg/common"
	"github.com/peter-kozarec/vigil/pkg/datasource"
	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

const readerComponentName = "data.duckdb.reader"

// Reader loads observation tables from a DuckDB database. Each table
// holds (ts TIMESTAMP, value DOUBLE) rows.
type Reader struct {
	dataSourceName string
	db             *sql.DB
}

func NewReader(dataSourceName string) *Reader {
	return &Reader{
		dataSourceName: dataSourceName,
	}
}

func (r *Reader) Connect() error {
	db, err := sql.Open("duckdb", r.dataSourceName)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	r.db = db
	return nil
}

func (r *Reader) Close() {
	_ = r.db.Close()
}

// LoadPoints streams every observation of the table between from and to,
// in timestamp order, into handler. Rows with non-finite or out-of-range
// values are skipped, consistent with the file sources.
func (r *Reader) LoadPoints(ctx context.Context, table string, from, to time.Time, handler func(point common.DataPoint) error) error {

	query := fmt.Sprintf(`SELECT ts, value FROM %s WHERE ts BETWEEN ? AND ? ORDER BY ts`, table)

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return fmt.Errorf("error preparing query: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		var timeStamp time.Time
		var value float64
		if err := rows.Scan(&timeStamp, &value); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}

		point, err := common.PointFromFloat64(timeStamp, value, readerComponentName)
		if err != nil {
			if errors.Is(err, fixed.ErrNotFinite) || errors.Is(err, fixed.ErrOutOfRange) {
				continue
			}
			return fmt.Errorf("error converting row: %w", err)
		}

		if err := handler(point); err != nil {
			return fmt.Errorf("error processing point: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error scanning rows: %w", err)
	}

	return nil
}

// LoadSource preloads a table into a restartable in-memory source.
func (r *Reader) LoadSource(ctx context.Context, table string, from, to time.Time) (*datasource.SliceSource, error) {
	var points []common.DataPoint
	err := r.LoadPoints(ctx, table, from, to, func(point common.DataPoint) error {
		points = append(points, point)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return datasource.NewSliceSource(points), nil
}
