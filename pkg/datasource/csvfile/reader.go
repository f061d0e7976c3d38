package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/peter-kozarec/vigil/pkg/common"
	"github.com/peter-kozarec/vigil/pkg/datasource"
)

const (
	csvReaderComponentName = "datasource.csvfile.reader"

	DefaultTimeColumn  = "datetime"
	DefaultValueColumn = "Current"
	DefaultComma       = ';'
	DefaultTimeLayout  = "2006-01-02 15:04:05"
)

const invalidColumn = -1

// Config describes the dataset file layout. Zero fields fall back to the
// defaults above, which match the semicolon-separated sensor dumps the
// service is usually demoed with.
type Config struct {
	Path        string
	TimeColumn  string
	ValueColumn string
	Comma       rune
	TimeLayout  string
}

// Reader streams DataPoints from a delimited text file, one row per call.
type Reader struct {
	cfg Config

	file     *os.File
	csv      *csv.Reader
	timeIdx  int
	valueIdx int
	row      int
}

func NewReader(cfg Config) *Reader {
	if cfg.TimeColumn == "" {
		cfg.TimeColumn = DefaultTimeColumn
	}
	if cfg.ValueColumn == "" {
		cfg.ValueColumn = DefaultValueColumn
	}
	if cfg.Comma == 0 {
		cfg.Comma = DefaultComma
	}
	if cfg.TimeLayout == "" {
		cfg.TimeLayout = DefaultTimeLayout
	}
	return &Reader{
		cfg:      cfg,
		timeIdx:  invalidColumn,
		valueIdx: invalidColumn,
	}
}

func (r *Reader) Open() error {
	file, err := os.Open(r.cfg.Path)
	if err != nil {
		return fmt.Errorf("unable to open dataset %q: %w", r.cfg.Path, err)
	}
	r.file = file

	if err := r.rewind(); err != nil {
		_ = file.Close()
		r.file = nil
		return err
	}
	return nil
}

func (r *Reader) Close() {
	if r.file != nil {
		_ = r.file.Close()
	}
}

func (r *Reader) GetNext() (common.DataPoint, error) {
	var point common.DataPoint

	record, err := r.csv.Read()
	if err == io.EOF {
		return point, datasource.ErrEof
	}
	if err != nil {
		return point, fmt.Errorf("error reading row %d: %w", r.row, err)
	}
	r.row++

	if r.timeIdx >= len(record) || r.valueIdx >= len(record) {
		return point, fmt.Errorf("row %d is missing columns: %w", r.row, datasource.ErrBadRow)
	}

	timeStamp, err := time.Parse(r.cfg.TimeLayout, record[r.timeIdx])
	if err != nil {
		return point, fmt.Errorf("bad timestamp at row %d (%v): %w", r.row, err, datasource.ErrBadRow)
	}

	value, err := strconv.ParseFloat(record[r.valueIdx], 64)
	if err != nil {
		return point, fmt.Errorf("unparsable value at row %d: %w", r.row, datasource.ErrBadRow)
	}

	point, err = common.PointFromFloat64(timeStamp, value, csvReaderComponentName)
	if err != nil {
		return point, fmt.Errorf("bad value at row %d: %w: %w", r.row, err, datasource.ErrBadRow)
	}
	return point, nil
}

func (r *Reader) Reset() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("unable to rewind dataset %q: %w", r.cfg.Path, err)
	}
	return r.rewind()
}

// rewind rebuilds the csv reader and re-reads the header row.
func (r *Reader) rewind() error {
	r.csv = csv.NewReader(r.file)
	r.csv.Comma = r.cfg.Comma
	r.csv.FieldsPerRecord = -1
	r.row = 0

	header, err := r.csv.Read()
	if err != nil {
		return fmt.Errorf("unable to read dataset header: %w", err)
	}

	r.timeIdx = invalidColumn
	r.valueIdx = invalidColumn
	for i, name := range header {
		switch name {
		case r.cfg.TimeColumn:
			r.timeIdx = i
		case r.cfg.ValueColumn:
			r.valueIdx = i
		}
	}

	if r.timeIdx == invalidColumn {
		return fmt.Errorf("time column %q not found in header", r.cfg.TimeColumn)
	}
	if r.valueIdx == invalidColumn {
		return fmt.Errorf("value column %q not found in header", r.cfg.ValueColumn)
	}
	return nil
}
