package csvfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/peter-kozarec/vigil/pkg/datasource"
	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func TestCsvFileReader_GetNext(t *testing.T) {
	path := writeDataset(t, "datetime;Current\n"+
		"2020-03-01 10:00:00;1.25\n"+
		"2020-03-01 10:00:01;1.5\n")

	r := NewReader(Config{Path: path, ValueColumn: "Current"})
	if err := r.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	first, err := r.GetNext()
	if err != nil {
		t.Fatalf("first GetNext: %v", err)
	}
	if !first.Value.Eq(fixed.FromFloat64(1.25)) {
		t.Errorf("first value: got %v, want 1.25", first.Value)
	}
	if first.TimeStamp.Hour() != 10 || first.TimeStamp.Second() != 0 {
		t.Errorf("unexpected timestamp: %v", first.TimeStamp)
	}
	if first.Source != csvReaderComponentName {
		t.Errorf("source: got %q", first.Source)
	}

	second, err := r.GetNext()
	if err != nil {
		t.Fatalf("second GetNext: %v", err)
	}
	if !second.Value.Eq(fixed.FromFloat64(1.5)) {
		t.Errorf("second value: got %v, want 1.5", second.Value)
	}

	if _, err := r.GetNext(); !errors.Is(err, datasource.ErrEof) {
		t.Errorf("expected ErrEof, got %v", err)
	}
}

func TestCsvFileReader_RejectsBadRows(t *testing.T) {
	tests := []struct {
		name    string
		row     string
		wantErr error
	}{
		{
			name:    "NaN value",
			row:     "2020-03-01 10:00:00;NaN",
			wantErr: fixed.ErrNotFinite,
		},
		{
			name:    "infinite value",
			row:     "2020-03-01 10:00:00;+Inf",
			wantErr: fixed.ErrNotFinite,
		},
		{
			name:    "unparsable value",
			row:     "2020-03-01 10:00:00;broken",
			wantErr: datasource.ErrBadRow,
		},
		{
			name:    "value beyond decimal range",
			row:     "2020-03-01 10:00:00;1e300",
			wantErr: fixed.ErrOutOfRange,
		},
		{
			name:    "oversized finite value",
			row:     "2020-03-01 10:00:00;1e10",
			wantErr: fixed.ErrOutOfRange,
		},
		{
			name:    "unparsable timestamp",
			row:     "not-a-timestamp;1.0",
			wantErr: datasource.ErrBadRow,
		},
		{
			name:    "missing value column",
			row:     "2020-03-01 10:00:00",
			wantErr: datasource.ErrBadRow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDataset(t, "datetime;Current\n"+tt.row+"\n"+
				"2020-03-01 10:00:01;2.0\n")

			r := NewReader(Config{Path: path, ValueColumn: "Current"})
			if err := r.Open(); err != nil {
				t.Fatalf("open: %v", err)
			}
			defer r.Close()

			_, err := r.GetNext()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			// Every per-row failure carries the skippable marker.
			if !errors.Is(err, datasource.ErrBadRow) {
				t.Errorf("error does not wrap ErrBadRow: %v", err)
			}

			// The bad row must not abort the stream.
			point, err := r.GetNext()
			if err != nil {
				t.Fatalf("GetNext after bad row: %v", err)
			}
			if !point.Value.Eq(fixed.FromFloat64(2.0)) {
				t.Errorf("value after bad row: got %v, want 2", point.Value)
			}
		})
	}
}

func TestCsvFileReader_Reset(t *testing.T) {
	path := writeDataset(t, "datetime;Current\n"+
		"2020-03-01 10:00:00;3.5\n")

	r := NewReader(Config{Path: path, ValueColumn: "Current"})
	if err := r.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	if _, err := r.GetNext(); err != nil {
		t.Fatalf("GetNext: %v", err)
	}
	if _, err := r.GetNext(); !errors.Is(err, datasource.ErrEof) {
		t.Fatalf("expected ErrEof, got %v", err)
	}

	if err := r.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	point, err := r.GetNext()
	if err != nil {
		t.Fatalf("GetNext after reset: %v", err)
	}
	if !point.Value.Eq(fixed.FromFloat64(3.5)) {
		t.Errorf("value after reset: got %v, want 3.5", point.Value)
	}
}

func TestCsvFileReader_MissingColumn(t *testing.T) {
	path := writeDataset(t, "datetime;Other\n"+
		"2020-03-01 10:00:00;1.0\n")

	r := NewReader(Config{Path: path, ValueColumn: "Current"})
	if err := r.Open(); err == nil {
		t.Error("expected error for missing value column")
		r.Close()
	}
}
