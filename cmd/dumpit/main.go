// Dumpit packs a CSV dataset into the binary record format the mmap
// datasource reads, which makes large replays start instantly.
package main

import (
	"encoding/binary"
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/peter-kozarec/vigil/pkg/datasource"
	"github.com/peter-kozarec/vigil/pkg/datasource/csvfile"
	"github.com/peter-kozarec/vigil/pkg/datasource/record"
)

func dumpIt(cfg csvfile.Config, outPath string) error {
	reader := csvfile.NewReader(cfg)
	if err := reader.Open(); err != nil {
		return err
	}
	defer reader.Close()

	binFile, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer func(binFile *os.File) {
		_ = binFile.Close()
	}(binFile)

	var written, skipped int
	for {
		point, err := reader.GetNext()
		if errors.Is(err, datasource.ErrEof) {
			break
		}
		if errors.Is(err, datasource.ErrBadRow) {
			skipped++
			slog.Warn("skipping bad row", "error", err)
			continue
		}
		if err != nil {
			return err
		}

		value, _ := point.Value.Float64()
		entry := record.BinaryPoint{
			TimeStamp: point.TimeStamp.UnixNano(),
			Value:     value,
		}
		if err := binary.Write(binFile, binary.LittleEndian, entry); err != nil {
			return err
		}
		written++
	}

	slog.Info("dump finished", "out", outPath, "written", written, "skipped", skipped)
	return nil
}

func main() {
	csvPath := flag.String("csv", "", "input csv dataset")
	outPath := flag.String("out", "", "output .bin file (default: csv path with .bin suffix)")
	timeColumn := flag.String("time-column", csvfile.DefaultTimeColumn, "timestamp column name")
	valueColumn := flag.String("value-column", csvfile.DefaultValueColumn, "value column name")
	separator := flag.String("separator", string(csvfile.DefaultComma), "field separator")
	layout := flag.String("layout", csvfile.DefaultTimeLayout, "timestamp layout")
	flag.Parse()

	if *csvPath == "" {
		slog.Error("csv is required")
		os.Exit(1)
	}
	out := *outPath
	if out == "" {
		out = *csvPath + ".bin"
	}

	cfg := csvfile.Config{
		Path:        *csvPath,
		TimeColumn:  *timeColumn,
		ValueColumn: *valueColumn,
		Comma:       rune((*separator)[0]),
		TimeLayout:  *layout,
	}

	if err := dumpIt(cfg, out); err != nil {
		slog.Error("failed to dump", "error", err)
		_ = os.Remove(out)
		os.Exit(1)
	}
}
