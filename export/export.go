// Package export writes extracted records as ICS, CSV, JSON or XLSX.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuhk-timetable/scraper"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("cuhk-timetable/export")

type Format string

const (
	FormatICS  Format = "ics"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

var formats = []Format{FormatICS, FormatCSV, FormatJSON, FormatXLSX}

func ParseFormat(text string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(text)))
	for _, known := range formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q, use ics, csv, json or xlsx", text)
}

// OutputPath appends the format's extension to base unless it already has
// it.
func OutputPath(base string, format Format) string {
	ext := "." + string(format)
	if strings.EqualFold(filepath.Ext(base), ext) {
		return base
	}
	return base + ext
}

type Options struct {
	// Now stamps DTSTAMP in ICS output. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func Write(w io.Writer, format Format, records []scraper.Record, opts Options) error {
	switch format {
	case FormatICS:
		return writeICS(w, records, opts)
	case FormatCSV:
		return writeCSV(w, records)
	case FormatJSON:
		return writeJSON(w, records)
	case FormatXLSX:
		return writeXLSX(w, records)
	}
	return fmt.Errorf("unsupported format %q", format)
}

// WriteFile creates (or truncates) path and writes records to it.
func WriteFile(ctx context.Context, path string, format Format, records []scraper.Record, opts Options) error {
	_, span := tracer.Start(ctx, "WriteFile")
	defer span.End()
	span.SetAttributes(
		attribute.String("format", string(format)),
		attribute.Int("records", len(records)),
	)

	f, err := os.Create(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("create output file: %w", err)
	}
	if err := Write(f, format, records, opts); err != nil {
		f.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write %s: %w", format, err)
	}
	return f.Close()
}
