// Package export appends newly discovered items to CSV or JSONL files.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmtroyer/auctioneye/models"
)

// ItemWriter is the sink the run orchestrator feeds new items into.
type ItemWriter interface {
	Write(items []models.Item) error
	Close() error
}

// New builds the writer for the requested format. For "dual" the filename
// extension is replaced with .csv and .jsonl respectively.
func New(format, filename string) (ItemWriter, error) {
	switch format {
	case "csv":
		return NewCSVWriter(filename)
	case "jsonl":
		return NewJSONLWriter(filename)
	case "dual":
		base := strings.TrimSuffix(filename, filepath.Ext(filename))
		return NewMultiWriter(base+".csv", base+".jsonl")
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// CSVWriter appends item records to a CSV file that persists across runs.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter opens the file in append mode and writes the header row only
// when the file is new or empty.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	f, err := openAppend(filename)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if info.Size() == 0 {
		header := []string{"id", "title", "url", "price", "image", "first_seen"}
		if err := writer.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush csv header: %w", err)
		}
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends one row per item, stamped with the current run time.
func (cw *CSVWriter) Write(items []models.Item) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, item := range items {
		record := []string{
			item.ID,
			item.Title,
			item.URL,
			item.Price,
			item.Image,
			now,
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

type jsonlRecord struct {
	models.Item
	FirstSeen string `json:"first_seen"`
}

// JSONLWriter appends newline-delimited JSON records.
type JSONLWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
}

// NewJSONLWriter opens the file in append mode.
func NewJSONLWriter(filename string) (*JSONLWriter, error) {
	f, err := openAppend(filename)
	if err != nil {
		return nil, fmt.Errorf("open jsonl file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONLWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends items in JSONL format, stamped with the current run time.
func (jw *JSONLWriter) Write(items []models.Item) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, item := range items {
		if err := jw.encoder.Encode(jsonlRecord{Item: item, FirstSeen: now}); err != nil {
			return fmt.Errorf("encode jsonl record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush jsonl writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONLWriter) Close() error {
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush jsonl writer: %w", err)
	}
	return jw.file.Close()
}

// MultiWriter fans every write out to a CSV and a JSONL sink.
type MultiWriter struct {
	csvWriter   *CSVWriter
	jsonlWriter *JSONLWriter
}

// NewMultiWriter opens both sinks, closing the first if the second fails.
func NewMultiWriter(csvFilename, jsonlFilename string) (*MultiWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}

	jsonlWriter, err := NewJSONLWriter(jsonlFilename)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("create jsonl writer: %w", err)
	}

	return &MultiWriter{
		csvWriter:   csvWriter,
		jsonlWriter: jsonlWriter,
	}, nil
}

// Write writes items to both formats.
func (mw *MultiWriter) Write(items []models.Item) error {
	if err := mw.csvWriter.Write(items); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	if err := mw.jsonlWriter.Write(items); err != nil {
		return fmt.Errorf("jsonl write: %w", err)
	}
	return nil
}

// Close closes both writers.
func (mw *MultiWriter) Close() error {
	var errs []error

	if err := mw.csvWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("csv close: %w", err))
	}
	if err := mw.jsonlWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("jsonl close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors: %v", errs)
	}
	return nil
}

func openAppend(filename string) (*os.File, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	return os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
