package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Section is a titled dataset block, rendered one after another.
type Section struct {
	Title   string
	Dataset Dataset
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := e.write(buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderSections produces one CSV document with a title line per section
// and a blank line between sections.
func (e *CSVExporter) RenderSections(sections []Section) ([]byte, error) {
	buf := &bytes.Buffer{}
	for _, section := range sections {
		if section.Title != "" {
			buf.WriteString(section.Title)
			buf.WriteString("\n")
		}
		if err := e.write(buf, section.Dataset); err != nil {
			return nil, err
		}
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

func (e *CSVExporter) write(buf *bytes.Buffer, data Dataset) error {
	if len(data.Headers) == 0 {
		return fmt.Errorf("csv requires at least one header")
	}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
