// Package export turns active card records into a downloadable tabular
// document. Encoding is a pure function of its input rows.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/ignite/cardscan/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Format selects the document encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// Columns is the fixed header row. Record ids, state and timestamps are
// never exported.
var Columns = []string{"Name", "Company", "Phone", "Email", "Website", "City"}

const (
	baseFilename = "visiting_cards_report"
	sheetName    = "Cards"
)

// ParseFormat accepts "xlsx"/"excel" and "csv" (case-insensitive). Empty
// means xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx", "excel":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Document is an encoded export ready to be sent or archived.
type Document struct {
	Filename    string
	ContentType string
	Rows        int
	Body        []byte
}

// Build encodes cards as a document with one row per card under the
// Columns header.
func Build(format Format, cards []domain.Card) (*Document, error) {
	rows := make([][]string, 0, len(cards))
	for _, c := range cards {
		rows = append(rows, c.CardFields.Values())
	}

	var (
		body []byte
		err  error
		doc  = &Document{Rows: len(rows)}
	)
	switch format {
	case FormatCSV:
		body, err = encodeCSV(rows)
		doc.ContentType = "text/csv; charset=utf-8"
	case FormatXLSX:
		body, err = encodeXLSX(rows)
		doc.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s export: %w", format, err)
	}
	doc.Filename = baseFilename + "." + string(format)
	doc.Body = body
	return doc, nil
}

func encodeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return nil, err
	}
	for _, row := range rows {
		safe := make([]string, len(row))
		for i, v := range row {
			safe[i] = neutralizeFormula(v)
		}
		if err := w.Write(safe); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// neutralizeFormula quotes a CSV cell that a spreadsheet would evaluate as
// a formula. Phone-style values made only of digits and separators are
// left alone; they can carry a leading + but cannot call functions.
func neutralizeFormula(v string) string {
	if v == "" || !strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return v
	}
	if strings.Trim(v, "0123456789+-(). ") == "" {
		return v
	}
	return "'" + v
}

// encodeXLSX writes every field as a string cell, so field text is never
// interpreted as a formula.
func encodeXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	header := append([]string(nil), Columns...)
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return nil, err
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &rows[i]); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
