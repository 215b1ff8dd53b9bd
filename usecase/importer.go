package usecase

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	domainCampaign "github.com/recuperafly/whatsapp-campaign-console/domains/campaign"
)

// ImporterService implements IImporterUsecase
type ImporterService struct{}

// NewImporterService creates a new recipient importer
func NewImporterService() *ImporterService {
	return &ImporterService{}
}

// Parse decodes an uploaded recipient file into a header/row table. Parsing
// is all-or-nothing: no partial table is ever returned.
func (s *ImporterService) Parse(filename string, r io.Reader) (*domainCampaign.SpreadsheetTable, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv", ".xlsx", ".xls":
	default:
		return nil, domainCampaign.ErrUnsupportedFile
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &domainCampaign.ReadError{Err: err}
	}

	var grid [][]string
	if ext == ".csv" {
		grid = parseCSVGrid(data)
	} else {
		grid, err = parseWorkbookGrid(data)
		if err != nil {
			return nil, &domainCampaign.ParseError{Err: err}
		}
	}

	if len(grid) == 0 {
		return nil, domainCampaign.ErrEmptyFile
	}

	// Row 0 becomes the header set, gap-filled for blank cells
	headers := make([]string, len(grid[0]))
	for i, cell := range grid[0] {
		if cell == "" {
			headers[i] = fmt.Sprintf("Column %d", i+1)
		} else {
			headers[i] = cell
		}
	}

	rows := make([]map[string]string, 0, len(grid)-1)
	for _, row := range grid[1:] {
		record := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(row) {
				record[header] = row[i]
			} else {
				record[header] = ""
			}
		}
		rows = append(rows, record)
	}

	logrus.WithFields(logrus.Fields{
		"file":    filename,
		"headers": len(headers),
		"rows":    len(rows),
	}).Info("Importer: File parsed")

	return &domainCampaign.SpreadsheetTable{Headers: headers, Rows: rows}, nil
}

// parseCSVGrid splits the file on newlines then commas, trimming every cell
// and dropping rows with no content at all
func parseCSVGrid(data []byte) [][]string {
	var grid [][]string
	for _, line := range strings.Split(string(data), "\n") {
		cells := strings.Split(line, ",")
		hasContent := false
		for i, cell := range cells {
			cells[i] = strings.TrimSpace(cell)
			if cells[i] != "" {
				hasContent = true
			}
		}
		if hasContent {
			grid = append(grid, cells)
		}
	}
	return grid
}

// parseWorkbookGrid reads the first sheet of an Excel workbook, dropping
// blank rows
func parseWorkbookGrid(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	var grid [][]string
	for _, row := range rows {
		hasContent := false
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				hasContent = true
				break
			}
		}
		if hasContent {
			grid = append(grid, row)
		}
	}
	return grid, nil
}

// MapColumns projects every table row onto the recipient schema using the
// operator's column mapping. Rows missing a phone or name after mapping are
// dropped silently; that is filtering, not a validation failure.
func (s *ImporterService) MapColumns(table *domainCampaign.SpreadsheetTable, mapping domainCampaign.ColumnMapping) ([]domainCampaign.Recipient, error) {
	if !mapping.Ready() {
		return nil, &domainCampaign.ValidationError{
			Field:  "mapping",
			Reason: "please map both Name and Phone columns",
		}
	}

	recipients := make([]domainCampaign.Recipient, 0, len(table.Rows))
	for _, row := range table.Rows {
		variables := make(map[string]string, domainCampaign.MaxVariables)
		for _, key := range domainCampaign.VariableKeys() {
			header := mapping[key]
			if header != "" {
				variables[key] = row[header]
			} else {
				variables[key] = ""
			}
		}

		recipient := domainCampaign.Recipient{
			Phone:     row[mapping[domainCampaign.FieldPhone]],
			Name:      row[mapping[domainCampaign.FieldName]],
			Variables: variables,
		}
		if recipient.Valid() {
			recipients = append(recipients, recipient)
		}
	}

	logrus.WithFields(logrus.Fields{
		"rows":     len(table.Rows),
		"imported": len(recipients),
	}).Info("Importer: Columns mapped")

	return recipients, nil
}

// AppendImported concatenates imported recipients after the existing ones.
// Deduplication is a separate explicit operation.
func (s *ImporterService) AppendImported(existing, imported []domainCampaign.Recipient) []domainCampaign.Recipient {
	out := make([]domainCampaign.Recipient, 0, len(existing)+len(imported))
	out = append(out, existing...)
	out = append(out, imported...)
	return out
}

// RemoveDuplicates keeps the first occurrence per distinct non-empty phone
// and drops recipients without a phone. removed == 0 means nothing changed.
// The result is never empty: a lone blank row is reseeded so the audience
// table always has something to edit.
func (s *ImporterService) RemoveDuplicates(recipients []domainCampaign.Recipient) ([]domainCampaign.Recipient, int) {
	seen := make(map[string]bool, len(recipients))
	unique := make([]domainCampaign.Recipient, 0, len(recipients))
	for _, r := range recipients {
		if r.Phone == "" || seen[r.Phone] {
			continue
		}
		seen[r.Phone] = true
		unique = append(unique, r)
	}

	removed := len(recipients) - len(unique)
	if removed == 0 {
		return recipients, 0
	}
	if len(unique) == 0 {
		unique = []domainCampaign.Recipient{domainCampaign.BlankRecipient()}
	}
	return unique, removed
}
