package recovery

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Row is one recovery request from the input file: the account to repair,
// identified by username and current (attacker-set or legitimate) email, and
// the address to restore.
type Row struct {
	Username string
	Email    string
	NewEmail string
}

var requiredColumns = []string{"username", "email", "new_email"}

// LoadRows reads the entire recovery CSV into memory, in file order. The
// first record is the header; required columns are matched case-insensitively
// in any order and extra columns are ignored. Short data rows yield empty
// fields and fail later at account resolution instead of being rejected here.
func LoadRows(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening recovery csv file %s: %w", path, err)
	}
	defer f.Close()

	// A BOM-aware decoder keeps UTF-8 files from spreadsheet exports intact,
	// with or without the byte order mark.
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	reader := csv.NewReader(transform.NewReader(f, decoder))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("recovery csv file %s is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("csv header of %s is missing required column %q", path, name)
		}
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading recovery csv file %s: %w", path, err)
		}
		rows = append(rows, Row{
			Username: field(record, columns["username"]),
			Email:    field(record, columns["email"]),
			NewEmail: field(record, columns["new_email"]),
		})
	}
	return rows, nil
}

func field(record []string, index int) string {
	if index < 0 || index >= len(record) {
		return ""
	}
	return record[index]
}
