package balance

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ReadCSV parses 335 records of 6 fields each.
func ReadCSV(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = cols
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("balance: read csv: %w", err)
	}

	table := make([][]float64, len(records))
	for i, rec := range records {
		table[i] = make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("balance: row %d col %d: %w", i, j, err)
			}
			table[i][j] = v
		}
	}
	return New(table)
}

// WriteCSV writes the shortest representation that round-trips exactly.
func WriteCSV(w io.Writer, m *Matrix) error {
	cw := csv.NewWriter(w)
	rec := make([]string, cols)
	for i := range m.k {
		for j, v := range m.k[i] {
			rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func LoadFile(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func SaveFile(path string, m *Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
