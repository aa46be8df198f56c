package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/m1oa/internal/dynamo"
)

type ExportData struct {
	RunMetadata
	Times       []float64       `json:"times"`
	Loads       []dynamo.Load   `json:"loads"`
	Corrections []dynamo.Load   `json:"corrections"`
	Forces      []dynamo.Vector `json:"forces"`
}

// ExportJSON writes a stored run, metadata and trace together, as one
// indented JSON document.
func ExportJSON(w io.Writer, meta *RunMetadata, tr *Trace) error {
	data := ExportData{
		RunMetadata: *meta,
		Times:       tr.Times,
		Loads:       tr.Loads,
		Corrections: tr.Corrections,
		Forces:      make([]dynamo.Vector, len(tr.Forces)),
	}
	for i, row := range tr.Forces {
		data.Forces[i] = row
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Export loads run runID and writes it with ExportJSON.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	tr, err := s.LoadTrace(runID)
	if err != nil {
		return err
	}
	return ExportJSON(w, meta, tr)
}
