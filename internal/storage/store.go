package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/m1oa/internal/dynamo"
	"github.com/san-kum/m1oa/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Scenario  string             `json:"scenario"`
	Timestamp time.Time          `json:"timestamp"`
	Ts        float64            `json:"ts"`
	Ticks     int                `json:"ticks"`
	Overruns  int                `json:"overruns"`
	Actuators []int              `json:"actuators"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Trace is the recorded part of a run read back from trace.csv.
type Trace struct {
	Times       []float64
	Loads       []dynamo.Load
	Corrections []dynamo.Load
	Actuators   []int
	Forces      [][]float64
}

func (s *Store) Save(name string, ts float64, result *sim.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Name:      name,
		Scenario:  result.Scenario,
		Timestamp: now,
		Ts:        ts,
		Ticks:     result.Ticks,
		Overruns:  result.Overruns,
		Actuators: result.Actuators,
		Metrics:   result.Metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "trace.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)

	header := []string{"time"}
	for _, a := range dynamo.Axes() {
		header = append(header, a.String())
	}
	for _, a := range dynamo.Axes() {
		header = append(header, "c"+a.String())
	}
	for _, idx := range result.Actuators {
		header = append(header, fmt.Sprintf("f%d", idx))
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for i := range result.Times {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatFloat(result.Times[i], 'f', 6, 64))
		for _, v := range result.Loads[i] {
			row = append(row, formatFloat(v))
		}
		for _, v := range result.Corrections[i] {
			row = append(row, formatFloat(v))
		}
		for _, v := range result.Forces[i] {
			row = append(row, formatFloat(v))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return runID, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}

	return &meta, nil
}

func (s *Store) LoadTrace(runID string) (*Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "trace.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty trace", runID)
	}

	header := records[0]
	fixed := 1 + 2*dynamo.NumAxes
	if len(header) < fixed {
		return nil, fmt.Errorf("%s: trace header has %d columns, want at least %d", runID, len(header), fixed)
	}

	tr := &Trace{}
	for _, col := range header[fixed:] {
		idx, err := strconv.Atoi(strings.TrimPrefix(col, "f"))
		if err != nil {
			return nil, fmt.Errorf("%s: bad actuator column %q", runID, col)
		}
		tr.Actuators = append(tr.Actuators, idx)
	}

	for n, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d column %s: %w", runID, n+1, header[j], err)
			}
			vals[j] = v
		}

		var load, corr dynamo.Load
		copy(load[:], vals[1:1+dynamo.NumAxes])
		copy(corr[:], vals[1+dynamo.NumAxes:fixed])

		tr.Times = append(tr.Times, vals[0])
		tr.Loads = append(tr.Loads, load)
		tr.Corrections = append(tr.Corrections, corr)
		tr.Forces = append(tr.Forces, vals[fixed:])
	}

	return tr, nil
}
