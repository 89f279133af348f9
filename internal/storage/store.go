package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kepler-sim/orbitlab/internal/body"
	"github.com/kepler-sim/orbitlab/internal/orbit"
)

// Store persists simulation runs under a base directory, one subdirectory
// per run holding metadata.json, states.csv, elements.csv and
// encounters.json.
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
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Timestamp     time.Time          `json:"timestamp"`
	G             float64            `json:"g"`
	Dt            float64            `json:"dt"`
	Duration      float64            `json:"duration"`
	Integrator    string             `json:"integrator"`
	MinDistance   float64            `json:"min_distance"`
	InitialBodies int                `json:"initial_bodies"`
	FinalBodies   int                `json:"final_bodies"`
	Merges        int                `json:"merges"`
	Metrics       map[string]float64 `json:"metrics"`
}

// Snapshot is the body set at one sampled time.
type Snapshot struct {
	Time   float64
	Bodies []body.Body
}

// EncounterEvent records one close encounter and the merge that resolved it.
type EncounterEvent struct {
	Time     float64 `json:"time"`
	First    string  `json:"first"`
	Second   string  `json:"second"`
	Distance float64 `json:"distance"`
	Survivor string  `json:"survivor"`
	Mass     float64 `json:"mass"`
}

// ElementsSample is one body's semi-major axis and eccentricity at a
// sampled time.
type ElementsSample struct {
	Time float64
	ID   string
	A    float64
	E    float64
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 17, 64)
}

// Save writes a run to disk and returns its identifier. The elements series
// is derived from the snapshots relative to each snapshot's first body.
func (s *Store) Save(meta RunMetadata, snaps []Snapshot, events []EncounterEvent) (string, error) {
	runID := fmt.Sprintf("%s_%d", meta.Name, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "encounters.json"), events); err != nil {
		return "", err
	}
	if err := s.writeStates(filepath.Join(runDir, "states.csv"), snaps); err != nil {
		return "", err
	}
	if err := s.writeElements(filepath.Join(runDir, "elements.csv"), snaps, meta.G); err != nil {
		return "", err
	}

	return runID, nil
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeStates uses a long format (one row per body per sample) because the
// body count can shrink mid-run when encounters merge bodies.
func (s *Store) writeStates(path string, snaps []Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"time", "id", "mass", "x", "y", "z", "vx", "vy", "vz"}); err != nil {
		return err
	}

	for _, snap := range snaps {
		for _, b := range snap.Bodies {
			row := []string{
				fmtFloat(snap.Time), b.ID, fmtFloat(b.Mass),
				fmtFloat(b.Pos[0]), fmtFloat(b.Pos[1]), fmtFloat(b.Pos[2]),
				fmtFloat(b.Vel[0]), fmtFloat(b.Vel[1]), fmtFloat(b.Vel[2]),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	return w.Error()
}

func (s *Store) writeElements(path string, snaps []Snapshot, g float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"time", "id", "a", "e"}); err != nil {
		return err
	}

	for _, snap := range snaps {
		if len(snap.Bodies) < 2 {
			continue
		}
		primary := snap.Bodies[0]
		for _, b := range snap.Bodies[1:] {
			mu := g * (primary.Mass + b.Mass)
			el := orbit.FromRV(b.Pos.Sub(primary.Pos), b.Vel.Sub(primary.Vel), mu)
			row := []string{fmtFloat(snap.Time), b.ID, fmtFloat(el.A), fmtFloat(el.E)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	return w.Error()
}

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

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadStates(runID string) ([]Snapshot, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Snapshot{}, nil
	}

	snaps := make([]Snapshot, 0)
	var cur *Snapshot
	lastTime := ""

	for _, rec := range records[1:] {
		if len(rec) != 9 {
			return nil, fmt.Errorf("states.csv: malformed row with %d fields", len(rec))
		}
		vals := make([]float64, 7)
		for i, idx := range []int{0, 2, 3, 4, 5, 6, 7} {
			v, err := strconv.ParseFloat(rec[idx], 64)
			if err != nil {
				return nil, fmt.Errorf("states.csv: %w", err)
			}
			vals[i] = v
		}
		vz, err := strconv.ParseFloat(rec[8], 64)
		if err != nil {
			return nil, fmt.Errorf("states.csv: %w", err)
		}

		if rec[0] != lastTime {
			snaps = append(snaps, Snapshot{Time: vals[0]})
			cur = &snaps[len(snaps)-1]
			lastTime = rec[0]
		}
		cur.Bodies = append(cur.Bodies, body.Body{
			ID:   rec[1],
			Mass: vals[1],
			Pos:  body.Vec3{vals[2], vals[3], vals[4]},
			Vel:  body.Vec3{vals[5], vals[6], vz},
		})
	}

	return snaps, nil
}

func (s *Store) LoadElements(runID string) ([]ElementsSample, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "elements.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []ElementsSample{}, nil
	}

	samples := make([]ElementsSample, 0, len(records))
	for _, rec := range records[1:] {
		if len(rec) != 4 {
			return nil, fmt.Errorf("elements.csv: malformed row with %d fields", len(rec))
		}
		t, err1 := strconv.ParseFloat(rec[0], 64)
		a, err2 := strconv.ParseFloat(rec[2], 64)
		e, err3 := strconv.ParseFloat(rec[3], 64)
		for _, err := range []error{err1, err2, err3} {
			if err != nil {
				return nil, fmt.Errorf("elements.csv: %w", err)
			}
		}
		samples = append(samples, ElementsSample{Time: t, ID: rec[1], A: a, E: e})
	}

	return samples, nil
}

func (s *Store) LoadEncounters(runID string) ([]EncounterEvent, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "encounters.json"))
	if err != nil {
		return nil, err
	}

	var events []EncounterEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ExportJSON streams the full run (metadata, snapshots, encounter events)
// as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	snaps, err := s.LoadStates(runID)
	if err != nil {
		return err
	}
	events, err := s.LoadEncounters(runID)
	if err != nil {
		return err
	}

	type jsonBody struct {
		ID   string    `json:"id"`
		Mass float64   `json:"mass"`
		Pos  body.Vec3 `json:"pos"`
		Vel  body.Vec3 `json:"vel"`
	}
	type jsonSnap struct {
		Time   float64    `json:"time"`
		Bodies []jsonBody `json:"bodies"`
	}

	doc := struct {
		Meta       *RunMetadata     `json:"meta"`
		Snapshots  []jsonSnap       `json:"snapshots"`
		Encounters []EncounterEvent `json:"encounters"`
	}{Meta: meta, Encounters: events}

	for _, snap := range snaps {
		js := jsonSnap{Time: snap.Time}
		for _, b := range snap.Bodies {
			js.Bodies = append(js.Bodies, jsonBody{ID: b.ID, Mass: b.Mass, Pos: b.Pos, Vel: b.Vel})
		}
		doc.Snapshots = append(doc.Snapshots, js)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
