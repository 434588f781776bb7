package ingester

import (
	"encoding/json"
	"sync"
)

// Phase of an ingestion run
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseResolving Phase = "RESOLVING"
	PhaseBrowsing  Phase = "BROWSING"
	PhaseImporting Phase = "IMPORTING"
	PhaseRegister  Phase = "REGISTERING"
	PhaseDone      Phase = "DONE"
	PhaseFailed    Phase = "FAILED"
)

// Status tracks the progress of a run. Safe for concurrent use; the import
// workers bump the task counter while an HTTP handler snapshots it.
type Status struct {
	mu     sync.Mutex
	phase  Phase
	tiles  int
	scenes int
	tasks  int
	done   int
}

func NewStatus() *Status {
	return &Status{phase: PhaseIdle}
}

func (s *Status) SetPhase(phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
}

func (s *Status) SetTiles(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles = n
}

func (s *Status) SetScenes(scenes, tasks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes = scenes
	s.tasks = tasks
}

// TaskDone bumps the finished-task counter
func (s *Status) TaskDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done++
}

// Snapshot returns the current progress as JSON
func (s *Status) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(struct {
		Phase  Phase `json:"phase"`
		Tiles  int   `json:"tiles"`
		Scenes int   `json:"scenes"`
		Tasks  int   `json:"tasks"`
		Done   int   `json:"done"`
	}{s.phase, s.tiles, s.scenes, s.tasks, s.done})
}
