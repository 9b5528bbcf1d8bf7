// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package coordinate

import (
	"sync"

	"github.com/codeforge-dev/codeforge/services/forge/autofix"
	"github.com/codeforge-dev/codeforge/services/forge/depgraph"
	"github.com/codeforge-dev/codeforge/services/forge/repair"
	"github.com/codeforge-dev/codeforge/services/forge/spec"
	"github.com/codeforge-dev/codeforge/services/forge/validate"
)

// Phase names the nine stages from SPEC_FULL.md §4.1. A GenerationState's
// Phase field always names the next phase to run, not the last one that
// completed — PhaseDone means nothing remains.
type Phase string

const (
	PhaseConfig         Phase = "config"
	PhaseSkeleton       Phase = "skeleton"
	PhaseDetail         Phase = "detail"
	PhaseAssemble       Phase = "assemble"
	PhaseValidate       Phase = "validate"
	PhaseAutofix        Phase = "autofix"
	PhaseRevalidate     Phase = "revalidate"
	PhaseRepair         Phase = "repair"
	PhaseFinalValidate  Phase = "final-validate"
	PhaseDone           Phase = "done"
)

var phaseOrder = []Phase{
	PhaseConfig, PhaseSkeleton, PhaseDetail, PhaseAssemble, PhaseValidate,
	PhaseAutofix, PhaseRevalidate, PhaseRepair, PhaseFinalValidate, PhaseDone,
}

// GenerationState is the Coordinator's checkpointable record, grounded on
// the reference DAG executor's State: every field RunFromState/Resume
// needs to skip already-completed phases is captured here, nothing more.
// The zero value is not usable; build one with newState.
type GenerationState struct {
	mu sync.RWMutex

	RequestID   string
	Spec        *spec.ProjectSpec
	Phase       Phase
	ConfigFiles []spec.GeneratedFile
	Skeletons   map[string]string
	Layout      depgraph.Result
	Files       []spec.GeneratedFile
	Contracts   *spec.Contracts
	Notes       []string

	// LastValidation holds the most recent ContractValidator report; the
	// autofix/repair/revalidate phases that follow PhaseValidate each
	// consume the prior phase's report rather than recomputing it, but
	// persisting it here lets Resume pick back up mid-loop without
	// re-running a deterministic, already-complete validation pass.
	LastValidation *validate.Result `json:"last_validation,omitempty"`
	LastAutofix    *autofix.Result  `json:"last_autofix,omitempty"`
	LastRepair     *repair.Result   `json:"last_repair,omitempty"`
}

func newState(requestID string, ps *spec.ProjectSpec) *GenerationState {
	contracts := ps.Contracts
	if contracts == nil {
		contracts = spec.NewContracts()
	}
	return &GenerationState{
		RequestID: requestID,
		Spec:      ps,
		Phase:     PhaseConfig,
		Contracts: contracts,
	}
}

func (s *GenerationState) setPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Phase = p
}

func (s *GenerationState) currentPhase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Phase
}

// Snapshot is a persistable copy of a GenerationState, safe to marshal and
// hand back to Coordinator.Resume later (in this process or, once
// rehydrated from JSON, a fresh one).
type Snapshot struct {
	RequestID   string               `json:"request_id"`
	Spec        *spec.ProjectSpec    `json:"spec"`
	Phase       Phase                `json:"phase"`
	ConfigFiles []spec.GeneratedFile `json:"config_files,omitempty"`
	Skeletons   map[string]string    `json:"skeletons,omitempty"`
	Layout      depgraph.Result      `json:"layout"`
	Files       []spec.GeneratedFile `json:"files,omitempty"`
	Contracts   *spec.Contracts      `json:"contracts,omitempty"`
	Notes       []string             `json:"notes,omitempty"`

	LastValidation *validate.Result `json:"last_validation,omitempty"`
	LastAutofix    *autofix.Result  `json:"last_autofix,omitempty"`
	LastRepair     *repair.Result   `json:"last_repair,omitempty"`
}

// Checkpoint returns an immutable snapshot safe to persist and later hand
// back to Coordinator.Resume.
func (s *GenerationState) Checkpoint() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		RequestID:   s.RequestID,
		Spec:        s.Spec,
		Phase:       s.Phase,
		ConfigFiles: append([]spec.GeneratedFile(nil), s.ConfigFiles...),
		Skeletons:   s.Skeletons,
		Layout:      s.Layout,
		Files:       append([]spec.GeneratedFile(nil), s.Files...),
		Contracts:   s.Contracts,
		Notes:       append([]string(nil), s.Notes...),

		LastValidation: s.LastValidation,
		LastAutofix:    s.LastAutofix,
		LastRepair:     s.LastRepair,
	}
}

// fromSnapshot rebuilds a live GenerationState from a persisted Snapshot.
func fromSnapshot(snap Snapshot) *GenerationState {
	return &GenerationState{
		RequestID:   snap.RequestID,
		Spec:        snap.Spec,
		Phase:       snap.Phase,
		ConfigFiles: snap.ConfigFiles,
		Skeletons:   snap.Skeletons,
		Layout:      snap.Layout,
		Files:       snap.Files,
		Contracts:   snap.Contracts,
		Notes:       snap.Notes,

		LastValidation: snap.LastValidation,
		LastAutofix:    snap.LastAutofix,
		LastRepair:     snap.LastRepair,
	}
}
