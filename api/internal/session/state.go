package session

import "engdoc-auditor/api/internal/audit/types"

// Phase: конечный автомат результата: idle | pending | succeeded | failed.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Outcome: итог последнего запуска. Result заполнен только в PhaseSucceeded,
// Error: только в PhaseFailed.
type Outcome struct {
	Phase     Phase
	RequestID uint64
	Result    *types.AnalysisResult
	Error     string
}

func Idle() Outcome { return Outcome{Phase: PhaseIdle} }

func Pending(id uint64) Outcome { return Outcome{Phase: PhasePending, RequestID: id} }

func Succeeded(id uint64, r types.AnalysisResult) Outcome {
	return Outcome{Phase: PhaseSucceeded, RequestID: id, Result: &r}
}

func Failed(id uint64, msg string) Outcome {
	return Outcome{Phase: PhaseFailed, RequestID: id, Error: msg}
}

func (o Outcome) IsPending() bool { return o.Phase == PhasePending }
