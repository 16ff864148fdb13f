package domain

import "time"

// RecoveryTrigger records why a recovery run was started
type RecoveryTrigger string

const (
	TriggerThreshold RecoveryTrigger = "threshold"
	TriggerManual    RecoveryTrigger = "manual"
)

// RecoveryResult is the final state of one recovery run
type RecoveryResult string

const (
	// RecoverySucceeded means the replacement server is installed as target
	RecoverySucceeded RecoveryResult = "succeeded"
	// RecoveryFailed means the run aborted and an operator must look at it
	RecoveryFailed RecoveryResult = "failed"
	// RecoveryOrphaned means a replacement was created but the target was
	// switched or cleared meanwhile, so it was not installed
	RecoveryOrphaned RecoveryResult = "orphaned"
)

// RecoveryStage names the step a run reached
type RecoveryStage string

const (
	StageSnapshot  RecoveryStage = "snapshot"
	StageDelete    RecoveryStage = "delete"
	StageCreate    RecoveryStage = "create"
	StageReconcile RecoveryStage = "reconcile"
)

// RecoveryOutcome summarises a finished recovery run. The root password of
// the replacement is deliberately absent; it only goes out in the success
// notification.
type RecoveryOutcome struct {
	ID            string          `json:"id"`
	Trigger       RecoveryTrigger `json:"trigger"`
	Result        RecoveryResult  `json:"result"`
	Stage         RecoveryStage   `json:"stage"`
	OldServerID   string          `json:"old_server_id"`
	NewServerID   string          `json:"new_server_id,omitempty"`
	NewAddress    string          `json:"new_address,omitempty"`
	Spec          RecoverySpec    `json:"spec"`
	Error         string          `json:"error,omitempty"`
	TargetCleared bool            `json:"target_cleared"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
}

// Duration returns how long the run took
func (o RecoveryOutcome) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}
