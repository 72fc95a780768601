package models

import "time"

// Phase is a step of a clip run.
type Phase string

const (
	PhaseIdle                Phase = "idle"
	PhaseExtracting          Phase = "extracting"
	PhaseSubmittingBase      Phase = "submitting_base"
	PhaseOpeningAuxiliary    Phase = "opening_auxiliary"
	PhasePolling             Phase = "polling"
	PhaseSubmittingAuxiliary Phase = "submitting_auxiliary"
	PhaseDone                Phase = "done"
	PhaseFailed              Phase = "failed"
)

// TargetStatus is the final outcome of one auxiliary target.
type TargetStatus string

const (
	TargetBlocked   TargetStatus = "blocked"
	TargetClosed    TargetStatus = "closed"
	TargetTimedOut  TargetStatus = "timed_out"
	TargetSubmitted TargetStatus = "submitted"
	TargetRejected  TargetStatus = "rejected"
	TargetSkipped   TargetStatus = "skipped"
)

// TargetOutcome reports what happened to one auxiliary target.
type TargetOutcome struct {
	Target AuxiliaryTarget `json:"target"`
	Status TargetStatus    `json:"status"`

	// HarvestBytes is the size of the harvested markup, 0 when nothing was found.
	HarvestBytes int `json:"harvest_bytes"`

	// Fingerprint is the hex SimHash of the harvested text.
	Fingerprint string `json:"fingerprint,omitempty"`

	// DetectedLanguage is the ISO 639-1 code detected in the harvest.
	DetectedLanguage string `json:"detected_language,omitempty"`

	PollMs int64  `json:"poll_ms"`
	Detail string `json:"detail,omitempty"`
}

// ClipReport summarises one run from source load to DONE or FAILED.
type ClipReport struct {
	RunID      string          `json:"run_id"`
	SourceURL  string          `json:"source_url"`
	Phase      Phase           `json:"phase"`
	Record     *ArticleRecord  `json:"record,omitempty"`
	ArticleID  string          `json:"article_id,omitempty"`
	Targets    []TargetOutcome `json:"targets,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	Statuses   []string        `json:"statuses"`
	Preview    string          `json:"preview,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Submitted returns how many translations the receiver accepted.
func (r *ClipReport) Submitted() int {
	n := 0
	for _, t := range r.Targets {
		if t.Status == TargetSubmitted {
			n++
		}
	}
	return n
}

// WindowStats reports the state of the browser window budget.
type WindowStats struct {
	MaxWindows  int `json:"max_windows"`
	OpenWindows int `json:"open_windows"`
}
