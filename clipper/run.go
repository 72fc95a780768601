package clipper

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/clipper/models"
)

var phaseRank = map[models.Phase]int{
	models.PhaseIdle:                0,
	models.PhaseExtracting:          1,
	models.PhaseSubmittingBase:      2,
	models.PhaseOpeningAuxiliary:    3,
	models.PhasePolling:             4,
	models.PhaseSubmittingAuxiliary: 5,
	models.PhaseDone:                6,
	models.PhaseFailed:              6,
}

// run is the state of one Run call. Once auxiliary goroutines start, the
// phase, status trail and warnings are only touched under mu.
type run struct {
	c      *Clipper
	log    *slog.Logger
	mu     sync.Mutex
	report *models.ClipReport
}

// advance records status and moves the phase forward. Phases never go back,
// so a late "waiting" cannot hide an earlier per-target submission.
func (r *run) advance(phase models.Phase, status string) {
	r.mu.Lock()
	if phaseRank[phase] > phaseRank[r.report.Phase] {
		r.report.Phase = phase
	}
	current := r.report.Phase
	r.report.Statuses = append(r.report.Statuses, status)
	r.mu.Unlock()

	r.log.Debug("status", "phase", current, "status", status)
	r.c.status(current, status)
}

func (r *run) warn(msg string) {
	r.mu.Lock()
	r.report.Warnings = append(r.report.Warnings, msg)
	r.mu.Unlock()
}

func (r *run) fail(err error) (*models.ClipReport, error) {
	var ce *models.ClipError
	if !errors.As(err, &ce) {
		ce = models.NewClipError(models.ErrCodeInternal, "clip failed", err)
	}

	r.mu.Lock()
	r.report.Phase = models.PhaseFailed
	r.report.FinishedAt = time.Now()
	r.report.Statuses = append(r.report.Statuses, "Failed: "+ce.Message)
	r.mu.Unlock()

	r.log.Error("clip failed", "code", ce.Code, "error", ce)
	r.c.status(models.PhaseFailed, "Failed: "+ce.Message)
	r.notify()
	return r.report, ce
}

func (r *run) done() *models.ClipReport {
	status := fmt.Sprintf("Done: %d of %d translations submitted", r.report.Submitted(), len(r.report.Targets))

	r.mu.Lock()
	r.report.Phase = models.PhaseDone
	r.report.FinishedAt = time.Now()
	r.report.Statuses = append(r.report.Statuses, status)
	r.mu.Unlock()

	r.log.Info("clip done", "submitted", r.report.Submitted(), "targets", len(r.report.Targets),
		"duration_ms", r.report.FinishedAt.Sub(r.report.StartedAt).Milliseconds())
	r.c.status(models.PhaseDone, status)
	r.notify()
	return r.report
}

func (r *run) notify() {
	if r.c.notifier != nil {
		r.c.notifier.Notify(r.report)
	}
}
