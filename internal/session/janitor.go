package session

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"nuxo/internal/log"
)

// Cleaner is anything holding entries that can expire.
type Cleaner interface {
	CleanExpired() int
}

// Janitor runs CleanExpired on its cleaners on a cron schedule.
type Janitor struct {
	cron     *cron.Cron
	cleaners []Cleaner
	logger   *log.Logger
}

func NewJanitor(logger *log.Logger) *Janitor {
	return &Janitor{
		cron:   cron.New(),
		logger: logger.WithComponent(log.ComponentSession),
	}
}

func (j *Janitor) Register(c Cleaner) {
	j.cleaners = append(j.cleaners, c)
}

// Start schedules the sweep with a cron spec such as "@every 1m".
func (j *Janitor) Start(spec string) error {
	if _, err := j.cron.AddFunc(spec, func() { j.RunOnce() }); err != nil {
		return fmt.Errorf("schedule session sweep %q: %w", spec, err)
	}
	j.cron.Start()
	j.logger.Info("Session janitor started", "schedule", spec)
	return nil
}

// RunOnce sweeps every cleaner immediately.
func (j *Janitor) RunOnce() int {
	total := 0
	for _, c := range j.cleaners {
		total += c.CleanExpired()
	}
	if total > 0 {
		j.logger.Debug("Expired sessions removed", log.FieldOperation, log.OpSweep, "removed", total)
	}
	return total
}

// Stop waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}
