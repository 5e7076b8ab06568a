package importer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/spellbook/internal/events"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseSchedule validates a 5-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("importer: schedule %q: %w", expr, err)
	}
	return sched, nil
}

// nextRunDelay returns the wait from now until the next fire time.
func nextRunDelay(sched cron.Schedule, now time.Time) time.Duration {
	d := sched.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Invalidator drops cached spell listings after the catalog changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Job is one import run plus its side effects.
type Job struct {
	DB     *gorm.DB
	Source Source
	// Cache and Bus are optional.
	Cache Invalidator
	Bus   *events.Bus
}

// Run imports once. The cache is invalidated after any written batch and a
// catalog event is published whether or not the run succeeded.
func (j *Job) Run(ctx context.Context) (int, error) {
	n, runErr := Run(ctx, j.DB, j.Source)

	if n > 0 && j.Cache != nil {
		if err := j.Cache.Invalidate(ctx); err != nil {
			log.Printf("importer: invalidate cache: %v", err)
		}
	}

	if j.Bus != nil {
		e := events.Event{Type: events.TypeCatalog, Imported: n}
		if j.Source != nil {
			e.Source = j.Source.Name()
		}
		if runErr != nil {
			e.Err = runErr.Error()
		}
		j.Bus.Publish(e)
	}
	return n, runErr
}

// Schedule runs job at every fire time of expr until ctx is cancelled.
// Failed runs are logged and the next fire time is awaited.
func Schedule(ctx context.Context, expr string, job *Job) error {
	if job == nil || job.Source == nil {
		return fmt.Errorf("importer: schedule: job source is required")
	}
	sched, err := ParseSchedule(expr)
	if err != nil {
		return err
	}
	log.Printf("importer: scheduled %s import %q", job.Source.Name(), expr)

	for {
		timer := time.NewTimer(nextRunDelay(sched, time.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		if _, err := job.Run(ctx); err != nil {
			log.Printf("importer: scheduled run: %v", err)
		}
	}
}
