// Package monitoring holds the background maintenance jobs.
package monitoring

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Sweeper drops expired entries and reports how many were removed.
// Both the session store and the lockout tracker clear entries lazily
// on access; the janitor keeps the maps from growing unbounded when
// nobody comes back to touch them.
type Sweeper interface {
	Sweep() int
}

// Janitor periodically sweeps expired sessions and stale lockout
// entries on a cron schedule.
type Janitor struct {
	cron     *cron.Cron
	sessions Sweeper
	lockouts Sweeper
}

// NewJanitor creates a Janitor running on the given cron expression.
func NewJanitor(schedule string, sessions, lockouts Sweeper) (*Janitor, error) {
	j := &Janitor{
		cron:     cron.New(),
		sessions: sessions,
		lockouts: lockouts,
	}

	if _, err := j.cron.AddFunc(schedule, j.sweep); err != nil {
		return nil, err
	}
	return j, nil
}

// Run starts the janitor's schedule.
func (j *Janitor) Run() {
	log.Info().Msg("Starting background janitor")
	j.cron.Start()
}

// Stop halts the janitor, waiting for a running sweep to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Stopped background janitor")
}

func (j *Janitor) sweep() {
	sessions := j.sessions.Sweep()
	lockouts := j.lockouts.Sweep()
	if sessions > 0 || lockouts > 0 {
		log.Debug().Int("sessions", sessions).Int("lockouts", lockouts).Msg("Swept expired entries")
	}
}
