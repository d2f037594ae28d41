package broadcast

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler drives the Broadcaster's fixed-cadence push (spec §4.E,
// default 1s; spec §5 activity 4 "Broadcast scheduler"). It is a
// robfig/cron job, matching the teacher SDK's use of cron for periodic
// connection activity.
type Scheduler struct {
	server   *Server
	registry *Registry
	interval time.Duration
	logger   zerolog.Logger

	cron *cron.Cron
}

// NewScheduler creates a Scheduler pushing every interval.
func NewScheduler(server *Server, registry *Registry, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{server: server, registry: registry, interval: interval, logger: logger}
}

// Start begins the periodic push loop. Call Stop to end it; in-flight
// pushes complete before Stop returns (cron.Cron's own shutdown contract).
func (s *Scheduler) Start(ctx context.Context) {
	s.cron = cron.New()
	spec := "@every " + s.interval.String()
	_, err := s.cron.AddFunc(spec, func() { s.tick(ctx) })
	if err != nil {
		s.logger.Error().Err(err).Msg("broadcast scheduler: invalid interval")
		return
	}
	s.cron.Start()
}

// Stop cancels the scheduler, waiting for the current tick to finish
// (bounded by the cron job's own per-symbol pushes, never a blocking read).
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	for _, symbol := range s.registry.ActiveSymbols() {
		s.server.PushSnapshot(ctx, symbol)
	}
}
