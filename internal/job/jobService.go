package job

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/domain/sessionModel"
)

var ErrJobNotFound = errors.New("job not found")

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	SessionStore      sessionModel.SessionStore
	PollInterval      time.Duration
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	SessionStore      sessionModel.SessionStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		SessionStore:      cfg.SessionStore,
		PollInterval:      config.JobPollInterval,
	}
}

// AwaitJob polls the job store until the job is COMPLETE or Error, or ctx ends.
// The job may not be saved yet when the first poll happens, so a missing job is retried
// until ctx ends.
func (s *Service) AwaitJob(ctx context.Context, id string) (jobModel.Job, error) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = config.JobPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last jobModel.Job
	found := false
	for {
		if j, ok := s.JobStore.GetJob(ctx, id); ok {
			last, found = j, true
			if j.IsDone() {
				return j, nil
			}
		}

		select {
		case <-ctx.Done():
			if !found {
				return last, ErrJobNotFound
			}
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
