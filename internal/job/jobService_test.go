package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/PDFChat/internal/domain/jobModel"
)

type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]jobModel.Job
}

func (f *fakeJobStore) GetJob(ctx context.Context, id string) (jobModel.Job, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	return j, ok
}

func (f *fakeJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.Id] = j
	return nil
}

func (f *fakeJobStore) DeleteJob(ctx context.Context, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, id)
}

func TestAwaitJob(t *testing.T) {
	t.Run("returns once the job is done", func(t *testing.T) {
		store := &fakeJobStore{jobs: map[string]jobModel.Job{}}
		svc := InitJobService(ServiceConfig{JobStore: store})
		svc.PollInterval = 5 * time.Millisecond

		store.SaveJob(context.Background(), jobModel.Job{Id: "j1", Status: jobModel.JobStatusRunning})
		go func() {
			time.Sleep(20 * time.Millisecond)
			store.SaveJob(context.Background(), jobModel.Job{Id: "j1", Status: jobModel.JobStatusComplete})
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		j, err := svc.AwaitJob(ctx, "j1")
		if err != nil {
			t.Fatalf("AwaitJob: %v", err)
		}
		if j.Status != jobModel.JobStatusComplete {
			t.Errorf("status = %s", j.Status)
		}
	})

	t.Run("error status is terminal", func(t *testing.T) {
		store := &fakeJobStore{jobs: map[string]jobModel.Job{"j2": {Id: "j2", Status: jobModel.JobStatusError}}}
		svc := InitJobService(ServiceConfig{JobStore: store})

		j, err := svc.AwaitJob(context.Background(), "j2")
		if err != nil || j.Status != jobModel.JobStatusError {
			t.Errorf("got %s, %v", j.Status, err)
		}
	})

	t.Run("times out on a running job", func(t *testing.T) {
		store := &fakeJobStore{jobs: map[string]jobModel.Job{"j3": {Id: "j3", Status: jobModel.JobStatusRunning}}}
		svc := InitJobService(ServiceConfig{JobStore: store})
		svc.PollInterval = 5 * time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		j, err := svc.AwaitJob(ctx, "j3")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want deadline exceeded", err)
		}
		if j.Id != "j3" {
			t.Errorf("expected the last seen job, got %+v", j)
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		svc := InitJobService(ServiceConfig{JobStore: &fakeJobStore{jobs: map[string]jobModel.Job{}}})
		svc.PollInterval = 5 * time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := svc.AwaitJob(ctx, "missing"); !errors.Is(err, ErrJobNotFound) {
			t.Errorf("err = %v, want ErrJobNotFound", err)
		}
	})
}
