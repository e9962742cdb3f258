package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/review-responder/pkg/util"
)

// JobReindex rebuilds the FAQ index from the corpus source.
const JobReindex = "faq.reindex"

// Job is a unit of background work.
type Job struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Payload    map[string]string `json:"payload,omitempty"`
	EnqueuedAt time.Time         `json:"enqueuedAt"`
}

// Handler executes one job. Jobs are delivered one at a time.
type Handler func(ctx context.Context, job Job)

// Queue accepts jobs and delivers them to a handler.
type Queue interface {
	Enqueue(ctx context.Context, name string, payload map[string]string) (Job, error)
	Start(handler Handler)
	Close()
}

func newJob(name string, payload map[string]string) Job {
	return Job{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    payload,
		EnqueuedAt: util.NowUTC(),
	}
}
