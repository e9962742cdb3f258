package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyQueue persists jobs in a Valkey list so any instance can pick them up.
type ValkeyQueue struct {
	client      valkey.Client
	queueKey    string
	logger      *slog.Logger
	pollTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	wg     sync.WaitGroup
}

// NewValkeyQueue constructs a Valkey-backed queue.
func NewValkeyQueue(client valkey.Client, queueKey string, logger *slog.Logger) *ValkeyQueue {
	if logger == nil {
		logger = slog.Default()
	}
	if queueKey == "" {
		queueKey = "faq:jobs"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ValkeyQueue{
		client:      client,
		queueKey:    queueKey,
		logger:      logger.With("component", "jobs.valkey"),
		pollTimeout: 5 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the consumer loop. Only the first call has an effect.
func (q *ValkeyQueue) Start(handler Handler) {
	if handler == nil {
		return
	}
	q.once.Do(func() {
		q.wg.Add(1)
		go q.consume(handler)
	})
}

// Enqueue pushes a job onto the list.
func (q *ValkeyQueue) Enqueue(ctx context.Context, name string, payload map[string]string) (Job, error) {
	job := newJob(name, payload)
	encoded, err := json.Marshal(job)
	if err != nil {
		return Job{}, fmt.Errorf("encode job: %w", err)
	}
	cmd := q.client.B().Lpush().Key(q.queueKey).Element(string(encoded)).Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		return Job{}, fmt.Errorf("push job: %w", err)
	}
	return job, nil
}

// Close stops the consumer loop and waits for the current job.
func (q *ValkeyQueue) Close() {
	q.cancel()
	q.wg.Wait()
}

func (q *ValkeyQueue) consume(handler Handler) {
	defer q.wg.Done()
	for q.ctx.Err() == nil {
		resp := q.client.Do(q.ctx, q.client.B().Brpop().Key(q.queueKey).Timeout(q.pollTimeout.Seconds()).Build())
		values, err := resp.AsStrSlice()
		if err != nil {
			if !valkey.IsValkeyNil(err) && q.ctx.Err() == nil {
				q.logger.Warn("valkey queue pop failed", "error", err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(values) < 2 {
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(values[1]), &job); err != nil {
			q.logger.Warn("valkey queue unmarshal failed", "error", err)
			continue
		}
		handler(q.ctx, job)
	}
}

var _ Queue = (*ValkeyQueue)(nil)
