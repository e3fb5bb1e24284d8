package durability

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("durability writer closed")

// Job is one store round trip. Its error is logged, never returned to the
// submitter.
type Job func(ctx context.Context) error

type task struct {
	roomID string
	name   string
	job    Job
}

// Writer runs store jobs in the background. Jobs for the same room go to the
// same shard and run in submission order; Submit never blocks.
type Writer struct {
	shards  []*shard
	timeout time.Duration
	wg      sync.WaitGroup
}

type shard struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []task
	closed bool
}

func NewWriter(shards int, timeout time.Duration) *Writer {
	if shards < 1 {
		shards = 1
	}
	w := &Writer{
		shards:  make([]*shard, shards),
		timeout: timeout,
	}
	for i := range w.shards {
		s := &shard{}
		s.cond = sync.NewCond(&s.mu)
		w.shards[i] = s
		w.wg.Add(1)
		go w.run(s)
	}
	return w
}

// Submit queues job behind every earlier job of roomID. It reports false
// once the writer is closed.
func (w *Writer) Submit(roomID, name string, job Job) bool {
	s := w.shardFor(roomID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		zap.L().Warn("durability.submit_after_close",
			zap.String("room_id", roomID), zap.String("job", name))
		return false
	}
	s.queue = append(s.queue, task{roomID: roomID, name: name, job: job})
	s.cond.Signal()
	return true
}

// Pending is the number of queued jobs not yet started.
func (w *Writer) Pending() int {
	n := 0
	for _, s := range w.shards {
		s.mu.Lock()
		n += len(s.queue)
		s.mu.Unlock()
	}
	return n
}

// Close stops accepting jobs and waits for queued ones until ctx is done.
func (w *Writer) Close(ctx context.Context) error {
	for _, s := range w.shards {
		s.mu.Lock()
		s.closed = true
		s.cond.Broadcast()
		s.mu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		zap.L().Warn("durability.close_timeout", zap.Int("pending", w.Pending()))
		return ctx.Err()
	}
}

func (w *Writer) shardFor(roomID string) *shard {
	return w.shards[xxhash.Sum64String(roomID)%uint64(len(w.shards))]
}

func (w *Writer) run(s *shard) {
	defer w.wg.Done()
	for {
		t, ok := s.next()
		if !ok {
			return
		}
		w.exec(t)
	}
}

func (w *Writer) exec(t task) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("durability.job_panic",
				zap.String("room_id", t.roomID), zap.String("job", t.name), zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := t.job(ctx); err != nil {
		zap.L().Warn("durability.job_failed",
			zap.String("room_id", t.roomID), zap.String("job", t.name), zap.Error(err))
	}
}

// next blocks until a task is queued. It returns false once the shard is
// closed and drained.
func (s *shard) next() (task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.queue) == 0 {
		return task{}, false
	}
	t := s.queue[0]
	s.queue[0] = task{}
	s.queue = s.queue[1:]
	return t, true
}
