package enrollment

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/mergington/activities-api/internal/domain"
	"github.com/mergington/activities-api/internal/ports/out/events"
)

const (
	dispatchShards     = 4
	dispatchQueueDepth = 256
)

// ErrDispatcherClosed is returned when an event is handed over after Close.
var ErrDispatcherClosed = errors.New("event dispatcher closed")

// errQueueFull is reported when a shard's queue cannot take another event.
var errQueueFull = errors.New("event queue full")

type dispatchJob struct {
	event  events.EnrollmentEvent
	logger *slog.Logger
}

// dispatcher publishes events off the request path. All events of one activity go
// to the same shard, which publishes them one at a time in enqueue order.
type dispatcher struct {
	publisher events.Publisher
	metrics   Recorder

	mu     sync.RWMutex
	closed bool
	shards []chan dispatchJob
	wg     sync.WaitGroup
}

func newDispatcher(p events.Publisher, metrics Recorder) *dispatcher {
	d := &dispatcher{
		publisher: p,
		metrics:   metrics,
		shards:    make([]chan dispatchJob, dispatchShards),
	}
	for i := range d.shards {
		ch := make(chan dispatchJob, dispatchQueueDepth)
		d.shards[i] = ch
		d.wg.Add(1)
		go d.run(ch)
	}
	return d
}

// enqueue never blocks. An event that cannot be queued is counted and logged as a failure.
func (d *dispatcher) enqueue(j dispatchJob) {
	if err := d.tryEnqueue(j); err != nil {
		d.fail(j, err)
	}
}

func (d *dispatcher) tryEnqueue(j dispatchJob) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.shards[shardFor(j.event.Activity, len(d.shards))] <- j:
		return nil
	default:
		return errQueueFull
	}
}

func (d *dispatcher) run(ch <-chan dispatchJob) {
	defer d.wg.Done()
	for j := range ch {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := d.publisher.Publish(ctx, j.event)
		cancel()
		if err != nil {
			d.fail(j, err)
		}
	}
}

func (d *dispatcher) fail(j dispatchJob, err error) {
	d.metrics.ObserveEventFailure(string(j.event.Type))
	j.logger.Warn("enrollment event not published",
		"event_id", j.event.ID,
		"type", string(j.event.Type),
		"activity", string(j.event.Activity),
		"error", err,
	)
}

// close stops intake and waits for queued events to drain or ctx to end.
func (d *dispatcher) close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.shards {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func shardFor(name domain.ActivityName, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int(h.Sum32() % uint32(n))
}

// activityLocks hands out one mutex per activity name, dropped once nobody holds it.
type activityLocks struct {
	mu sync.Mutex
	m  map[domain.ActivityName]*activityLock
}

type activityLock struct {
	mu   sync.Mutex
	refs int
}

func (l *activityLocks) lock(name domain.ActivityName) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[domain.ActivityName]*activityLock)
	}
	al, ok := l.m[name]
	if !ok {
		al = &activityLock{}
		l.m[name] = al
	}
	al.refs++
	l.mu.Unlock()

	al.mu.Lock()
	return func() {
		al.mu.Unlock()
		l.mu.Lock()
		al.refs--
		if al.refs == 0 {
			delete(l.m, name)
		}
		l.mu.Unlock()
	}
}
