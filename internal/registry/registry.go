// Package registry implements the Run Registry: at-most-once consumption of
// a model run's event stream, ordered buffering with stable event ids,
// fan-out to N live subscribers, replay for late joiners, and retention
// after completion.
//
// Grounded on the teacher's internal/streaming StreamManager (registration,
// background consumer goroutine, double-checked creation, retention-driven
// cleanup) and ChatStreamHub (subscriber fan-out), regeneralized from
// upstream-chat-specific chunks to the registry's own BufferedEvent type and
// from hub-push semantics to the bounded-queue-per-subscriber shape of
// internal/queue.
package registry

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/streamfabric/gateway/internal/agentmodel"
	"github.com/streamfabric/gateway/internal/queue"
)

// Defaults per §4.10.
const (
	DefaultBufferSize    = 200
	DefaultRetention     = 10 * time.Minute
	DefaultSendTimeout   = 2 * time.Second
	DefaultSubQueueDepth = 64
)

// BufferedEvent pairs an AgentEvent with the monotonic id the registry
// assigned it in consumption order, starting at 1.
type BufferedEvent struct {
	ID    int
	Event agentmodel.AgentEvent
}

// ErrUnknownRun is returned by operations against a runId the registry has
// never seen or has already evicted.
var ErrUnknownRun = errors.New("registry: unknown run")

// Info reports a run's current bookkeeping state, per getInfo in §4.10.
type Info struct {
	Done         bool
	NextEventID  int
	OldestBuffID int // 0 if buffer empty
	NewestBuffID int // 0 if buffer empty
}

// Subscription is returned by SubscribeWithIDs.
type Subscription struct {
	Events <-chan BufferedEvent
	// Gap reports whether the requested afterId was older than the oldest
	// still-buffered event — the subscriber's replay therefore starts later
	// than requested and has a detectable hole before it (§7).
	Gap bool
	// Unsubscribe detaches the subscriber and releases its queue. Safe to
	// call more than once.
	Unsubscribe func()
}

// Options configures a Registry. Zero values fall back to the §4.10
// defaults.
type Options struct {
	BufferSize    int
	Retention     time.Duration
	SendTimeout   time.Duration
	SubQueueDepth int
}

type subEntry struct {
	sub *queue.Subscriber[BufferedEvent]
}

type runEntry struct {
	mu          sync.Mutex
	run         agentmodel.Run
	buffer      []BufferedEvent
	bufferCap   int
	nextID      int
	subscribers map[string]*subEntry
	subSeq      int
	done        bool
	retentionAt *time.Timer
	ctx         context.Context
	cancel      context.CancelFunc
}

// Registry is the process-local Run Registry. Safe for concurrent use.
type Registry struct {
	opts Options

	mu   sync.Mutex
	runs map[string]*runEntry
}

// New constructs a Registry with the given options.
func New(opts Options) *Registry {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.SubQueueDepth <= 0 {
		opts.SubQueueDepth = DefaultSubQueueDepth
	}
	return &Registry{opts: opts, runs: make(map[string]*runEntry)}
}

// Register records the run and starts exactly one background consumer for
// it. Registering the same runId twice is a no-op (returns false).
func (r *Registry) Register(runID string, run agentmodel.Run) bool {
	r.mu.Lock()
	if _, exists := r.runs[runID]; exists {
		r.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &runEntry{
		run:         run,
		bufferCap:   r.opts.BufferSize,
		subscribers: make(map[string]*subEntry),
		ctx:         ctx,
		cancel:      cancel,
	}
	r.runs[runID] = e
	r.mu.Unlock()

	go r.consume(runID, e)
	return true
}

func (r *Registry) consume(runID string, e *runEntry) {
	for ev := range e.run.Events() {
		e.mu.Lock()
		e.nextID++
		be := BufferedEvent{ID: e.nextID, Event: ev}
		e.buffer = append(e.buffer, be)
		if len(e.buffer) > e.bufferCap {
			e.buffer = e.buffer[len(e.buffer)-e.bufferCap:]
		}
		subs := make([]*queue.Subscriber[BufferedEvent], 0, len(e.subscribers))
		for _, s := range e.subscribers {
			subs = append(subs, s.sub)
		}
		e.mu.Unlock()

		fanOut(e.ctx, subs, be)
	}

	e.mu.Lock()
	e.done = true
	subs := make([]*queue.Subscriber[BufferedEvent], 0, len(e.subscribers))
	for _, s := range e.subscribers {
		subs = append(subs, s.sub)
	}
	e.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}

	r.armRetention(runID, e)
}

// fanOut delivers be to every subscriber's queue concurrently, one
// goroutine per subscriber, and waits for all of them to settle (delivered
// or dropped) before returning. Within one event a full queue does not
// hold up delivery to the others — each Send runs independently and is
// itself bounded by the registry's send timeout — but because the whole
// batch is awaited, a full queue can delay every subscriber's next event by
// up to that timeout. Waiting for the whole
// batch to settle before moving on to the next event preserves per-
// subscriber ordering: a subscriber's Send for event N always happens-
// before its Send for event N+1.
func fanOut(ctx context.Context, subs []*queue.Subscriber[BufferedEvent], be BufferedEvent) {
	if len(subs) == 0 {
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(subs))
	for _, s := range subs {
		go func(s *queue.Subscriber[BufferedEvent]) {
			defer wg.Done()
			s.Send(ctx, be)
		}(s)
	}
	wg.Wait()
}

func (r *Registry) armRetention(runID string, e *runEntry) {
	e.mu.Lock()
	e.retentionAt = time.AfterFunc(r.opts.Retention, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.runs[runID]; ok && cur == e {
			delete(r.runs, runID)
		}
	})
	e.mu.Unlock()
}

// SubscribeWithIDs replays buffered events with id > afterID into a fresh
// subscriber queue, then joins the live fan-out. If the run is already
// done, the returned queue is closed once the replay drains.
func (r *Registry) SubscribeWithIDs(runID string, afterID int) (*Subscription, error) {
	r.mu.Lock()
	e, ok := r.runs[runID]
	r.mu.Unlock()
	if !ok {
		return nil, ErrUnknownRun
	}

	e.mu.Lock()
	defer func() { e.mu.Unlock() }()

	var gap bool
	var replay []BufferedEvent
	if len(e.buffer) > 0 {
		oldest := e.buffer[0].ID
		// A fresh subscriber (afterID == 0) that joins after earlier events
		// have already been evicted from the bounded buffer has lost them
		// just as surely as a resuming one whose afterID is stale — both
		// must be reported as a gap, not just the afterID > 0 case.
		if afterID < oldest-1 {
			gap = true
		}
		for _, be := range e.buffer {
			if be.ID > afterID {
				replay = append(replay, be)
			}
		}
	}

	e.subSeq++
	subID := subscriberID(runID, e.subSeq)
	sub := queue.New[BufferedEvent](subID, r.opts.SubQueueDepth+len(replay), r.opts.SendTimeout, e.ctx)

	for _, be := range replay {
		sub.Send(e.ctx, be)
	}

	if e.done {
		sub.Close()
	} else {
		e.subscribers[subID] = &subEntry{sub: sub}
	}

	unsubscribe := func() {
		e.mu.Lock()
		delete(e.subscribers, subID)
		e.mu.Unlock()
		sub.Close()
	}

	return &Subscription{Events: sub.C(), Gap: gap, Unsubscribe: unsubscribe}, nil
}

// Cancel forwards to the run handle's cancellation. Returns false if the
// run is unknown.
func (r *Registry) Cancel(runID string) bool {
	r.mu.Lock()
	e, ok := r.runs[runID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	e.run.Cancel()
	return true
}

// GetInfo reports the run's done state, next event id, and buffered id
// range.
func (r *Registry) GetInfo(runID string) (Info, bool) {
	r.mu.Lock()
	e, ok := r.runs[runID]
	r.mu.Unlock()
	if !ok {
		return Info{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	info := Info{Done: e.done, NextEventID: e.nextID + 1}
	if len(e.buffer) > 0 {
		info.OldestBuffID = e.buffer[0].ID
		info.NewestBuffID = e.buffer[len(e.buffer)-1].ID
	}
	return info, true
}

func subscriberID(runID string, seq int) string {
	return runID + "#" + strconv.Itoa(seq)
}
