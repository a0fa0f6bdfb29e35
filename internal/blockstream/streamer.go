package blockstream

import (
	"sync"
	"time"

	"github.com/streamfabric/gateway/internal/chunk"
	"github.com/streamfabric/gateway/internal/coalesce"
	"github.com/streamfabric/gateway/internal/profile"
)

// Options configures a Streamer beyond what the channel Profile already
// supplies. Mode, when empty, defaults to the profile's DefaultMode.
type Options struct {
	Mode              profile.Mode
	ProtectCodeFences bool
	Clock             coalesce.Clock // for tests; nil uses time.Now
}

// Hooks are called synchronously from Push/Flush/Complete as output becomes
// ready. A nil hook is simply skipped. This mirrors the teacher's
// StreamSession pattern of invoking subscriber callbacks inline rather than
// through an internal queue — the caller (gateway connection loop) owns its
// own delivery queue.
type Hooks struct {
	OnBlock    func(Block)
	OnUpdate   func(StreamingUpdate)
	OnComplete func(CompletedRunSummary)
}

// Streamer is the Block Streamer façade: it binds a channel Profile to a
// mode handler (block, streaming, or batch) and tracks stats across the
// lifetime of one run's destination delivery.
//
// Grounded on the lifecycle shape of the teacher's internal/streaming/session.go
// (StreamSession: accumulate, emit, Complete exactly once, Stats/GetInfo).
type Streamer struct {
	mu sync.Mutex

	p       profile.Profile
	opts    Options
	handler modeHandler
	hooks   Hooks

	// nextBlockIndex/nextUpdateIndex and firstBlockEmitted are owned by the
	// façade, not the handler, specifically so they survive a mid-stream
	// setProfile/configure handoff: a freshly constructed handler starts its
	// own internal bookkeeping at zero, but the façade's numbering and
	// isFirst invariant continue uninterrupted across the swap.
	nextBlockIndex    int
	nextUpdateIndex   int
	firstBlockEmitted bool

	totalInputChars int
	outputBlocks    int
	outputChars     int
	startTime       time.Time
	endTime         time.Time
	completed       bool
	aborted         bool
}

// New constructs a Streamer bound to the given profile and hooks.
func New(p profile.Profile, opts Options, hooks Hooks) *Streamer {
	if opts.Mode == "" {
		opts.Mode = p.DefaultMode
	}
	return &Streamer{
		p:         p,
		opts:      opts,
		handler:   newModeHandler(p, opts),
		hooks:     hooks,
		startTime: time.Now(),
	}
}

func newModeHandler(p profile.Profile, opts Options) modeHandler {
	switch opts.Mode {
	case profile.ModeBatch:
		return newBatchHandler()
	case profile.ModeStreaming:
		return newStreamingHandler()
	default:
		chunker := chunk.New(chunk.Options{
			MinChars:          p.MinChars,
			MaxChars:          p.MaxChars,
			ProtectCodeFences: opts.ProtectCodeFences,
		})
		var co *coalesce.Coalescer
		if p.CoalesceGapMillis > 0 {
			co = coalesce.New(coalesce.Options{
				GapMillis:          p.CoalesceGapMillis,
				MaxSize:            p.MaxChars,
				MinPassthroughSize: p.MaxChars,
			}, opts.Clock)
		}
		return newBlockHandler(chunker, co)
	}
}

// Push feeds a new delta of upstream text through the chunking pipeline,
// invoking OnBlock/OnUpdate for anything that becomes ready to emit. It
// returns ErrCompleted if the stream has already been completed or aborted.
func (s *Streamer) Push(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed || s.aborted {
		return ErrCompleted
	}

	s.totalInputChars += len(text)
	blocks, updates := s.handler.push(text)
	s.emit(blocks, updates)
	return nil
}

// Flush forces the handler to surface anything it's willing to release
// without ending the stream. It is not an error to call Flush on an already
// completed stream — it is simply a no-op.
func (s *Streamer) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed || s.aborted {
		return
	}
	blocks, updates := s.handler.flush()
	s.emit(blocks, updates)
}

// Complete drains all remaining buffered text, marks the final block (if
// any) as IsLast, fires OnComplete exactly once, and is idempotent: calling
// it again returns the same summary without re-emitting blocks.
func (s *Streamer) Complete() CompletedRunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed {
		return s.summaryLocked()
	}
	if s.aborted {
		s.completed = true
		return s.summaryLocked()
	}

	blocks, updates := s.handler.complete()
	s.emit(blocks, updates)
	s.completed = true
	s.endTime = time.Now()

	summary := s.summaryLocked()
	if s.hooks.OnComplete != nil {
		s.hooks.OnComplete(summary)
	}
	return summary
}

// SetProfile switches the destination profile mid-stream, keeping the
// current Options (e.g. ProtectCodeFences) but re-resolving Mode from the
// new profile's default. Name-to-Profile resolution (e.g. via
// profile.Registry) is the caller's job, same as New.
//
// The new profile/mode applies to subsequent pushes only: it never resizes
// or re-emits already-delivered blocks. Per the documented handoff, a fresh
// mode handler is constructed for the new profile and the prior handler's
// unread (not yet emitted) text is replayed into it, re-chunked under the
// new rules.
func (s *Streamer) SetProfile(p profile.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := s.opts
	opts.Mode = p.DefaultMode
	s.reconfigureLocked(p, opts)
}

// Configure re-applies Options mid-stream (optionally together with a new
// profile), following the same unread-buffer handoff as SetProfile.
func (s *Streamer) Configure(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.Mode == "" {
		opts.Mode = s.p.DefaultMode
	}
	s.reconfigureLocked(s.p, opts)
}

// reconfigureLocked performs the mode-handler handoff: the outgoing
// handler's unread text is captured, a new handler is built from p/opts,
// and that text is replayed through it via push() so it's re-chunked under
// the new rules. It is a no-op once the stream has ended — per Push/Flush,
// there is nothing left to reconfigure. Indices and the isFirst invariant
// are never reset here: they live on the Streamer itself (see emit), so
// they carry over the swap untouched.
func (s *Streamer) reconfigureLocked(p profile.Profile, opts Options) {
	if s.completed || s.aborted {
		return
	}

	pending := s.handler.pendingText()
	s.handler = newModeHandler(p, opts)
	s.p = p
	s.opts = opts

	if pending != "" {
		blocks, updates := s.handler.push(pending)
		s.emit(blocks, updates)
	}
}

// Abort ends the stream without draining buffered content or firing
// OnComplete. Idempotent.
func (s *Streamer) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed || s.aborted {
		return
	}
	s.aborted = true
	s.endTime = time.Now()
}

// Stats reports the running totals for this stream.
func (s *Streamer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := s.endTime
	if end.IsZero() {
		end = time.Now()
	}
	var avg float64
	if s.outputBlocks > 0 {
		avg = float64(s.outputChars) / float64(s.outputBlocks)
	}
	return Stats{
		TotalInputChars:   s.totalInputChars,
		TotalOutputBlocks: s.outputBlocks,
		TotalOutputChars:  s.outputChars,
		AvgBlockSize:      avg,
		Duration:          end.Sub(s.startTime),
		StartTime:         s.startTime,
		EndTime:           end,
	}
}

// State reports the façade's lifecycle snapshot.
func (s *Streamer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Buffered:    s.handler.bufferedLength(),
		Emitted:     s.outputBlocks,
		Mode:        string(s.effectiveModeLocked()),
		InCodeFence: s.handler.inCodeFence(),
		IsComplete:  s.completed,
		IsAborted:   s.aborted,
	}
}

func (s *Streamer) effectiveModeLocked() profile.Mode {
	switch s.handler.(type) {
	case *batchHandler:
		return profile.ModeBatch
	case *streamingHandler:
		return profile.ModeStreaming
	default:
		return profile.ModeBlock
	}
}

func (s *Streamer) summaryLocked() CompletedRunSummary {
	end := s.endTime
	if end.IsZero() {
		end = time.Now()
	}
	return CompletedRunSummary{
		TotalBlocks: s.outputBlocks,
		TotalChars:  s.outputChars,
		DurationMs:  end.Sub(s.startTime).Milliseconds(),
	}
}

// emit stamps the façade-owned Index/IsFirst numbering onto each block and
// update before invoking hooks. Keeping this here (not in the handlers)
// means the numbering is unaffected by a setProfile/configure handler swap.
func (s *Streamer) emit(blocks []Block, updates []StreamingUpdate) {
	for _, b := range blocks {
		b.Index = s.nextBlockIndex
		s.nextBlockIndex++
		if !s.firstBlockEmitted {
			b.IsFirst = true
			s.firstBlockEmitted = true
		}

		s.outputBlocks++
		s.outputChars += len(b.Content)
		if s.hooks.OnBlock != nil {
			s.hooks.OnBlock(b)
		}
	}
	for _, u := range updates {
		u.Index = s.nextUpdateIndex
		s.nextUpdateIndex++
		if s.hooks.OnUpdate != nil {
			s.hooks.OnUpdate(u)
		}
	}
}
