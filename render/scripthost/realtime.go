package scripthost

import (
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-render/internal/renderlog"
	"github.com/cwbudde/algo-render/render/guard"
)

// DefaultTimeout bounds how long the render side waits for one script
// block. At 500ms a stuck script costs at most half a second of
// silence per block; rendering itself never stops.
const DefaultTimeout = 500 * time.Millisecond

const (
	defaultQueueDepth = 16
	limiterInterval   = time.Second
)

type config struct {
	timeout    time.Duration
	queueDepth int
	log        renderlog.Logger
}

// Option adjusts RealtimeHost construction.
type Option func(*config)

// WithTimeout overrides the per-block wait budget.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithQueueDepth overrides the request queue capacity.
func WithQueueDepth(n int) Option {
	return func(c *config) { c.queueDepth = n }
}

// WithLogger overrides the host logger.
func WithLogger(l renderlog.Logger) Option {
	return func(c *config) { c.log = l }
}

// request crosses from the render goroutine to the control goroutine.
// It owns copies of the block data so neither side can observe the
// other's buffers after the render side gives up on a late reply.
type request struct {
	nodeID       string
	playbackTime float64
	input        [][]float64
	output       [][]float64
	ok           bool
	done         chan struct{}
}

// RealtimeHost runs callbacks on a dedicated control goroutine and
// bridges render-side block requests to it with a bounded wait.
type RealtimeHost struct {
	reg        *registry
	log        renderlog.Logger
	limiter    *renderlog.Limiter
	timeout    time.Duration
	requests   chan *request
	quit       chan struct{}
	loopDone   chan struct{}
	controlGID atomic.Uint64
	closed     atomic.Bool
}

// NewRealtimeHost starts the control goroutine and returns the host.
// Callers must Close it to stop the goroutine.
func NewRealtimeHost(opts ...Option) *RealtimeHost {
	cfg := config{
		timeout:    DefaultTimeout,
		queueDepth: defaultQueueDepth,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = renderlog.GetLogger()
	}
	h := &RealtimeHost{
		reg:      newRegistry(),
		log:      cfg.log,
		limiter:  renderlog.NewLimiter(limiterInterval),
		timeout:  cfg.timeout,
		requests: make(chan *request, cfg.queueDepth),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go h.controlLoop()
	return h
}

// Close stops the control goroutine and waits for it to exit. Requests
// in flight complete with failure. Close is idempotent.
func (h *RealtimeHost) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	close(h.quit)
	<-h.loopDone
}

// Register installs the callback for nodeID, replacing any previous
// one. Safe to call from any goroutine while blocks are in flight.
func (h *RealtimeHost) Register(nodeID string, cb Callback) {
	h.reg.set(nodeID, cb)
}

// Unregister removes the callback for nodeID.
func (h *RealtimeHost) Unregister(nodeID string) {
	h.reg.remove(nodeID)
}

// ProcessBlock implements Host. When called from the control goroutine
// itself (a script that drives a nested graph) the callback runs
// inline; otherwise the block is queued and the call waits at most the
// configured timeout. Queue-full, timeout, shutdown, unknown node and
// callback panic all degrade the same way: false, render silence.
func (h *RealtimeHost) ProcessBlock(nodeID string, playbackTime float64, input, output [][]float64) bool {
	if guard.GoroutineID() == h.controlGID.Load() {
		cb, found := h.reg.get(nodeID)
		if !found {
			return false
		}
		return invoke(h.log, h.limiter, cb, playbackTime, input, output)
	}

	req := &request{
		nodeID:       nodeID,
		playbackTime: playbackTime,
		input:        cloneBlock(input),
		output:       make([][]float64, len(output)),
		done:         make(chan struct{}),
	}
	for i, ch := range output {
		req.output[i] = make([]float64, len(ch))
	}

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	select {
	case h.requests <- req:
	case <-timer.C:
		h.warnDropped(nodeID, "queue full")
		return false
	case <-h.quit:
		return false
	}

	select {
	case <-req.done:
	case <-timer.C:
		h.warnDropped(nodeID, "timeout")
		return false
	case <-h.quit:
		return false
	}

	if !req.ok {
		return false
	}
	for i := range output {
		copy(output[i], req.output[i])
	}
	return true
}

func (h *RealtimeHost) warnDropped(nodeID, reason string) {
	if h.limiter.Allow() {
		h.log.Warn("script block dropped (", reason, "): node ", nodeID)
	}
}

func (h *RealtimeHost) controlLoop() {
	defer close(h.loopDone)
	guard.Register(guard.RoleControl)
	defer guard.Unregister()
	h.controlGID.Store(guard.GoroutineID())

	for {
		select {
		case req := <-h.requests:
			h.serve(req)
		case <-h.quit:
			// Fail whatever is still queued so no sender waits out its
			// full timeout during shutdown.
			for {
				select {
				case req := <-h.requests:
					close(req.done)
				default:
					return
				}
			}
		}
	}
}

func (h *RealtimeHost) serve(req *request) {
	defer close(req.done)
	cb, found := h.reg.get(req.nodeID)
	if !found {
		return
	}
	req.ok = invoke(h.log, h.limiter, cb, req.playbackTime, req.input, req.output)
}

func cloneBlock(src [][]float64) [][]float64 {
	dst := make([][]float64, len(src))
	for i, ch := range src {
		dst[i] = append([]float64(nil), ch...)
	}
	return dst
}
