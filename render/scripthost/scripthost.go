package scripthost

import (
	"sync"

	"github.com/cwbudde/algo-render/internal/renderlog"
)

// Callback processes one script block. input holds one slice per input
// channel, output one zero-filled slice per output channel; the
// callback writes its result into output. playbackTime is the position
// of the block's first frame in seconds.
type Callback func(playbackTime float64, input, output [][]float64)

// Host dispatches script blocks for render nodes.
//
// ProcessBlock reads input, writes output and reports whether the
// callback ran to completion. On false the caller must treat output as
// undefined and emit silence; a failed block is a degraded block, not
// an error that stops rendering.
type Host interface {
	ProcessBlock(nodeID string, playbackTime float64, input, output [][]float64) bool
}

// registry is the callback table shared by both host kinds.
type registry struct {
	mu  sync.RWMutex
	cbs map[string]Callback
}

func newRegistry() *registry {
	return &registry{cbs: map[string]Callback{}}
}

func (r *registry) set(nodeID string, cb Callback) {
	r.mu.Lock()
	r.cbs[nodeID] = cb
	r.mu.Unlock()
}

func (r *registry) remove(nodeID string) {
	r.mu.Lock()
	delete(r.cbs, nodeID)
	r.mu.Unlock()
}

func (r *registry) get(nodeID string) (Callback, bool) {
	r.mu.RLock()
	cb, ok := r.cbs[nodeID]
	r.mu.RUnlock()
	return cb, ok
}

// invoke runs cb and absorbs panics; a panicking script must degrade to
// silence like any other script failure.
func invoke(log renderlog.Logger, limiter *renderlog.Limiter, cb Callback, playbackTime float64, input, output [][]float64) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			if limiter.Allow() {
				log.Warn("script callback panicked: ", r)
			}
		}
	}()
	cb(playbackTime, input, output)
	return true
}

// OfflineHost runs callbacks synchronously on the calling goroutine.
type OfflineHost struct {
	reg     *registry
	log     renderlog.Logger
	limiter *renderlog.Limiter
}

// NewOfflineHost returns an empty offline host.
func NewOfflineHost() *OfflineHost {
	return &OfflineHost{
		reg:     newRegistry(),
		log:     renderlog.GetLogger(),
		limiter: renderlog.NewLimiter(limiterInterval),
	}
}

// Register installs the callback for nodeID, replacing any previous
// one.
func (h *OfflineHost) Register(nodeID string, cb Callback) {
	h.reg.set(nodeID, cb)
}

// Unregister removes the callback for nodeID. Blocks dispatched
// afterwards fail and render as silence.
func (h *OfflineHost) Unregister(nodeID string) {
	h.reg.remove(nodeID)
}

// ProcessBlock implements Host by invoking the callback inline.
func (h *OfflineHost) ProcessBlock(nodeID string, playbackTime float64, input, output [][]float64) bool {
	cb, found := h.reg.get(nodeID)
	if !found {
		return false
	}
	return invoke(h.log, h.limiter, cb, playbackTime, input, output)
}
