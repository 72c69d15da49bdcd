// Package renderlog configures logging for the render engine. The
// render thread itself never logs; packages that run near it use a
// Limiter so fault conditions cannot flood the output.
package renderlog

import (
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var debug bool

// Logger is the logging interface render packages depend on.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
}

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv("ALGORENDER_DEBUG"))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new logger instance. Debug level is enabled when
// ALGORENDER_DEBUG is set to a true value.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Limiter allows at most one event per interval. Allow is lock-free
// and safe to call from multiple goroutines.
type Limiter struct {
	interval time.Duration
	last     atomic.Int64
}

// NewLimiter returns a Limiter with the given minimum interval between
// allowed events.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{interval: interval}
}

// Allow reports whether an event may be logged now. It only advances
// the window when it returns true.
func (l *Limiter) Allow() bool {
	now := time.Now().UnixNano()
	last := l.last.Load()
	if now-last < int64(l.interval) {
		return false
	}
	return l.last.CompareAndSwap(last, now)
}
