// Package guard tags goroutines with engine roles and checks, in debug
// builds, that code runs on the role it was written for. With
// ALGORENDER_DEBUG unset every check is a no-op, so the render path
// pays nothing in production.
package guard

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
)

// Role identifies which engine thread a goroutine is acting as.
type Role int

const (
	// RoleNone marks a goroutine with no registered role.
	RoleNone Role = iota
	// RoleRender is the realtime audio render goroutine.
	RoleRender
	// RoleControl is the goroutine running script callbacks and graph
	// mutations.
	RoleControl
)

func (r Role) String() string {
	switch r {
	case RoleRender:
		return "render"
	case RoleControl:
		return "control"
	default:
		return "none"
	}
}

var enabled bool

func init() {
	v, err := strconv.ParseBool(os.Getenv("ALGORENDER_DEBUG"))
	enabled = err == nil && v
}

var (
	mu    sync.Mutex
	roles = map[uint64]Role{}
)

// GoroutineID returns the runtime ID of the calling goroutine, parsed
// from the stack header. It is a diagnostic aid; never use it for
// scheduling decisions.
func GoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// Header looks like "goroutine 123 [running]:".
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Register tags the calling goroutine with a role until Unregister.
// A no-op unless debug checks are enabled.
func Register(r Role) {
	if !enabled {
		return
	}
	id := GoroutineID()
	mu.Lock()
	roles[id] = r
	mu.Unlock()
}

// Unregister removes the calling goroutine's role tag.
func Unregister() {
	if !enabled {
		return
	}
	id := GoroutineID()
	mu.Lock()
	delete(roles, id)
	mu.Unlock()
}

// Current returns the calling goroutine's role, RoleNone when untagged
// or when debug checks are disabled.
func Current() Role {
	if !enabled {
		return RoleNone
	}
	id := GoroutineID()
	mu.Lock()
	r := roles[id]
	mu.Unlock()
	return r
}

// Assert panics when debug checks are enabled and the calling
// goroutine is tagged with a different role than want. Untagged
// goroutines pass, so tests and tools can call guarded code freely.
func Assert(want Role) {
	if !enabled {
		return
	}
	got := Current()
	if got != RoleNone && got != want {
		panic(fmt.Sprintf("guard: running on %s goroutine, want %s", got, want))
	}
}
