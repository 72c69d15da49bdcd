package guard

import (
	"sync"
	"testing"
)

func TestGoroutineIDStable(t *testing.T) {
	if GoroutineID() != GoroutineID() {
		t.Fatal("goroutine ID changed between calls")
	}
}

func TestGoroutineIDDistinct(t *testing.T) {
	mine := GoroutineID()
	var theirs uint64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		theirs = GoroutineID()
	}()
	wg.Wait()
	if mine == 0 || theirs == 0 {
		t.Fatal("goroutine ID parse failed")
	}
	if mine == theirs {
		t.Fatal("two goroutines share an ID")
	}
}

func TestRoleString(t *testing.T) {
	cases := map[Role]string{
		RoleNone:    "none",
		RoleRender:  "render",
		RoleControl: "control",
	}
	for r, want := range cases {
		if got := r.String(); got != want {
			t.Errorf("Role(%d).String() = %q, want %q", r, got, want)
		}
	}
}

// With ALGORENDER_DEBUG unset, registration and assertion must both be
// no-ops; the production render path relies on that.
func TestDisabledByDefault(t *testing.T) {
	if enabled {
		t.Skip("debug checks enabled in environment")
	}
	Register(RoleRender)
	defer Unregister()
	if Current() != RoleNone {
		t.Fatal("role registered while checks disabled")
	}
	Assert(RoleControl) // must not panic
}

func TestAssertEnabled(t *testing.T) {
	old := enabled
	enabled = true
	defer func() { enabled = old }()

	Register(RoleRender)
	defer Unregister()

	Assert(RoleRender) // matching role passes

	defer func() {
		if recover() == nil {
			t.Fatal("Assert with wrong role did not panic")
		}
	}()
	Assert(RoleControl)
}

func TestAssertUntaggedPasses(t *testing.T) {
	old := enabled
	enabled = true
	defer func() { enabled = old }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		Assert(RoleRender)
		Assert(RoleControl)
	}()
	<-done
}
