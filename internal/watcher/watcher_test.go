package watcher

import (
	"errors"
	"testing"
	"time"
)

func TestRecordPanicWithinBudget(t *testing.T) {
	w := &Watcher{}
	now := time.Now()

	for i := 0; i < maxRestarts; i++ {
		if exceeded := w.recordPanic(now.Add(time.Duration(i) * time.Millisecond)); exceeded {
			t.Fatalf("panic %d should still be within budget", i+1)
		}
	}
}

func TestRecordPanicExceedsBudget(t *testing.T) {
	w := &Watcher{}
	now := time.Now()

	for i := 0; i < maxRestarts; i++ {
		w.recordPanic(now.Add(time.Duration(i) * time.Millisecond))
	}
	if exceeded := w.recordPanic(now.Add(time.Duration(maxRestarts) * time.Millisecond)); !exceeded {
		t.Fatal("exceeding maxRestarts within restartWindow should report exceeded")
	}
}

func TestRecordPanicWindowExpires(t *testing.T) {
	w := &Watcher{}
	base := time.Now()

	for i := 0; i < maxRestarts; i++ {
		w.recordPanic(base)
	}
	// A panic well outside restartWindow should find the old ones expired
	// and not count toward the budget.
	later := base.Add(restartWindow + time.Second)
	if exceeded := w.recordPanic(later); exceeded {
		t.Fatal("panics outside the restart window must not count against the budget")
	}
}

func TestPanicErrorMessage(t *testing.T) {
	pe := panicError{v: "boom"}
	if got, want := pe.Error(), "recovered panic: boom"; got != want {
		t.Fatalf("panicError.Error() = %q, want %q", got, want)
	}
}

func TestTickRecoveredConvertsPanicToError(t *testing.T) {
	w := &Watcher{}
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("recoverWrap leaked a panic: %v", r)
		}
	}()

	// Exercise the same defer/recover idiom tickRecovered uses, against a
	// function guaranteed to panic, without depending on the real tick()'s
	// external clipboard-library behavior.
	err := recoverWrap(func() { panic("synthetic failure") })
	if err == nil {
		t.Fatal("expected an error from the panicking function")
	}
	var pe panicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected a panicError, got %T: %v", err, err)
	}
	_ = w
}

// recoverWrap mirrors tickRecovered's recover idiom for a generic thunk, so
// the conversion logic can be tested without invoking the real tick.
func recoverWrap(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{v: r}
		}
	}()
	fn()
	return nil
}

func TestIsExcludedExactAndGlob(t *testing.T) {
	w := &Watcher{excludedApps: []string{"com.1password.1password", "com.apple.*"}}

	cases := map[string]bool{
		"com.1password.1password": true,
		"com.apple.Terminal":      true,
		"com.apple.dt.Xcode":      true,
		"com.other.app":           false,
		"":                        false,
	}
	for app, want := range cases {
		if got := w.isExcluded(app); got != want {
			t.Errorf("isExcluded(%q) = %v, want %v", app, got, want)
		}
	}
}

func TestSetExcludedAppsReplacesList(t *testing.T) {
	w := &Watcher{excludedApps: []string{"a"}}
	w.SetExcludedApps([]string{"b", "c"})
	if w.isExcluded("a") {
		t.Fatal("old exclusion list should no longer apply")
	}
	if !w.isExcluded("b") || !w.isExcluded("c") {
		t.Fatal("new exclusion list should apply")
	}
}

func TestSetPollIntervalIgnoresNonPositive(t *testing.T) {
	w := &Watcher{pollInterval: 500 * time.Millisecond}
	w.SetPollInterval(0)
	if w.pollInterval != 500*time.Millisecond {
		t.Fatal("zero interval must be ignored")
	}
	w.SetPollInterval(-time.Second)
	if w.pollInterval != 500*time.Millisecond {
		t.Fatal("negative interval must be ignored")
	}
	w.SetPollInterval(2 * time.Second)
	if w.pollInterval != 2*time.Second {
		t.Fatal("positive interval should be applied")
	}
}

func TestJoinSearchParts(t *testing.T) {
	if got := joinSearchParts(nil); got != "" {
		t.Fatalf("expected empty string for no parts, got %q", got)
	}
	if got := joinSearchParts([]string{"one"}); got != "one" {
		t.Fatalf("expected %q, got %q", "one", got)
	}
	if got := joinSearchParts([]string{"one", "two"}); got != "one\ntwo" {
		t.Fatalf("expected parts newline-joined, got %q", got)
	}
}
