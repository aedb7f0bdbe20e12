// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"testing"
	"time"
)

func TestTimeElapsed(t *testing.T) {
	tm := NewTime(TimeConfiguration{FramesPerSecond: 60})
	defer tm.Stop()

	start := tm.start
	tm.now = func() time.Time { return start.Add(1500 * time.Millisecond) }
	if tm.Elapsed() != 1500*time.Millisecond {
		t.Fatalf("unexpected elapsed time: %s", tm.Elapsed())
	}
}

func TestTimeTicks(t *testing.T) {
	tm := NewTime(TimeConfiguration{FramesPerSecond: 1000})
	defer tm.Stop()

	if tm.Fps() != 1000 {
		t.Fatalf("unexpected fps: %d", tm.Fps())
	}
	select {
	case <-tm.FpsTicker().C:
	case <-time.After(time.Second):
		t.Fatal("ticker did not tick")
	}
}

func TestTimeUnlimited(t *testing.T) {
	tm := NewTime(TimeConfiguration{})
	defer tm.Stop()

	select {
	case <-tm.FpsTicker().C:
	case <-time.After(time.Second):
		t.Fatal("unlimited ticker did not tick")
	}
}
