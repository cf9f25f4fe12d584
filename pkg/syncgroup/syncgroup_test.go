package syncgroup

import (
	"sync/atomic"
	"testing"
)

func TestSyncGroup(t *testing.T) {
	g := NewSyncGroup()
	release := make(chan struct{})
	var done atomic.Int32

	for i := 0; i < 3; i++ {
		g.Go(func() {
			<-release
			done.Add(1)
		})
	}
	g.Go(nil)
	if g.Running() != 3 {
		t.Fatalf("Running() = %d，期望 3", g.Running())
	}

	close(release)
	g.Wait()
	if done.Load() != 3 {
		t.Errorf("Wait 返回时应全部完成，done=%d", done.Load())
	}
	if g.Running() != 0 {
		t.Errorf("Wait 后 Running() = %d", g.Running())
	}
}
