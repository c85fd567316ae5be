package interop

import (
	"context"
	"reflect"
	"runtime"
	"sync"
	"testing"
	"time"
	"weak"
)

type node struct {
	Name string
	Next *node
}

func TestCacheIdentity(t *testing.T) {
	b := newTestBridge(t)
	p := &node{Name: "a"}
	v1 := b.ToValue(p)
	v2 := b.ToValue(p)
	if !v1.SameValue(v2) {
		t.Fatal("wrapping the same pointer twice should yield the same value")
	}
	if b.ToValue(&node{Name: "a"}).SameValue(v1) {
		t.Error("distinct pointers must get distinct wrappers")
	}
	st := b.Cache().Stats()
	if st.Hits != 1 || st.Misses != 2 {
		t.Errorf("stats = %+v, want 1 hit and 2 misses", st)
	}
	if host, ok := UnwrapHost(v1); !ok || host != any(p) {
		t.Errorf("UnwrapHost = %v, %v", host, ok)
	}
}

func TestCacheValueKindsAreNotCached(t *testing.T) {
	b := newTestBridge(t)
	n := node{Name: "v"}
	if b.ToValue(n).SameValue(b.ToValue(n)) {
		t.Error("struct values have no identity and should be wrapped afresh")
	}
	if b.Cache().Len() != 0 {
		t.Errorf("cache holds %d entries for value kinds", b.Cache().Len())
	}
}

func TestCacheConcurrentIdentity(t *testing.T) {
	b := newTestBridge(t)
	p := &node{Name: "shared"}
	const workers = 32

	var wg sync.WaitGroup
	start := make(chan struct{})
	got := make([]*Wrapper, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			w, _ := WrapperOf(b.ToValue(p))
			got[i] = w
		}()
	}
	close(start)
	wg.Wait()

	for i, w := range got {
		if w != got[0] {
			t.Fatalf("worker %d observed a different wrapper", i)
		}
	}
	if b.Cache().Len() != 1 {
		t.Errorf("cache entries = %d, want 1", b.Cache().Len())
	}
}

func TestCacheKeepsLiveWrappers(t *testing.T) {
	b := newTestBridge(t)
	p := &node{Name: "live"}
	v := b.ToValue(p)
	runtime.GC()
	w, ok := b.Cache().Lookup(reflect.ValueOf(p))
	if !ok || w.Value() != v {
		t.Error("a reachable wrapper must stay cached")
	}
	runtime.KeepAlive(v)
}

//go:noinline
func wrapGarbage(b *Bridge, n int) {
	for i := 0; i < n; i++ {
		b.ToValue(&node{Name: "garbage"})
	}
}

func TestCacheReleasesCollectedWrappers(t *testing.T) {
	b := newTestBridge(t)
	const n = 64
	wrapGarbage(b, n)
	if b.Cache().Len() == 0 {
		t.Fatal("wrappers were not registered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for b.Cache().Len() > 0 && time.Now().Before(deadline) {
		runtime.GC()
		b.Cache().Sweep()
		time.Sleep(5 * time.Millisecond)
	}
	if l := b.Cache().Len(); l != 0 {
		t.Fatalf("cache still holds %d entries after collection", l)
	}
	// A freed address can be reused by a later node, replacing its slot.
	if st := b.Cache().Stats(); st.Evicted+st.Stale != n {
		t.Errorf("evicted %d + stale %d, want %d", st.Evicted, st.Stale, n)
	}
}

//go:noinline
func wrapAndDrop(b *Bridge) weak.Pointer[node] {
	host := &node{Name: "dropped"}
	v := b.ToValue(host)
	if err := v.SetStr("extra", b.ToValue(1)); err != nil {
		panic(err)
	}
	return weak.Make(host)
}

func TestCacheDoesNotKeepHostsAlive(t *testing.T) {
	b := newTestBridge(t)
	hosts := make([]weak.Pointer[node], 16)
	for i := range hosts {
		hosts[i] = wrapAndDrop(b)
	}

	alive := func() int {
		n := 0
		for _, wp := range hosts {
			if wp.Value() != nil {
				n++
			}
		}
		return n
	}
	deadline := time.Now().Add(5 * time.Second)
	for alive() > 0 && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
	}
	if n := alive(); n != 0 {
		t.Errorf("%d wrapped host objects survived collection", n)
	}
	runtime.KeepAlive(b)
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	c := NewCache()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
