package shadow

import (
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-edge/protocol"
)

func TestStore_GetMiss(t *testing.T) {
	s := NewStore()

	if _, ok := s.Get(42); ok {
		t.Error("Get() on empty store reported a hit")
	}
}

func TestStore_PutAndGet(t *testing.T) {
	s := NewStore()
	now := time.Now()

	if !s.Put(1, protocol.Float(21.5), now) {
		t.Fatal("Put() rejected first observation")
	}

	e, ok := s.Get(1)
	if !ok {
		t.Fatal("Get() missed after Put()")
	}
	if !e.Value.Equal(protocol.Float(21.5)) {
		t.Errorf("Get() value = %v, want 21.5", e.Value)
	}
	if !e.Timestamp.Equal(now) {
		t.Errorf("Get() timestamp = %v, want %v", e.Timestamp, now)
	}
}

func TestStore_LastWriterWins(t *testing.T) {
	s := NewStore()
	base := time.Now()

	s.Put(1, protocol.Int(10), base)

	// A late response carrying an older observation must not win.
	if s.Put(1, protocol.Int(5), base.Add(-time.Second)) {
		t.Error("Put() accepted a stale observation")
	}
	e, _ := s.Get(1)
	if !e.Value.Equal(protocol.Int(10)) {
		t.Errorf("value after stale put = %v, want 10", e.Value)
	}

	// A newer observation replaces it.
	if !s.Put(1, protocol.Int(20), base.Add(time.Second)) {
		t.Error("Put() rejected a newer observation")
	}
	e, _ = s.Get(1)
	if !e.Value.Equal(protocol.Int(20)) {
		t.Errorf("value after newer put = %v, want 20", e.Value)
	}
}

func TestStore_EqualTimestampWins(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.Put(1, protocol.Bool(false), now)
	if !s.Put(1, protocol.Bool(true), now) {
		t.Error("Put() rejected an equal-timestamp observation")
	}
	e, _ := s.Get(1)
	if !e.Value.Equal(protocol.Bool(true)) {
		t.Errorf("value = %v, want true", e.Value)
	}
}

func TestEntry_Fresh(t *testing.T) {
	now := time.Now()
	e := Entry{Value: protocol.Int(1), Timestamp: now.Add(-10 * time.Second)}

	if !e.Fresh(now, 30*time.Second) {
		t.Error("Fresh() = false for a 10s old entry with 30s ttl")
	}
	if e.Fresh(now, 5*time.Second) {
		t.Error("Fresh() = true for a 10s old entry with 5s ttl")
	}
}

func TestStore_DeleteAndSnapshot(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.Put(1, protocol.Int(1), now)
	s.Put(2, protocol.Int(2), now)

	s.Delete(1)
	if _, ok := s.Get(1); ok {
		t.Error("Get() hit after Delete()")
	}

	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot() len = %d, want 1", len(snap))
	}
	if !snap[2].Value.Equal(protocol.Int(2)) {
		t.Errorf("Snapshot()[2] = %v, want 2", snap[2].Value)
	}
}

func TestStore_ConcurrentPuts(t *testing.T) {
	s := NewStore()
	base := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			pointID := int64(i % 10)
			s.Put(pointID, protocol.Int(int64(i)), base.Add(time.Duration(i)*time.Millisecond))
		}()
	}
	wg.Wait()

	if s.Len() != 10 {
		t.Errorf("Len() = %d, want 10", s.Len())
	}
}
