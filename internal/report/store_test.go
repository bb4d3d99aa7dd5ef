package report

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiskStore_RoundTrip(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	want := sampleRun()
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(want.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestDiskStore_RejectsPathInID(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	if _, err := s.Load("../etc/passwd"); err == nil {
		t.Error("expected error for run id with a path")
	}
}

type countingStore struct {
	runs  map[string]*RunResult
	loads int
}

func (c *countingStore) Save(r *RunResult) error {
	c.runs[r.ID] = r
	return nil
}

func (c *countingStore) Load(id string) (*RunResult, error) {
	c.loads++
	r, ok := c.runs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return r, nil
}

func TestLRUStore_EvictsOldest(t *testing.T) {
	back := &countingStore{runs: map[string]*RunResult{}}
	s := NewLRUStore(2, back)
	for _, id := range []string{"a", "b", "c"} {
		if err := s.Save(&RunResult{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}

	if _, err := s.Load("c"); err != nil {
		t.Fatal(err)
	}
	if back.loads != 0 {
		t.Errorf("cached run hit the backing store")
	}
	if _, err := s.Load("a"); err != nil {
		t.Fatal(err)
	}
	if back.loads != 1 {
		t.Errorf("backing loads = %d, want 1 for the evicted run", back.loads)
	}
	// Loading "a" evicted "b", the least recently used.
	if _, err := s.Load("b"); err != nil {
		t.Fatal(err)
	}
	if back.loads != 2 {
		t.Errorf("backing loads = %d, want 2", back.loads)
	}
}

func TestLRUStore_MissingRun(t *testing.T) {
	s := NewLRUStore(1, &countingStore{runs: map[string]*RunResult{}})
	if _, err := s.Load("nope"); err == nil {
		t.Error("expected error for unknown run")
	}
}
