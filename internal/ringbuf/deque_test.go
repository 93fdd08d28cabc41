package ringbuf

import (
	"testing"

	"github.com/labctl/labctl/internal/wiredatum"
)

func datumAt(n int) wiredatum.Datum {
	return wiredatum.New(wiredatum.IntValue(int32(n)), wiredatum.UnitUnitless)
}

func TestPushFrontIsNewestFirst(t *testing.T) {
	q := New(10)
	q.PushFront(datumAt(1))
	q.PushFront(datumAt(2))
	q.PushFront(datumAt(3))

	all := q.All()
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Value.Int != 3 || all[1].Value.Int != 2 || all[2].Value.Int != 1 {
		t.Errorf("order = %v, want newest-first [3 2 1]", all)
	}
}

func TestPushFrontEvictsOldestOverBound(t *testing.T) {
	q := New(2)
	q.PushFront(datumAt(1))
	q.PushFront(datumAt(2))
	q.PushFront(datumAt(3))

	all := q.All()
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].Value.Int != 3 || all[1].Value.Int != 2 {
		t.Errorf("order = %v, want [3 2]", all)
	}
}

func TestNewestOnEmptyDeque(t *testing.T) {
	q := New(10)
	if _, ok := q.Newest(); ok {
		t.Error("expected ok=false on an empty deque")
	}
}

func TestNewest(t *testing.T) {
	q := New(10)
	q.PushFront(datumAt(1))
	q.PushFront(datumAt(2))
	d, ok := q.Newest()
	if !ok || d.Value.Int != 2 {
		t.Errorf("Newest() = %v, %v, want 2, true", d, ok)
	}
}
