package watcher

import (
	"fmt"
	"testing"
	"time"
)

const testInterval = 30 * time.Millisecond

func receiveBatch(t *testing.T, ch <-chan []Event, timeout time.Duration) []Event {
	t.Helper()
	select {
	case batch, ok := <-ch:
		if !ok {
			t.Fatal("output channel closed while waiting for a batch")
		}
		return batch
	case <-time.After(timeout):
		t.Fatal("timed out waiting for debouncer batch")
		return nil
	}
}

func TestDebouncer_SingleEvent(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Close()

	d.Add("a.png", OpWrite)

	batch := receiveBatch(t, d.Output(), time.Second)
	if len(batch) != 1 {
		t.Fatalf("expected 1 event, got %d", len(batch))
	}
	if batch[0].Path != "a.png" || batch[0].Op != OpWrite {
		t.Errorf("got %+v, want a.png/write", batch[0])
	}
}

func TestDebouncer_CollapsesToLatestOp(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Close()

	d.Add("a.png", OpCreate)
	d.Add("a.png", OpWrite)
	d.Add("a.png", OpRemove)

	batch := receiveBatch(t, d.Output(), time.Second)
	if len(batch) != 1 {
		t.Fatalf("expected 1 collapsed event, got %d", len(batch))
	}
	if batch[0].Op != OpRemove {
		t.Errorf("expected latest op %v, got %v", OpRemove, batch[0].Op)
	}
}

func TestDebouncer_BatchSortedByPath(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Close()

	d.Add("c.png", OpWrite)
	d.Add("a.png", OpCreate)
	d.Add("b/grid.png", OpRemove)

	batch := receiveBatch(t, d.Output(), time.Second)

	want := []string{"a.png", "b/grid.png", "c.png"}
	if len(batch) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(batch))
	}
	for i, path := range want {
		if batch[i].Path != path {
			t.Errorf("event[%d] = %q, want %q", i, batch[i].Path, path)
		}
	}
}

func TestDebouncer_TimerReset(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Close()

	d.Add("a.png", OpWrite)
	time.Sleep(testInterval / 2)
	d.Add("b.png", OpWrite)

	batch := receiveBatch(t, d.Output(), time.Second)
	if len(batch) != 2 {
		t.Fatalf("expected both events in a single batch, got %d", len(batch))
	}
}

func TestDebouncer_DefaultInterval(t *testing.T) {
	d := NewDebouncer(0)
	defer d.Close()

	if d.interval != DefaultDebounce {
		t.Errorf("interval = %v, want %v", d.interval, DefaultDebounce)
	}
}

func TestDebouncer_CloseClosesOutput(t *testing.T) {
	d := NewDebouncer(testInterval)
	d.Add("a.png", OpCreate)
	d.Close()

	select {
	case _, ok := <-d.Output():
		if ok {
			t.Error("expected pending events to be dropped on close")
		}
	case <-time.After(time.Second):
		t.Fatal("output channel was not closed")
	}

	// Add and Close after Close must be no-ops.
	d.Add("b.png", OpWrite)
	d.Close()
}

func TestDebouncer_CloseUnblocksFlush(t *testing.T) {
	d := NewDebouncer(time.Millisecond)

	// Fill the output buffer without reading so the sender blocks.
	for i := 0; i < cap(d.output)+1; i++ {
		d.Add(string(rune('a'+i%26))+".png", OpWrite)
		time.Sleep(5 * time.Millisecond)
	}

	closed := make(chan struct{})
	go func() {
		d.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a stalled consumer")
	}
}

func TestDebouncer_AddDoesNotWaitForConsumer(t *testing.T) {
	d := NewDebouncer(time.Millisecond)
	defer d.Close()

	// Queue more batches than the output buffer holds while nobody reads.
	total := cap(d.output) + 8
	for i := 0; i < total; i++ {
		d.Add(fmt.Sprintf("%03d.png", i), OpWrite)
		time.Sleep(5 * time.Millisecond)
	}

	added := make(chan struct{})
	go func() {
		d.Add("late.png", OpCreate)
		close(added)
	}()
	select {
	case <-added:
	case <-time.After(time.Second):
		t.Fatal("Add blocked behind a stalled consumer")
	}

	var got []string
	for len(got) < total+1 {
		for _, event := range receiveBatch(t, d.Output(), time.Second) {
			got = append(got, event.Path)
		}
	}
	for i := 0; i < total; i++ {
		if want := fmt.Sprintf("%03d.png", i); got[i] != want {
			t.Fatalf("event[%d] = %q, want %q (batches out of order)", i, got[i], want)
		}
	}
	if got[total] != "late.png" {
		t.Errorf("last event = %q, want late.png", got[total])
	}
}

func TestOp_String(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpCreate, "create"},
		{OpWrite, "write"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Op(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}
