package descring

import (
	"testing"
)

func newPair(t *testing.T, capacity int) (*Ring, *Producer, *Consumer) {
	t.Helper()
	r, err := New(capacity, nil)
	if err != nil {
		t.Fatalf("New(%d) failed: %v", capacity, err)
	}
	return r, r.NewProducer(nil), r.NewConsumer(nil)
}

func TestRoundTrip(t *testing.T) {
	_, p, c := newPair(t, 4)

	buf := []byte("payload")
	if err := p.Submit(0x1000, 7, buf, "token-0"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	h, ok := c.Dequeue()
	if !ok {
		t.Fatal("Dequeue found nothing after Submit")
	}
	if h.Addr != 0x1000 || h.Len != 7 {
		t.Errorf("handle = addr %#x len %d, want addr 0x1000 len 7", h.Addr, h.Len)
	}

	flags := c.Complete(h, h.Len-1)
	if flags&uint16(DescHW) == 0 {
		t.Error("Complete returned flags without the ownership bit the slot carried")
	}

	comp, ok := p.Reclaim()
	if !ok {
		t.Fatal("Reclaim found nothing after Complete")
	}
	if b, ok := comp.Buf.([]byte); !ok || &b[0] != &buf[0] {
		t.Error("Reclaim returned a different buffer than was submitted")
	}
	if comp.UserData != "token-0" {
		t.Errorf("UserData = %v, want token-0", comp.UserData)
	}
	if comp.Len != 6 {
		t.Errorf("Len = %d, want 6", comp.Len)
	}
}

func TestEndToEndSmallRing(t *testing.T) {
	_, p, c := newPair(t, 2)

	// Fill the ring
	if err := p.Submit(0xA, 10, "bufA", "A"); err != nil {
		t.Fatalf("submit A failed: %v", err)
	}
	if err := p.Submit(0xB, 20, "bufB", "B"); err != nil {
		t.Fatalf("submit B failed: %v", err)
	}
	if p.NumFree() != 0 {
		t.Fatalf("NumFree = %d after filling, want 0", p.NumFree())
	}

	// Third submit must fail without touching anything
	if err := p.Submit(0xC, 30, "bufC", "C"); !IsRingFull(err) {
		t.Fatalf("third submit = %v, want ring full", err)
	}

	// Consumer processes A
	h, ok := c.Dequeue()
	if !ok {
		t.Fatal("dequeue A failed")
	}
	if h.Addr != 0xA {
		t.Errorf("dequeued addr %#x, want 0xA", h.Addr)
	}
	c.Complete(h, h.Len)

	// Producer gets A back; a slot frees up
	comp, ok := p.Reclaim()
	if !ok {
		t.Fatal("reclaim A failed")
	}
	if comp.UserData != "A" {
		t.Errorf("reclaimed %v, want A", comp.UserData)
	}
	if p.NumFree() != 1 {
		t.Errorf("NumFree = %d after reclaim, want 1", p.NumFree())
	}

	// Now C fits
	if err := p.Submit(0xC, 30, "bufC", "C"); err != nil {
		t.Fatalf("submit C after reclaim failed: %v", err)
	}
}

func TestConservation(t *testing.T) {
	const capacity = 8
	_, p, c := newPair(t, capacity)

	// Drive an uneven interleaving and check free+outstanding == N at
	// every step; with a single goroutine every step is a quiescent
	// point.
	check := func(step string) {
		if got := p.NumFree() + p.Outstanding(); got != capacity {
			t.Fatalf("%s: free+outstanding = %d, want %d", step, got, capacity)
		}
	}

	seq := 0
	for round := 0; round < 50; round++ {
		// Submit a burst of up to 3
		for burst := 0; burst < 3; burst++ {
			err := p.Submit(uint64(seq), 64, nil, seq)
			if err != nil {
				if !IsRingFull(err) {
					t.Fatalf("submit: %v", err)
				}
				break
			}
			seq++
			check("submit")
		}
		// Complete at most two, leaving the interleaving uneven
		for n := 0; n < 2; n++ {
			h, ok := c.Dequeue()
			if !ok {
				break
			}
			c.Complete(h, h.Len)
		}
		// Reclaim everything completed
		for {
			comp, ok := p.Reclaim()
			if !ok {
				break
			}
			check("reclaim")
			if comp.Len > 64 {
				t.Fatalf("completed length grew: %d", comp.Len)
			}
		}
	}
}

func TestGenerationAcrossWraps(t *testing.T) {
	const capacity = 4
	_, p, c := newPair(t, capacity)

	// Wrap the producer exactly twice while keeping the ring non-full:
	// submit/complete/reclaim in lockstep for 2*N entries.
	for i := 0; i < 2*capacity; i++ {
		if err := p.Submit(uint64(i), 10, nil, i); err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}

		h, ok := c.Dequeue()
		if !ok {
			t.Fatalf("dequeue %d found nothing", i)
		}
		if h.Addr != uint64(i) {
			t.Fatalf("dequeue %d got addr %d", i, h.Addr)
		}

		c.Complete(h, h.Len)

		// After completion the slot is stale for the consumer's next
		// lap until resubmitted.
		if _, ok := c.Dequeue(); ok {
			t.Fatalf("stale slot read as fresh at %d", i)
		}

		comp, ok := p.Reclaim()
		if !ok {
			t.Fatalf("reclaim %d found nothing", i)
		}
		if comp.UserData != i {
			t.Fatalf("reclaim %d got %v", i, comp.UserData)
		}

		// Nothing further outstanding: reclaim must miss.
		if _, ok := p.Reclaim(); ok {
			t.Fatalf("reclaimed a slot that was never completed at %d", i)
		}
	}

	if got := p.State().AvailIdx; got != uint32(2*capacity) {
		t.Errorf("AvailIdx = %d, want %d", got, 2*capacity)
	}
}

func TestSubmitFullNoMutation(t *testing.T) {
	_, p, _ := newPair(t, 2)

	if err := p.Submit(1, 1, nil, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := p.Submit(2, 1, nil, 2); err != nil {
		t.Fatalf("submit: %v", err)
	}

	before := p.State()
	err := p.Submit(3, 1, nil, 3)
	if !IsRingFull(err) {
		t.Fatalf("submit on full ring = %v, want ring full", err)
	}
	if after := p.State(); after != before {
		t.Errorf("full submit mutated producer state: %+v -> %+v", before, after)
	}
}

func TestDequeueEmptyNoMutation(t *testing.T) {
	_, _, c := newPair(t, 2)

	before := c.State()
	if _, ok := c.Dequeue(); ok {
		t.Fatal("dequeue on empty ring succeeded")
	}
	if after := c.State(); after != before {
		t.Errorf("empty dequeue mutated consumer state: %+v -> %+v", before, after)
	}
}

func TestReclaimOnFreshRing(t *testing.T) {
	_, p, _ := newPair(t, 4)
	if _, ok := p.Reclaim(); ok {
		t.Fatal("reclaim on fresh ring returned a completion")
	}
}

func TestReclaimBeforeComplete(t *testing.T) {
	_, p, c := newPair(t, 4)

	if err := p.Submit(1, 8, nil, "x"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, ok := p.Reclaim(); ok {
		t.Fatal("reclaimed a unit the consumer has not completed")
	}

	h, _ := c.Dequeue()
	c.Complete(h, h.Len)
	if _, ok := p.Reclaim(); !ok {
		t.Fatal("reclaim failed after completion")
	}
}

func TestCompleteClampsLength(t *testing.T) {
	_, p, c := newPair(t, 4)

	if err := p.Submit(1, 100, nil, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h, _ := c.Dequeue()
	// A consumer may shrink, never grow
	c.Complete(h, 500)
	comp, ok := p.Reclaim()
	if !ok {
		t.Fatal("reclaim failed")
	}
	if comp.Len != 100 {
		t.Errorf("Len = %d, want clamp to 100", comp.Len)
	}

	if err := p.Submit(2, 100, nil, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h, _ = c.Dequeue()
	c.Complete(h, 40)
	comp, _ = p.Reclaim()
	if comp.Len != 40 {
		t.Errorf("Len = %d, want 40", comp.Len)
	}
}

func TestSideTableCleared(t *testing.T) {
	_, p, c := newPair(t, 2)

	buf := make([]byte, 8)
	if err := p.Submit(1, 8, buf, "once"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h, _ := c.Dequeue()
	c.Complete(h, h.Len)
	if _, ok := p.Reclaim(); !ok {
		t.Fatal("reclaim failed")
	}

	// Entry lifetime is exactly one submit-reclaim cycle
	for i := range p.pending {
		if p.pending[i].buf != nil || p.pending[i].userData != nil {
			t.Errorf("side table entry %d not cleared after reclaim", i)
		}
	}
}
