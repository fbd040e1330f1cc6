package lifecycle

import (
	"sync"
	"testing"
)

func TestQueuePushConsume(t *testing.T) {
	q := NewTransitionQueue()
	for i := 0; i < 5; i++ {
		q.Push(Transition{Seq: uint64(i + 1)})
	}
	if q.Len() != 5 {
		t.Fatalf("len %d, expected 5", q.Len())
	}

	got := q.Consume()
	if len(got) != 5 {
		t.Fatalf("consumed %d, expected 5", len(got))
	}
	for i, tr := range got {
		if tr.Seq != uint64(i+1) {
			t.Errorf("position %d holds seq %d", i, tr.Seq)
		}
	}
	if q.Len() != 0 {
		t.Errorf("len %d after drain", q.Len())
	}
}

func TestQueueOverflowKeepsNewest(t *testing.T) {
	q := NewTransitionQueue()
	total := queueSize + 8
	for i := 0; i < total; i++ {
		q.Push(Transition{Seq: uint64(i + 1)})
	}

	got := q.Consume()
	if len(got) != queueSize {
		t.Fatalf("consumed %d, expected %d", len(got), queueSize)
	}
	// Oldest 8 were overwritten
	if got[0].Seq != 9 {
		t.Errorf("oldest surviving seq %d, expected 9", got[0].Seq)
	}
	if got[len(got)-1].Seq != uint64(total) {
		t.Errorf("newest seq %d, expected %d", got[len(got)-1].Seq, total)
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewTransitionQueue()
	const producers = 8
	const perProducer = 4 // stays well under queueSize

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(Transition{Seq: uint64(p*perProducer + i + 1)})
			}
		}(p)
	}
	wg.Wait()

	got := q.Consume()
	if len(got) != producers*perProducer {
		t.Fatalf("consumed %d, expected %d", len(got), producers*perProducer)
	}
	seen := make(map[uint64]bool, len(got))
	for _, tr := range got {
		if seen[tr.Seq] {
			t.Errorf("seq %d delivered twice", tr.Seq)
		}
		seen[tr.Seq] = true
	}
}
