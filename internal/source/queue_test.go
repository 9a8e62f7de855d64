package source

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/zsiec/austream/internal/media"
)

func seqPacket(i int) *media.Packet {
	return &media.Packet{Class: media.ClassVideo, Data: binary.BigEndian.AppendUint32(nil, uint32(i))}
}

func seqOf(b []byte) int {
	return int(binary.BigEndian.Uint32(b))
}

func TestQueue_DropOldest(t *testing.T) {
	t.Parallel()
	const capacity, extra = 10, 7
	q := NewQueue(capacity, nil)
	for i := 0; i < capacity+extra; i++ {
		q.OnVideoPacket(seqPacket(i))
	}

	st := q.Stats()
	if st.Depth != capacity || st.Received != capacity+extra || st.Dropped != extra {
		t.Fatalf("Stats = %+v, want depth %d received %d dropped %d", st, capacity, capacity+extra, extra)
	}
	for want := extra; want < capacity+extra; want++ {
		got, err := q.Next(context.Background(), 0)
		if err != nil {
			t.Fatal(err)
		}
		if seqOf(got) != want {
			t.Fatalf("Next = %d, want %d", seqOf(got), want)
		}
	}
	if got, _ := q.Next(context.Background(), 0); got != nil {
		t.Errorf("Next on empty queue = %x, want nil", got)
	}
}

func TestQueue_CopiesPayload(t *testing.T) {
	t.Parallel()
	q := NewQueue(4, nil)
	pkt := &media.Packet{Data: []byte{1, 2, 3}}
	q.OnVideoPacket(pkt)
	pkt.Data[0] = 0xFF // the library reuses its buffer after release

	got, _ := q.Next(context.Background(), 0)
	if len(got) != 3 || got[0] != 1 {
		t.Errorf("Next = %x, want 010203", got)
	}
}

func TestQueue_AudioIgnored(t *testing.T) {
	t.Parallel()
	q := NewQueue(4, nil)
	q.OnAudioPacket(&media.Packet{Class: media.ClassAudio, Data: []byte{1}})
	if q.Len() != 0 || q.Stats().Received != 0 {
		t.Errorf("audio packet was queued: %+v", q.Stats())
	}
}

func TestQueue_EmptyWaitReturnsNil(t *testing.T) {
	t.Parallel()
	q := NewQueue(4, nil)
	start := time.Now()
	got, err := q.Next(context.Background(), 5*time.Millisecond)
	if err != nil || got != nil {
		t.Fatalf("Next = %x, %v; want nil, nil", got, err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("Next returned before the poll wait elapsed")
	}
}

func TestQueue_StaleNotifyStillWaits(t *testing.T) {
	t.Parallel()
	q := NewQueue(4, nil)
	q.OnVideoPacket(seqPacket(1))
	if got, err := q.Next(context.Background(), 0); err != nil || seqOf(got) != 1 {
		t.Fatalf("Next = %v, %v; want payload 1", got, err)
	}

	const wait = 50 * time.Millisecond
	start := time.Now()
	got, err := q.Next(context.Background(), wait)
	if err != nil || got != nil {
		t.Fatalf("Next = %v, %v; want nil after waiting", got, err)
	}
	if elapsed := time.Since(start); elapsed < wait {
		t.Errorf("Next returned after %v, want at least %v", elapsed, wait)
	}
}

func TestQueue_WakesOnInsert(t *testing.T) {
	t.Parallel()
	q := NewQueue(4, nil)
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.OnVideoPacket(seqPacket(42))
	}()
	got, err := q.Next(context.Background(), 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || seqOf(got) != 42 {
		t.Errorf("Next = %x, want packet 42", got)
	}
}

func TestQueue_ContextCancelled(t *testing.T) {
	t.Parallel()
	q := NewQueue(4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Next(ctx, time.Second); err == nil {
		t.Error("expected context error")
	}
}

func TestQueue_ConcurrentFIFO(t *testing.T) {
	t.Parallel()
	const total, capacity = 20000, 64
	q := NewQueue(capacity, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			q.OnVideoPacket(seqPacket(i))
		}
	}()

	last := -1
	consumed := 0
	ctx := context.Background()
	for {
		got, err := q.Next(ctx, time.Millisecond)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil {
			if q.Stats().Received == total && q.Len() == 0 {
				break
			}
			continue
		}
		seq := seqOf(got)
		if seq <= last {
			t.Fatalf("packet %d delivered after %d", seq, last)
		}
		last = seq
		consumed++
	}
	wg.Wait()

	st := q.Stats()
	if int64(consumed)+st.Dropped != total {
		t.Errorf("consumed %d + dropped %d != %d", consumed, st.Dropped, total)
	}
	if last != total-1 {
		t.Errorf("last delivered = %d, want %d", last, total-1)
	}
}
