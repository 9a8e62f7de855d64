package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zsiec/austream/internal/media"
	"github.com/zsiec/austream/internal/puller/pullertest"
)

func openLive(t *testing.T, dmx *pullertest.Demuxer, opts LiveOptions) *Live {
	t.Helper()
	opts.Library = pullertest.NewLibrary(dmx)
	s, err := OpenLive(context.Background(), "srt://camera:9000", opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func nextNonEmpty(t *testing.T, s PacketSource) []byte {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		unit, last, err := s.NextUnit(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if last {
			t.Fatal("live source reported a last unit")
		}
		if len(unit) > 0 {
			return unit
		}
	}
	t.Fatal("timed out waiting for a unit")
	return nil
}

func TestLive_DeliversVideoInOrder(t *testing.T) {
	t.Parallel()
	dmx := pullertest.NewDemuxer(pullertest.AV()...)
	s := openLive(t, dmx, LiveOptions{PollWait: time.Millisecond})

	dmx.PushData(0, []byte("v0"))
	dmx.PushData(1, []byte("a0"))
	dmx.PushData(0, []byte("v1"), []byte("v2"))

	for _, want := range []string{"v0", "v1", "v2"} {
		if got := string(nextNonEmpty(t, s)); got != want {
			t.Fatalf("unit = %q, want %q", got, want)
		}
	}
	unit, last, err := s.NextUnit(context.Background())
	if err != nil || last || len(unit) != 0 {
		t.Errorf("drained queue: NextUnit = %q, %v, %v; want empty, not last", unit, last, err)
	}

	md := s.Metadata()
	if !md.HasVideo || md.Width != 1920 || !md.HasAudio || md.SampleRate != 48000 {
		t.Errorf("Metadata = %+v", md)
	}
	st := s.Stats()
	if st.Puller.VideoPackets != 3 || st.Puller.AudioPackets != 1 || st.Queue.Received != 3 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestLive_ReloadKeepsQueuedUnits(t *testing.T) {
	t.Parallel()
	dmx := pullertest.NewDemuxer(pullertest.AV()...)
	s := openLive(t, dmx, LiveOptions{PollWait: time.Millisecond, ReloadTimeout: 5 * time.Second})

	dmx.PushData(0, []byte("before"))
	deadline := time.Now().Add(5 * time.Second)
	for s.Stats().Queue.Depth == 0 {
		if time.Now().After(deadline) {
			t.Fatal("packet never queued")
		}
		time.Sleep(time.Millisecond)
	}

	// The loop is parked in ReadPacket; feed it one packet so it can observe
	// the stop request while Reload waits.
	go func() {
		time.Sleep(20 * time.Millisecond)
		dmx.PushData(0, []byte("wakeup"))
	}()
	if err := s.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	dmx.PushData(0, []byte("after"))

	if got := string(nextNonEmpty(t, s)); got != "before" {
		t.Fatalf("first unit after reload = %q, want the stale unit", got)
	}
	if got := string(nextNonEmpty(t, s)); got != "after" {
		t.Fatalf("second unit after reload = %q, want after", got)
	}
	if got := s.Stats().Puller.VideoPackets; got != 2 {
		t.Errorf("VideoPackets = %d, want 2 (counting continues across reload)", got)
	}
}

func TestLive_ReloadTimeout(t *testing.T) {
	t.Parallel()
	dmx := pullertest.NewDemuxer(pullertest.AV()...)
	s := openLive(t, dmx, LiveOptions{ReloadTimeout: 20 * time.Millisecond})
	// Make sure the loop is parked in ReadPacket with nothing to read.
	deadline := time.Now().Add(5 * time.Second)
	for dmx.Reads.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("loop never read")
		}
		time.Sleep(time.Millisecond)
	}

	err := s.Reload(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestLive_OpenFailure(t *testing.T) {
	t.Parallel()
	lib := pullertest.NewLibrary()
	lib.OpenErr = errors.New("no route to host")
	_, err := OpenLive(context.Background(), "srt://camera:9000", LiveOptions{Library: lib})
	if !errors.Is(err, media.ErrSourceUnavailable) {
		t.Errorf("err = %v, want ErrSourceUnavailable", err)
	}
}

func TestLive_Closed(t *testing.T) {
	t.Parallel()
	dmx := pullertest.NewDemuxer(pullertest.AV()...)
	s := openLive(t, dmx, LiveOptions{})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.NextUnit(context.Background()); !errors.Is(err, media.ErrClosed) {
		t.Errorf("NextUnit after Close: err = %v, want ErrClosed", err)
	}
	if err := s.Reload(context.Background()); !errors.Is(err, media.ErrClosed) {
		t.Errorf("Reload after Close: err = %v, want ErrClosed", err)
	}
}
