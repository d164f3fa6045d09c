package syncer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	conf "github.com/bartek5186/pimsync/internal/config"
	"github.com/bartek5186/pimsync/internal/pipeline"
	"github.com/rs/zerolog"
)

func TestSyncer_StartRunsImmediatelyAndStops(t *testing.T) {
	var calls int32
	done := make(chan struct{}, 1)
	run := func(ctx context.Context, in string) (pipeline.Summary, error) {
		atomic.AddInt32(&calls, 1)
		select {
		case done <- struct{}{}:
		default:
		}
		return pipeline.Summary{Processed: 3}, nil
	}
	cfg := conf.Default()
	s := New(zerolog.Nop(), cfg, run)

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !s.IsRunning() {
		t.Fatal("not running")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first run did not happen")
	}
	s.Stop()
	if s.IsRunning() {
		t.Fatal("still running")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls: %d", calls)
	}
	if s.Last().Summary.Processed != 3 {
		t.Fatalf("last: %+v", s.Last())
	}
	// drugi Stop nic nie robi
	s.Stop()
}

func TestSyncer_RunNowBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	run := func(ctx context.Context, in string) (pipeline.Summary, error) {
		close(started)
		<-release
		return pipeline.Summary{}, errors.New("boom")
	}
	s := New(zerolog.Nop(), nil, run)

	errc := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background(), "a.txt")
		errc <- err
	}()
	<-started
	if _, err := s.RunNow(context.Background(), "b.txt"); !errors.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
	close(release)
	if err := <-errc; err == nil || err.Error() != "boom" {
		t.Fatalf("first run: %v", err)
	}
	if s.Last().Err == nil {
		t.Fatal("error not recorded")
	}
}

func TestSyncer_UpdateConfigWhileStopped(t *testing.T) {
	s := New(zerolog.Nop(), nil, func(context.Context, string) (pipeline.Summary, error) { return pipeline.Summary{}, nil })
	cfg := conf.Default()
	cfg.SyncIntervalMinutes = 5
	s.UpdateConfig(cfg)
	s.mu.Lock()
	got := s.intervalLocked()
	s.mu.Unlock()
	if got != 5*time.Minute {
		t.Fatalf("interval: %v", got)
	}
}
