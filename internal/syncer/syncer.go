package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	conf "github.com/bartek5186/pimsync/internal/config"
	"github.com/bartek5186/pimsync/internal/pipeline"
	"github.com/rs/zerolog"
)

// RunFunc wykonuje jeden pełny przebieg (app.App.Run).
type RunFunc func(ctx context.Context, inputPath string) (pipeline.Summary, error)

// ErrBusy – przebieg już trwa
var ErrBusy = errors.New("sync already running")

type Syncer struct {
	log     zerolog.Logger // logowanie
	run     RunFunc
	mu      sync.Mutex   // ochrona sekcji krytycznych
	cfg     *conf.Config // aktualna konfiguracja
	running bool         // czy harmonogram działa
	cancel  context.CancelFunc
	wg      sync.WaitGroup // śledzi goroutines
	busy    sync.Mutex     // jeden przebieg naraz
	ticks   uint64         // licznik przebiegów z harmonogramu
	last    Status
	reset   chan time.Duration
}

// Status ostatniego przebiegu
type Status struct {
	At      time.Time
	Summary pipeline.Summary
	Err     error
}

func New(log zerolog.Logger, cfg *conf.Config, run RunFunc) *Syncer {
	return &Syncer{log: log.With().Str("component", "syncer").Logger(), cfg: cfg, run: run}
}

// Start uruchamia harmonogram: pierwszy przebieg od razu, potem co interwał z configu.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.ticks = 0
	s.reset = make(chan time.Duration, 1)
	s.wg.Add(1)
	interval := s.intervalLocked()
	reset := s.reset
	s.mu.Unlock()

	s.log.Info().Dur("interval", interval).Msg("Syncer: start")
	go s.loop(ctx, interval, reset)
	return nil
}

func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.log.Info().Msg("Syncer: stop")
}

// UpdateConfig podmienia config; działający harmonogram dostaje nowy interwał bez restartu.
func (s *Syncer) UpdateConfig(cfg *conf.Config) {
	s.mu.Lock()
	s.cfg = cfg
	interval := s.intervalLocked()
	reset := s.reset
	running := s.running
	s.mu.Unlock()

	s.log.Info().Dur("interval", interval).Msg("Syncer: config zaktualizowany")
	if running && reset != nil {
		select {
		case reset <- interval:
		default:
		}
	}
}

func (s *Syncer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Syncer) Last() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// RunNow – przebieg na żądanie (np. komenda "run"); nie czeka, gdy inny przebieg trwa.
func (s *Syncer) RunNow(ctx context.Context, inputPath string) (pipeline.Summary, error) {
	if !s.busy.TryLock() {
		return pipeline.Summary{}, ErrBusy
	}
	defer s.busy.Unlock()

	sum, err := s.run(ctx, inputPath)

	s.mu.Lock()
	s.last = Status{At: time.Now(), Summary: sum, Err: err}
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Msg("Syncer: przebieg zakończony błędem")
	} else {
		s.log.Info().Str("summary", sum.String()).Msg("Syncer: przebieg zakończony")
	}
	return sum, err
}

func (s *Syncer) intervalLocked() time.Duration {
	if s.cfg != nil {
		return s.cfg.Interval()
	}
	return 24 * time.Hour
}

func (s *Syncer) loop(ctx context.Context, interval time.Duration, reset <-chan time.Duration) {
	defer s.wg.Done()

	// pierwszy strzał od razu
	s.tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Syncer: koniec pętli")
			return
		case d := <-reset:
			ticker.Reset(d)
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Syncer) tick(ctx context.Context) {
	s.mu.Lock()
	s.ticks++
	n := s.ticks
	s.mu.Unlock()

	s.log.Info().Uint64("tick", n).Msg("Syncer: przebieg z harmonogramu")
	if _, err := s.RunNow(ctx, ""); errors.Is(err, ErrBusy) {
		s.log.Warn().Msg("Syncer: poprzedni przebieg jeszcze trwa, pomijam")
	}
}
