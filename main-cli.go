//go:build !windows || dev

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bartek5186/pimsync/internal/app"
	conf "github.com/bartek5186/pimsync/internal/config"
	logs "github.com/bartek5186/pimsync/internal/logs"
	"github.com/bartek5186/pimsync/internal/pipeline"
	syncer "github.com/bartek5186/pimsync/internal/syncer"
	"github.com/rs/zerolog"
)

var ver = "1.0.0"

func usage() {
	fmt.Fprintf(os.Stderr, "Użycie: pimsync [run|shell] [-config PATH] [-input PATH] [-log-level LEVEL]\n")
	flag.PrintDefaults()
}

func main() {
	appDir := mustAppDataDir("pimsync")

	mode := "shell"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		mode, args = args[0], args[1:]
	}
	fs := flag.NewFlagSet("pimsync", flag.ExitOnError)
	fs.Usage = usage
	cfgPath := fs.String("config", filepath.Join(appDir, "config.json"), "plik konfiguracji (.json/.yaml)")
	inputPath := fs.String("input", "", "plik z identyfikatorami (domyślnie input_file z configu)")
	level := fs.String("log-level", "info", "poziom logowania")
	_ = fs.Parse(args)

	log, closer, err := logs.New(logs.Options{
		Path:    filepath.Join(appDir, "app.log"),
		Console: true,
		Level:   *level,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "log:", err)
		os.Exit(1)
	}
	defer closer.Close()

	cfg, firstRun, err := conf.LoadOrCreate(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *cfgPath).Msg("Config error")
	}
	if firstRun {
		log.Info().Msgf("Utworzono domyślną konfigurację: %s", *cfgPath)
	}
	baseDir := filepath.Dir(*cfgPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch mode {
	case "run":
		os.Exit(runOnce(ctx, log, cfg, baseDir, *inputPath))
	case "shell":
		shell(ctx, cancel, log, cfg, *cfgPath, baseDir, *inputPath, appDir)
	default:
		usage()
		os.Exit(2)
	}
}

// runOnce – jeden przebieg, kod wyjścia != 0 przy błędzie (w tym nieudanym zapisie)
func runOnce(ctx context.Context, log zerolog.Logger, cfg *conf.Config, baseDir, inputPath string) int {
	a, err := app.Open(log, cfg, baseDir)
	if err != nil {
		log.Error().Err(err).Msg("Open error")
		return 1
	}
	defer a.Close()

	sum, err := a.Run(ctx, inputPath)
	fmt.Println(sum.String())
	if err != nil {
		if pipeline.IsMirrorError(err) {
			fmt.Fprintln(os.Stderr, "Katalog i log zapisane, ale kopia nie:", err)
		} else if errors.Is(err, pipeline.ErrPersist) {
			fmt.Fprintln(os.Stderr, "Zapis nieudany, dane z tego przebiegu nie zostały utrwalone:", err)
		} else {
			fmt.Fprintln(os.Stderr, "Błąd:", err)
		}
		return 1
	}
	return 0
}

func shell(ctx context.Context, cancel context.CancelFunc, log zerolog.Logger, cfg *conf.Config, cfgPath, baseDir, inputPath, appDir string) {
	a, err := app.Open(log, cfg, baseDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Open error")
	}
	var cur atomic.Pointer[app.App]
	cur.Store(a)
	defer func() { cur.Load().Close() }()

	s := syncer.New(log, cfg, func(ctx context.Context, in string) (pipeline.Summary, error) {
		if in == "" {
			in = inputPath
		}
		return cur.Load().Run(ctx, in)
	})

	var srv *http.Server
	if addr := cfg.Metrics.Listen; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler(&cur))
		srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", addr).Msg("metrics server")
			}
		}()
		log.Info().Str("addr", addr).Msg("metrics: /metrics")
	}

	if cfg.AutoStart {
		if err := s.Start(ctx); err != nil {
			log.Error().Msgf("AutoStart nieudany: %v", err)
		} else {
			log.Info().Msgf("PIMSync %s działa", ver)
		}
	}

	fmt.Println("PIMSync CLI", ver)
	fmt.Println("Komendy: run | start | stop | reload | status | paths | quit")

	lines := make(chan string)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- line
		}
	}()

	quit := func() {
		cancel()
		s.Stop()
		if srv != nil {
			sctx, c := context.WithTimeout(context.Background(), 2*time.Second)
			_ = srv.Shutdown(sctx)
			c()
		}
	}

	for {
		fmt.Print("> ")
		var line string
		select {
		case <-ctx.Done():
			quit()
			return
		case l, ok := <-lines:
			if !ok {
				quit()
				return
			}
			line = l
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "run":
			in := ""
			if len(fields) > 1 {
				in = fields[1]
			}
			sum, err := s.RunNow(ctx, in)
			fmt.Println(sum.String())
			if err != nil {
				fmt.Println("Błąd:", err)
			}
		case "start":
			if err := s.Start(ctx); err != nil {
				log.Error().Msgf("Start error: %v", err)
				fmt.Println("Błąd startu:", err)
				continue
			}
			fmt.Println("Start OK")
		case "stop":
			s.Stop()
			fmt.Println("Zatrzymano")
		case "reload":
			newCfg, _, err := conf.LoadOrCreate(cfgPath)
			if err != nil {
				log.Error().Msgf("Błąd reloadu: %v", err)
				fmt.Println("Błąd reloadu:", err)
				continue
			}
			na, err := app.Open(log, newCfg, baseDir)
			if err != nil {
				fmt.Println("Błąd reloadu:", err)
				continue
			}
			wasRunning := s.IsRunning()
			s.Stop()
			old := cur.Swap(na)
			if err := old.Close(); err != nil {
				log.Warn().Err(err).Msg("close previous app")
			}
			cfg = newCfg
			s.UpdateConfig(cfg)
			if wasRunning {
				_ = s.Start(ctx)
			}
			log.Info().Msg("Konfiguracja przeładowana")
			fmt.Println("Konfiguracja przeładowana")
		case "status":
			if s.IsRunning() {
				fmt.Println("Status: DZIAŁA, co", cfg.Interval())
			} else {
				fmt.Println("Status: ZATRZYMANY")
			}
			if last := s.Last(); !last.At.IsZero() {
				fmt.Printf("Ostatni przebieg: %s, %s\n", last.At.Format(time.DateTime), last.Summary.String())
				if last.Err != nil {
					fmt.Println("Ostatni błąd:", last.Err)
				}
			}
		case "paths":
			fmt.Println("Logi:", filepath.Join(appDir, "app.log"))
			fmt.Println("Config:", cfgPath)
			paths := cur.Load().Paths()
			keys := make([]string, 0, len(paths))
			for k := range paths {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%s: %s\n", k, paths[k])
			}
		case "quit", "exit":
			quit()
			return
		default:
			fmt.Println("Nieznana komenda. Użyj: run | start | stop | reload | status | paths | quit")
		}
	}
}

// metryki zawsze z aktualnej instancji (reload podmienia App)
func metricsHandler(cur *atomic.Pointer[app.App]) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur.Load().Metrics.Handler().ServeHTTP(w, r)
	})
}

func mustAppDataDir(name string) string {
	base, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	p := filepath.Join(base, name)
	_ = os.MkdirAll(p, 0o755)
	return p
}
