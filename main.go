//go:build windows && !dev

package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/getlantern/systray"

	"github.com/bartek5186/pimsync/internal/app"
	conf "github.com/bartek5186/pimsync/internal/config"
	logs "github.com/bartek5186/pimsync/internal/logs"
	"github.com/bartek5186/pimsync/internal/pipeline"
	syncer "github.com/bartek5186/pimsync/internal/syncer"
)

//go:embed assets/icon.ico
var iconData []byte

// wersję możesz nadpisać przez: -ldflags "-X 'main.ver=1.0.1'"
var ver = "1.0.0"

func main() {
	// katalog danych aplikacji (logi, config, baza)
	appDir := mustAppDataDir("pimsync")
	logPath := filepath.Join(appDir, "app.log")
	log, closer, err := logs.New(logs.Options{Path: logPath})
	if err != nil {
		panic(err)
	}
	defer closer.Close()

	cfgPath := filepath.Join(appDir, "config.json")
	cfg, firstRun, err := conf.LoadOrCreate(cfgPath)
	if err != nil {
		panic(err)
	}
	if firstRun {
		log.Info().Msgf("Utworzono domyślną konfigurację: %s", cfgPath)
	}

	a, err := app.Open(log, cfg, appDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Open error")
	}
	var cur atomic.Pointer[app.App]
	cur.Store(a)

	// kontekst sterujący życiem procesu (CTRL+C / zamknięcie sesji)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s := syncer.New(log, cfg, func(ctx context.Context, in string) (pipeline.Summary, error) {
		return cur.Load().Run(ctx, in)
	})

	// jeśli proces dostanie sygnał – zatrzymaj syncer i zamknij tray
	go func() {
		<-ctx.Done()
		s.Stop()
		systray.Quit()
	}()

	systray.Run(func() {
		if len(iconData) > 0 {
			systray.SetIcon(iconData)
		}
		systray.SetTooltip(fmt.Sprintf("PIMSync %s", ver))

		mStart := systray.AddMenuItem("Start synchronizacji", "Uruchom harmonogram")
		mStop := systray.AddMenuItem("Stop synchronizacji", "Zatrzymaj harmonogram")
		mStop.Disable()
		mRunNow := systray.AddMenuItem("Uruchom teraz", "Jeden przebieg dla pliku wejściowego")

		systray.AddSeparator()
		mOpenLogs := systray.AddMenuItem("Otwórz logi", "Pokaż plik log")
		mOpenCfg := systray.AddMenuItem("Ustawienia (config.json)", "Otwórz plik konfiguracyjny")
		mOpenBook := systray.AddMenuItem("Otwórz katalog produktów", "Skoroszyt products_db.xlsx")
		mReload := systray.AddMenuItem("Przeładuj konfigurację", "Wczytaj ponownie config.json")
		systray.AddSeparator()
		mAbout := systray.AddMenuItem(fmt.Sprintf("O programie (%s)", ver), "")
		mQuit := systray.AddMenuItem("Wyjście", "Zamknij aplikację")

		// AutoStart harmonogramu (nie mylić z autostartem Windows!)
		if cfg.AutoStart {
			if err := s.Start(ctx); err == nil {
				mStart.Disable()
				mStop.Enable()
				systray.SetTooltip(fmt.Sprintf("PIMSync %s: działa", ver))
			} else {
				log.Error().Msgf("AutoStart nieudany: %v", err)
				systray.SetTooltip(fmt.Sprintf("PIMSync %s: błąd startu", ver))
			}
		}

		go func() {
			for {
				select {
				case <-mStart.ClickedCh:
					if err := s.Start(ctx); err != nil {
						log.Error().Msgf("Start error: %v", err)
						systray.SetTooltip(fmt.Sprintf("PIMSync %s: błąd startu", ver))
						continue
					}
					mStart.Disable()
					mStop.Enable()
					systray.SetTooltip(fmt.Sprintf("PIMSync %s: działa", ver))

				case <-mStop.ClickedCh:
					s.Stop()
					mStop.Disable()
					mStart.Enable()
					systray.SetTooltip(fmt.Sprintf("PIMSync %s: zatrzymane", ver))

				case <-mRunNow.ClickedCh:
					mRunNow.Disable()
					go func() {
						defer mRunNow.Enable()
						sum, err := s.RunNow(ctx, "")
						if err != nil {
							systray.SetTooltip(fmt.Sprintf("PIMSync %s: błąd przebiegu", ver))
							return
						}
						systray.SetTooltip(fmt.Sprintf("PIMSync %s: %s", ver, sum.String()))
					}()

				case <-mOpenLogs.ClickedCh:
					openInExplorer(logPath)

				case <-mOpenCfg.ClickedCh:
					openInExplorer(cfgPath)

				case <-mOpenBook.ClickedCh:
					openInExplorer(cur.Load().Paths()["Workbook"])

				case <-mReload.ClickedCh:
					newCfg, _, err := conf.LoadOrCreate(cfgPath)
					if err != nil {
						log.Error().Msgf("Błąd reloadu: %v", err)
						continue
					}
					na, err := app.Open(log, newCfg, appDir)
					if err != nil {
						log.Error().Msgf("Błąd reloadu: %v", err)
						continue
					}
					wasRunning := s.IsRunning()
					s.Stop()
					_ = cur.Swap(na).Close()
					cfg = newCfg
					s.UpdateConfig(cfg)
					if wasRunning {
						_ = s.Start(ctx)
					}
					log.Info().Msg("Konfiguracja przeładowana")

				case <-mAbout.ClickedCh:
					log.Info().Msgf("PIMSync %s | %s", ver, runtime.Version())

				case <-mQuit.ClickedCh:
					cancel()
					s.Stop()
					systray.Quit()
					return
				}
			}
		}()
	}, func() {
		_ = cur.Load().Close()
		// daj chwilę loggerowi na flush
		time.Sleep(50 * time.Millisecond)
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

// przenośne otwieranie plików/katalogów w domyślnej aplikacji
func openInExplorer(path string) {
	switch runtime.GOOS {
	case "windows":
		// "start" musi być uruchomiony przez cmd /C, z pustym tytułem okna ""
		_ = exec.Command("cmd", "/C", "start", "", path).Start()
	case "darwin":
		_ = exec.Command("open", path).Start()
	default:
		_ = exec.Command("xdg-open", path).Start()
	}
}
