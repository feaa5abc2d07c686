package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"periph.io/x/host/v3"

	"github.com/coreman2200/ws2812c/internal/app"
	"github.com/coreman2200/ws2812c/internal/button"
	"github.com/coreman2200/ws2812c/internal/config"
)

var (
	configPath = "config.yaml"
	leds       = 0
	driver     = ""
	spiDev     = ""
	buttonPin  = ""
	addr       = ""
	patterns   []string
	verbose    = false
	writeCfg   = false
)

func init() {
	pflag.StringVarP(&configPath, "config", "c", configPath, "path to config.yaml")
	pflag.IntVarP(&leds, "leds", "n", leds, "number of LEDs (overrides config)")
	pflag.StringVar(&driver, "driver", driver, "driver: spi | screen | sim")
	pflag.StringVar(&spiDev, "spi", spiDev, "SPI port, e.g. /dev/spidev0.0")
	pflag.StringVar(&buttonPin, "button", buttonPin, "GPIO of the pattern button, e.g. GPIO17")
	pflag.StringVar(&addr, "addr", addr, "preview HTTP listen address, e.g. :8080")
	pflag.StringSliceVarP(&patterns, "pattern", "p", nil, "patterns to play, in order")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "debug logging")
	pflag.BoolVar(&writeCfg, "write-config", writeCfg, "write the effective config and exit")
}

func main() {
	pflag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Config: file, then flags ----
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", configPath).Msg("config load failed; proceeding with defaults")
		cfg = config.Default()
	}
	applyFlags(cfg)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("bad configuration")
	}
	if writeCfg {
		if err := config.Save(configPath, cfg); err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("write config")
		}
		log.Info().Str("path", configPath).Msg("config written")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("stopped")
	}
}

func applyFlags(cfg *config.Config) {
	if leds > 0 {
		cfg.LEDs = leds
		// an explicit count drops the panel geometry
		cfg.Width, cfg.Height = 0, 0
	}
	if driver != "" {
		cfg.Driver = driver
	}
	if spiDev != "" {
		cfg.SPI.Dev = spiDev
	}
	if buttonPin != "" {
		cfg.Button.Pin = buttonPin
	}
	if addr != "" {
		cfg.Preview.Addr = addr
	}
	if len(patterns) > 0 {
		cfg.Patterns = patterns
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if _, err := host.Init(); err != nil {
		return err
	}

	out, err := app.OpenOutputs(cfg, log.Logger)
	if err != nil {
		return err
	}
	defer out.Close()

	core, err := app.InitCore(cfg, log.Logger, out.Sinks...)
	if err != nil {
		return err
	}
	defer core.Close()

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer stop()
		return app.NewLooper(core, log.Logger).Start(ctx)
	})

	if cfg.Button.Pin != "" {
		pin, err := button.Open(cfg.Button.Pin)
		if err != nil {
			log.Warn().Err(err).Msg("button disabled")
		} else {
			w := button.NewWatcher(pin, cfg.Debounce(), core.Cancel.Set)
			w.SetLogger(log.Logger)
			group.Go(func() error { return w.Run(ctx) })
		}
	}

	if out.Preview != nil {
		srv := &http.Server{
			Addr:         cfg.Preview.Addr,
			Handler:      out.Preview.Handler(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		group.Go(func() error {
			log.Info().Str("addr", srv.Addr).Str("driver", out.Driver).Msg("HTTP server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			return srv.Close()
		})
	}

	err = group.Wait()
	log.Info().Msg("shutting down")
	return err
}
