package app

import (
	"context"

	"github.com/rs/zerolog"
)

// Looper plays the configured patterns one after another. Each pattern runs
// until the cancel signal is raised, then the next one starts; when the
// context ends the strip is blanked and Start returns.
type Looper struct {
	core *Core
	log  zerolog.Logger
}

func NewLooper(c *Core, log zerolog.Logger) *Looper {
	return &Looper{core: c, log: log}
}

// Start blocks until ctx is done or a pattern fails. A transmission timeout
// is not retried: it ends the loop with the error.
func (l *Looper) Start(ctx context.Context) error {
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		select {
		case <-ctx.Done():
			l.core.Cancel.Set()
		case <-quit:
		}
	}()

	for {
		// Clear before looking at ctx: a shutdown that lands in between
		// raises the signal again and stops the next pattern at its first
		// checkpoint.
		l.core.Cancel.Clear()
		if ctx.Err() != nil {
			break
		}
		name, p := l.core.Playlist.Current()
		l.log.Info().Str("pattern", name).Msg("pattern switch")
		if err := l.core.Engine.Run(name, p); err != nil {
			l.log.Error().Err(err).Str("pattern", name).Msg("pattern aborted")
			return err
		}
		l.core.Playlist.Next()
	}

	if err := l.core.Blank(); err != nil {
		l.log.Warn().Err(err).Msg("blank on exit")
	}
	l.log.Info().Uint64("frames", l.core.Engine.Frames()).Msg("loop stopped")
	return nil
}
