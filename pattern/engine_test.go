package pattern

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/ws2812c/model"
	"github.com/coreman2200/ws2812c/transmit"
	"github.com/coreman2200/ws2812c/ws2812"
)

var testTiming = ws2812.Timing{Period: 60, High: 30, Low: 15, Reset: 4}

// recorder decodes every transmitted buffer back into a frame.
type recorder struct {
	t        *testing.T
	cancel   *transmit.Signal
	cancelAt int // raise cancel while transmitting this frame (1-based)
	failAt   int // fail this frame (1-based)
	err      error

	frames   []model.Frame
	inFlight bool
}

func (r *recorder) Transmit(p []uint16) error {
	n := len(r.frames) + 1
	if n > 10000 {
		r.t.Fatalf("pattern did not stop")
	}
	if n == r.failAt {
		return r.err
	}
	r.inFlight = true
	if n == r.cancelAt {
		r.cancel.Set()
	}
	f, err := ws2812.Decode(p, testTiming)
	require.NoError(r.t, err)
	r.frames = append(r.frames, f)
	r.inFlight = false
	return nil
}

type delays struct {
	got []time.Duration
}

func (d *delays) Delay(t time.Duration) { d.got = append(d.got, t) }

func newTestEngine(t *testing.T, n int, opts Options) (*Engine, *recorder, *delays, *transmit.Signal) {
	t.Helper()
	cancel := &transmit.Signal{}
	rec := &recorder{t: t, cancel: cancel}
	d := &delays{}
	opts.Delay = d.Delay
	enc, err := ws2812.NewEncoder(n, testTiming)
	require.NoError(t, err)
	e, err := NewEngine(model.NewFrame(n), enc, rec, cancel, opts)
	require.NoError(t, err)
	return e, rec, d, cancel
}

func TestNewEngineRejectsMismatch(t *testing.T) {
	enc, err := ws2812.NewEncoder(4, testTiming)
	require.NoError(t, err)
	_, err = NewEngine(model.NewFrame(5), enc, &recorder{}, &transmit.Signal{}, Options{})
	assert.ErrorIs(t, err, ws2812.ErrFrameSize)
	_, err = NewEngine(model.NewFrame(4), enc, &recorder{}, &transmit.Signal{}, Options{Layout: model.Layout{Width: 3, Height: 3}})
	assert.ErrorIs(t, err, ws2812.ErrFrameSize)
}

func TestCycleStopsAtCheckpoint(t *testing.T) {
	e, rec, d, _ := newTestEngine(t, 3, Options{Dwell: 7 * time.Millisecond})
	rec.cancelAt = 5

	require.NoError(t, Cycle(e))

	want := []model.Colour{model.Red, model.Green, model.Blue, model.Red, model.Green}
	require.Len(t, rec.frames, len(want))
	for i, c := range want {
		for _, px := range rec.frames[i] {
			assert.Equal(t, c, px, "frame %d", i)
		}
	}
	assert.False(t, rec.inFlight, "returned mid-transmission")
	require.Len(t, d.got, 5)
	for _, dd := range d.got {
		assert.Equal(t, 7*time.Millisecond, dd)
	}
	assert.Equal(t, uint64(5), e.Frames())
}

func TestCancelAlreadySetRunsOneStep(t *testing.T) {
	e, rec, _, cancel := newTestEngine(t, 2, Options{})
	cancel.Set()
	require.NoError(t, Rainbow(e))
	assert.Len(t, rec.frames, 1)
	assert.True(t, cancel.IsSet(), "engine must not clear the cancellation signal")
}

func TestRainbowWalksHueWheel(t *testing.T) {
	e, rec, d, _ := newTestEngine(t, 4, Options{Step: 3 * time.Millisecond})
	rec.cancelAt = model.HueSteps + 10

	require.NoError(t, Rainbow(e))
	require.Len(t, rec.frames, model.HueSteps+10)
	for i, f := range rec.frames {
		want := model.HueToRGB(i)
		for _, px := range f {
			require.Equal(t, want, px, "frame %d", i)
		}
		if i == 0 {
			continue
		}
		prev := rec.frames[i-1][0]
		diff := absDiff(prev.R, f[0].R) + absDiff(prev.G, f[0].G) + absDiff(prev.B, f[0].B)
		assert.LessOrEqual(t, diff, 1, "frame %d moved more than one channel step", i)
	}
	assert.Equal(t, 3*time.Millisecond, d.got[0])
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestGradientDiagonalOffsets(t *testing.T) {
	l := model.Layout{Width: 3, Height: 3}
	e, rec, d, _ := newTestEngine(t, 9, Options{Layout: l})
	rec.cancelAt = 2

	require.NoError(t, Gradient(e))
	require.Len(t, rec.frames, 2)

	// offsets per index on a 3x3 panel, bottom-left diagonal first
	offsets := []int{80, 120, 160, 40, 80, 120, 0, 40, 80}
	for step, f := range rec.frames {
		for i, off := range offsets {
			assert.Equal(t, model.HueToRGB(step+off), f[i], "step %d led %d", step, i)
		}
	}
	assert.Equal(t, DefaultGradientStep, d.got[0])
}

func TestSweepLightsOneLED(t *testing.T) {
	e, rec, _, _ := newTestEngine(t, 4, Options{})
	rec.cancelAt = 6

	require.NoError(t, Sweep(e))
	require.Len(t, rec.frames, 6)
	for step, f := range rec.frames {
		lit := step % 4
		for i, px := range f {
			if i == lit {
				assert.Equal(t, model.White, px)
			} else {
				assert.Equal(t, model.Black, px)
			}
		}
	}
}

func TestTimeoutAbortsPattern(t *testing.T) {
	for name, p := range map[string]Pattern{"cycle": Cycle, "rainbow": Rainbow, "gradient": Gradient, "sweep": Sweep} {
		t.Run(name, func(t *testing.T) {
			e, rec, _, _ := newTestEngine(t, 3, Options{})
			rec.failAt = 3
			rec.err = transmit.ErrTransmissionTimeout

			err := p(e)
			require.Error(t, err)
			assert.True(t, errors.Is(err, transmit.ErrTransmissionTimeout))
			assert.Len(t, rec.frames, 2)
		})
	}
}

func TestRunLogs(t *testing.T) {
	e, rec, _, _ := newTestEngine(t, 2, Options{})
	rec.cancelAt = 3
	var buf bytes.Buffer
	e.SetLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	require.NoError(t, e.Run("cycle", Cycle))
	assert.Contains(t, buf.String(), `"pattern":"cycle"`)
	assert.Contains(t, buf.String(), `"frames":3`)
}
