package bench

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/fractal-wasm/engine"
	"github.com/wippyai/fractal-wasm/errors"
	"github.com/wippyai/fractal-wasm/fractal"
)

// Julia variants are sampled over z with this fixed constant.
const (
	JuliaRe = -0.8
	JuliaIm = 0.156
)

// overheadCalls is the number of max_iter = 0 calls used to measure the
// fixed cost of a host-to-wasm call.
const overheadCalls = 20_000

// Config describes one benchmark run.
type Config struct {
	Variant string
	Grid    int
	MaxIter int
	Workers int // 0 means GOMAXPROCS
}

func (c Config) withDefaults() Config {
	if c.Variant == "" {
		c.Variant = "mandelbrot"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Workers > c.Grid && c.Grid > 0 {
		c.Workers = c.Grid
	}
	return c
}

// Point returns the export arguments for grid cell (row, col) of an n by n grid
// covering [-2.5, 1.5] x [-2, 2].
func Point(d fractal.Descriptor, row, col, n, maxIter int) []float64 {
	x := -2.5 + float64(col)*4/float64(n)
	y := -2.0 + float64(row)*4/float64(n)
	if d.Family == fractal.FamilyJulia {
		return []float64{x, y, JuliaRe, JuliaIm, float64(maxIter)}
	}
	return []float64{x, y, float64(maxIter)}
}

// Run times the native reference and the wasm export on the same grid. The
// wasm timing has the measured per-call host overhead subtracted, so it
// estimates the pure compute time a browser would see. A nil engine skips
// the wasm half.
func Run(ctx context.Context, eng *engine.WazeroEngine, cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	if cfg.Grid <= 0 {
		return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("grid must be positive, got %d", cfg.Grid))
	}
	if cfg.MaxIter < 0 {
		return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("max_iter must not be negative, got %d", cfg.MaxIter))
	}

	d, err := fractal.Lookup(cfg.Variant)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Variant:  d.Name,
		GridSize: cfg.Grid,
		MaxIter:  cfg.MaxIter,
		Workers:  cfg.Workers,
	}

	nativeSum, nativeTime, err := runNative(ctx, d, cfg)
	if err != nil {
		return nil, err
	}
	report.NativeMS = ms(nativeTime)
	report.Checksum = nativeSum
	Logger().Info("native grid done",
		zap.String("variant", d.Name),
		zap.Duration("elapsed", nativeTime))

	if eng == nil {
		return report, nil
	}

	art, err := fractal.Compile(d.Name)
	if err != nil {
		return nil, err
	}
	mod, err := eng.LoadModule(ctx, art.Binary)
	if err != nil {
		Logger().Warn("wasm benchmark skipped", zap.Error(err))
		return report, nil
	}
	defer mod.Close(ctx)
	if err := mod.Check(art.Contract); err != nil {
		return nil, err
	}

	overhead, err := measureOverhead(ctx, mod, d)
	if err != nil {
		return nil, err
	}

	wasmSum, wasmTime, err := runWasm(ctx, mod, d, cfg)
	if err != nil {
		return nil, err
	}
	if wasmSum != nativeSum {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidData).
			Path(d.Name).
			Detail("wasm checksum %v differs from native %v", wasmSum, nativeSum).
			Build()
	}

	// overhead is paid once per call, spread over the workers
	calls := float64(cfg.Grid) * float64(cfg.Grid)
	compute := wasmTime - time.Duration(float64(overhead)*calls/float64(cfg.Workers))
	if compute < time.Microsecond {
		compute = time.Microsecond
	}

	report.setWasm(ms(compute), float64(overhead.Nanoseconds()))
	Logger().Info("wasm grid done",
		zap.String("variant", d.Name),
		zap.Duration("elapsed", wasmTime),
		zap.Duration("overhead_per_call", overhead),
		zap.Float64("speedup", *report.Speedup))

	return report, nil
}

// rows shards grid rows across workers; each worker calls do for its rows.
func rows(ctx context.Context, cfg Config, worker func(ctx context.Context) (func(row int) (float64, error), func(), error)) (float64, time.Duration, error) {
	var next atomic.Int64
	sums := make([]float64, cfg.Workers)

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			do, done, err := worker(ctx)
			if err != nil {
				return err
			}
			defer done()
			for {
				row := int(next.Add(1) - 1)
				if row >= cfg.Grid {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				s, err := do(row)
				if err != nil {
					return err
				}
				sums[w] += s
			}
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	elapsed := time.Since(start)

	var total float64
	for _, s := range sums {
		total += s
	}
	return total, elapsed, nil
}

func runNative(ctx context.Context, d fractal.Descriptor, cfg Config) (float64, time.Duration, error) {
	return rows(ctx, cfg, func(context.Context) (func(int) (float64, error), func(), error) {
		do := func(row int) (float64, error) {
			var sum float64
			for col := 0; col < cfg.Grid; col++ {
				v, err := d.Eval(Point(d, row, col, cfg.Grid, cfg.MaxIter)...)
				if err != nil {
					return 0, err
				}
				sum += v
			}
			return sum, nil
		}
		return do, func() {}, nil
	})
}

// runWasm gives every worker its own instance; wazero functions are not
// safe for concurrent calls.
func runWasm(ctx context.Context, mod *engine.WazeroModule, d fractal.Descriptor, cfg Config) (float64, time.Duration, error) {
	return rows(ctx, cfg, func(ctx context.Context) (func(int) (float64, error), func(), error) {
		inst, err := mod.Instantiate(ctx)
		if err != nil {
			return nil, nil, err
		}
		fn, err := inst.Function(d.Name)
		if err != nil {
			_ = inst.Close(ctx)
			return nil, nil, err
		}
		do := func(row int) (float64, error) {
			var sum float64
			for col := 0; col < cfg.Grid; col++ {
				v, err := fn.Call(ctx, Point(d, row, col, cfg.Grid, cfg.MaxIter)...)
				if err != nil {
					return 0, err
				}
				sum += v
			}
			return sum, nil
		}
		return do, func() { _ = inst.Close(ctx) }, nil
	})
}

func measureOverhead(ctx context.Context, mod *engine.WazeroModule, d fractal.Descriptor) (time.Duration, error) {
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return 0, err
	}
	defer inst.Close(ctx)

	fn, err := inst.Function(d.Name)
	if err != nil {
		return 0, err
	}
	args := make([]float64, len(d.Layout().Params))

	// warm up
	if _, err := fn.Call(ctx, args...); err != nil {
		return 0, err
	}

	start := time.Now()
	for i := 0; i < overheadCalls; i++ {
		if _, err := fn.Call(ctx, args...); err != nil {
			return 0, err
		}
	}
	return time.Since(start) / overheadCalls, nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
