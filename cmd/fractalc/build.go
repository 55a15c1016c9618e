package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/fractal-wasm/engine"
	"github.com/wippyai/fractal-wasm/errors"
	"github.com/wippyai/fractal-wasm/fractal"
	"github.com/wippyai/fractal-wasm/manifest"
)

type buildOptions struct {
	manifest string
	targets  []string
	variants []string
	out      string
	validate bool
}

func newBuildCommand(v *viper.Viper, root *rootOptions) *cobra.Command {
	opts := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write fractal modules listed in the manifest, or one module from flags",
		Long: `Build compiles the selected variants into a WebAssembly module and writes it.

Without --out, every [[target]] of the manifest is built in parallel.
With --out, a single module is built from --variants (all variants when empty).
Validated modules are loaded in wazero and each export is sampled once.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd.Context(), cmd.OutOrStdout(), root.log, opts)
		},
	}

	BindOptions(v, cmd.Flags(), []Opt{
		{DestP: &opts.manifest, Flag: "manifest", Short: "m", Default: manifest.DefaultPath, Desc: "build manifest"},
		{DestP: &opts.targets, Flag: "target", Short: "t", Desc: "only build these manifest targets"},
		{DestP: &opts.variants, Flag: "variants", Desc: "variants to export when building with --out"},
		{DestP: &opts.out, Flag: "out", Short: "o", Desc: "write a single module here instead of using the manifest"},
		{DestP: &opts.validate, Flag: "validate", Desc: "validate modules built with --out"},
	})
	return cmd
}

type buildResult struct {
	target   manifest.Target
	size     int
	contract fractal.Contract
	samples  []sample
}

type sample struct {
	entry fractal.Entry
	args  []float64
	value float64
}

func (s sample) String() string {
	args := make([]string, len(s.args))
	for i, a := range s.args {
		args[i] = strconv.FormatFloat(a, 'g', -1, 64)
	}
	return fmt.Sprintf("%s(%s) = %s", s.entry.Name, strings.Join(args, ", "), strconv.FormatFloat(s.value, 'g', -1, 64))
}

func resolveTargets(opts *buildOptions) ([]manifest.Target, error) {
	if opts.out != "" {
		variants := opts.variants
		if len(variants) == 0 {
			variants = fractal.Names()
		}
		return []manifest.Target{{
			Name:     strings.TrimSuffix(filepath.Base(opts.out), filepath.Ext(opts.out)),
			Output:   opts.out,
			Variants: variants,
			Validate: opts.validate,
		}}, nil
	}

	m, err := manifest.Load(opts.manifest)
	if err != nil {
		return nil, err
	}
	if len(opts.targets) == 0 {
		if len(m.Targets) == 0 {
			return nil, errors.InvalidInput(errors.PhaseConfig, opts.manifest+" lists no targets")
		}
		return m.Targets, nil
	}

	targets := make([]manifest.Target, 0, len(opts.targets))
	for _, name := range opts.targets {
		t, ok := m.Target(name)
		if !ok {
			return nil, errors.NotFound(errors.PhaseConfig, "target", name)
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func runBuild(ctx context.Context, w io.Writer, log *zap.Logger, opts *buildOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	targets, err := resolveTargets(opts)
	if err != nil {
		return err
	}

	eng := engine.NewWazeroEngine(ctx)
	defer eng.Close(ctx)

	results := make([]buildResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		g.Go(func() error {
			r, err := buildTarget(gctx, eng, t)
			if err != nil {
				return fmt.Errorf("target %s: %w", t.Name, err)
			}
			results[i] = r
			log.Info("module written",
				zap.String("target", t.Name),
				zap.String("output", t.Output),
				zap.Int("bytes", r.size),
				zap.Strings("variants", t.Variants))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		fmt.Fprintf(w, "%s: %s (%d bytes, %d exports)\n", r.target.Name, r.target.Output, r.size, len(r.contract.Entries))
		for _, s := range r.samples {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
	return nil
}

func buildTarget(ctx context.Context, eng *engine.WazeroEngine, t manifest.Target) (buildResult, error) {
	art, err := fractal.Compile(t.Variants...)
	if err != nil {
		return buildResult{}, err
	}

	r := buildResult{target: t, size: len(art.Binary), contract: art.Contract}
	if t.Validate {
		if err := eng.Verify(ctx, art.Binary, art.Contract); err != nil {
			return buildResult{}, err
		}
		if r.samples, err = sampleExports(ctx, eng, art); err != nil {
			return buildResult{}, err
		}
	}

	if dir := filepath.Dir(t.Output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return buildResult{}, err
		}
	}
	if err := os.WriteFile(t.Output, art.Binary, 0o644); err != nil {
		return buildResult{}, err
	}
	return r, nil
}

// sampleExports calls every export once at its sample point and checks the
// result against the native reference.
func sampleExports(ctx context.Context, eng *engine.WazeroEngine, art *fractal.Artifact) ([]sample, error) {
	mod, err := eng.LoadModule(ctx, art.Binary)
	if err != nil {
		return nil, err
	}
	defer mod.Close(ctx)

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return nil, err
	}
	defer inst.Close(ctx)

	samples := make([]sample, 0, len(art.Contract.Entries))
	for _, e := range art.Contract.Entries {
		args := sampleArgs(e.Family)
		got, err := inst.Call(ctx, e.Name, args...)
		if err != nil {
			return nil, err
		}
		want, err := fractal.Reference(e.Name, args...)
		if err != nil {
			return nil, err
		}
		if got != want {
			return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidData).
				Path(e.Name).
				Detail("wasm returned %v, native reference %v", got, want).
				Build()
		}
		samples = append(samples, sample{entry: e, args: args, value: got})
	}
	return samples, nil
}

// sampleArgs returns a point that separates the variants of a family.
func sampleArgs(f fractal.Family) []float64 {
	if f == fractal.FamilyJulia {
		return []float64{0, 0, -0.8, 0.156, 100}
	}
	return []float64{-0.75, 0.1, 100}
}
