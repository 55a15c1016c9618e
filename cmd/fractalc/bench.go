package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wippyai/fractal-wasm/bench"
	"github.com/wippyai/fractal-wasm/engine"
	"github.com/wippyai/fractal-wasm/manifest"
)

type benchOptions struct {
	manifest   string
	variant    string
	grid       int
	maxIter    int
	workers    int
	output     string
	nativeOnly bool
	json       bool
}

func newBenchCommand(v *viper.Viper, _ *rootOptions) *cobra.Command {
	opts := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare native Go against the wasm module on a grid",
		Long: `Bench renders an N by N grid natively and through wazero and reports both
timings. The wasm timing has the per-call host overhead, measured with
max_iter = 0 calls, subtracted.

Settings default to the manifest's [bench] table when the manifest exists;
flags override them.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd.Context(), cmd.OutOrStdout(), cmd, opts)
		},
	}

	BindOptions(v, cmd.Flags(), []Opt{
		{DestP: &opts.manifest, Flag: "manifest", Short: "m", Default: manifest.DefaultPath, Desc: "build manifest"},
		{DestP: &opts.variant, Flag: "variant", Default: "mandelbrot", Desc: "variant to benchmark"},
		{DestP: &opts.grid, Flag: "grid", Default: manifest.DefaultGrid, Desc: "grid size N"},
		{DestP: &opts.maxIter, Flag: "max-iter", Default: manifest.DefaultMaxIter, Desc: "iteration bound"},
		{DestP: &opts.workers, Flag: "workers", Desc: "parallel workers (0 = GOMAXPROCS)"},
		{DestP: &opts.output, Flag: "output", Desc: "write the JSON report here"},
		{DestP: &opts.nativeOnly, Flag: "native-only", Desc: "skip the wasm half"},
		{DestP: &opts.json, Flag: "json", Desc: "print the JSON report instead of a summary"},
	})
	return cmd
}

// benchConfig merges the manifest's [bench] table under any flag the user set.
func benchConfig(cmd *cobra.Command, opts *benchOptions) (bench.Config, string, error) {
	cfg := bench.Config{
		Variant: opts.variant,
		Grid:    opts.grid,
		MaxIter: opts.maxIter,
		Workers: opts.workers,
	}
	output := opts.output

	if _, err := os.Stat(opts.manifest); err != nil {
		if cmd.Flags().Changed("manifest") {
			return cfg, "", err
		}
		return cfg, output, nil
	}

	m, err := manifest.Load(opts.manifest)
	if err != nil {
		return cfg, "", err
	}
	changed := cmd.Flags().Changed
	if !changed("variant") && m.Bench.Variant != "" {
		cfg.Variant = m.Bench.Variant
	}
	if !changed("grid") {
		cfg.Grid = m.Bench.Grid
	}
	if !changed("max-iter") {
		cfg.MaxIter = m.Bench.MaxIter
	}
	if !changed("workers") {
		cfg.Workers = m.Bench.Workers
	}
	if !changed("output") && m.Bench.Output != "" {
		output = m.Bench.Output
	}
	return cfg, output, nil
}

func runBench(ctx context.Context, w io.Writer, cmd *cobra.Command, opts *benchOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, output, err := benchConfig(cmd, opts)
	if err != nil {
		return err
	}

	var eng *engine.WazeroEngine
	if !opts.nativeOnly {
		eng = engine.NewWazeroEngine(ctx)
		defer eng.Close(ctx)
	}

	report, err := bench.Run(ctx, eng, cfg)
	if err != nil {
		return err
	}

	if output != "" {
		if err := report.WriteFile(output); err != nil {
			return err
		}
	}

	if opts.json {
		return report.Write(w)
	}

	fmt.Fprintf(w, "%s, %dx%d grid, max_iter %d, %d workers\n",
		report.Variant, report.GridSize, report.GridSize, report.MaxIter, report.Workers)
	fmt.Fprintf(w, "  native: %.1f ms\n", report.NativeMS)
	if report.WasmAvailable {
		fmt.Fprintf(w, "  wasm:   %.1f ms (host overhead %.0f ns/call subtracted)\n", *report.WasmMS, report.OverheadNS)
		fmt.Fprintf(w, "  native/wasm: %.1fx\n", *report.Speedup)
	}
	if output != "" {
		fmt.Fprintf(w, "  report: %s\n", output)
	}
	return nil
}
