package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wippyai/fractal-wasm/errors"
	"github.com/wippyai/fractal-wasm/wasm"
)

type inspectOptions struct {
	text     bool
	validate bool
}

func newInspectCommand(v *viper.Viper, _ *rootOptions) *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect <module.wasm>",
		Short: "Print the sections, exports and code of a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return runInspect(cmd.OutOrStdout(), args[0], data, opts)
		},
	}

	BindOptions(v, cmd.Flags(), []Opt{
		{DestP: &opts.text, Flag: "text", Default: true, Desc: "print a text rendering of each function"},
		{DestP: &opts.validate, Flag: "check", Default: true, Desc: "validate locals, branches and stack types"},
	})
	return cmd
}

func runInspect(w io.Writer, name string, data []byte, opts *inspectOptions) error {
	m, err := wasm.ParseModule(data)
	if err != nil {
		return errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "parse "+name)
	}

	fmt.Fprintf(w, "%s: %d bytes, %d types, %d functions\n\n", name, len(data), len(m.Types), len(m.Funcs))

	sections := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("section", "id", "offset", "size")
	for _, s := range m.Sections {
		sections.Row(wasm.SectionName(s.ID), strconv.Itoa(int(s.ID)), strconv.Itoa(s.Offset), strconv.FormatUint(uint64(s.Size), 10))
	}
	fmt.Fprintln(w, sections.Render())

	exports := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("export", "func", "type", "signature")
	for _, e := range m.Exports {
		idx, ft, ok := m.ExportedFunc(e.Name)
		if !ok {
			exports.Row(e.Name, strconv.Itoa(int(e.Idx)), "-", "not a function")
			continue
		}
		exports.Row(e.Name, strconv.Itoa(int(idx)), strconv.Itoa(int(m.Funcs[idx])), ft.String())
	}
	fmt.Fprintln(w, exports.Render())

	if opts.validate {
		if err := m.Validate(); err != nil {
			return err
		}
		fmt.Fprintln(w, "valid")
	}

	if opts.text {
		fmt.Fprintln(w)
		fmt.Fprint(w, wasm.FormatText(m))
	}
	return nil
}
