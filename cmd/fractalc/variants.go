package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/wippyai/fractal-wasm/fractal"
)

func newVariantsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List the registered fractal variants",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVariants(cmd.OutOrStdout())
		},
	}
}

func runVariants(w io.Writer) error {
	art, err := fractal.CompileAll()
	if err != nil {
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("variant", "family", "signature", "formula")
	for _, d := range fractal.Descriptors() {
		e, _ := art.Contract.Lookup(d.Name)
		t.Row(d.Name, d.Family.String(), e.String(), d.Summary)
	}
	_, err = fmt.Fprintln(w, t.Render())
	return err
}
