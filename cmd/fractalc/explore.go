package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.bytecodealliance.org/wit"
	"golang.org/x/term"

	"github.com/wippyai/fractal-wasm/engine"
	"github.com/wippyai/fractal-wasm/errors"
	"github.com/wippyai/fractal-wasm/fractal"
	"github.com/wippyai/fractal-wasm/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type exploreOptions struct {
	interpreter bool
}

func newExploreCommand(v *viper.Viper, _ *rootOptions) *cobra.Command {
	opts := &exploreOptions{}
	cmd := &cobra.Command{
		Use:   "explore [module.wasm]",
		Short: "Call exports interactively and preview the fractal",
		Long: `Explore loads a module in wazero and lets you pick an export, enter its
arguments and see the result next to a preview of the plane around it.
Without a path every registered variant is compiled in memory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("explore needs an interactive terminal")
			}
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runExplore(cmd.Context(), path, opts)
		},
	}

	BindOptions(v, cmd.Flags(), []Opt{
		{DestP: &opts.interpreter, Flag: "interpreter", Desc: "use the wazero interpreter instead of the compiler"},
	})
	return cmd
}

func runExplore(ctx context.Context, path string, opts *exploreOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	eng := engine.NewWazeroEngineWithConfig(ctx, &engine.Config{Interpreter: opts.interpreter})
	defer eng.Close(ctx)

	m := newExploreModel(ctx, eng, path)
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		m.width, m.height = w, h
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type funcInfo struct {
	entry fractal.Entry
	known bool // entry names a registered variant with a matching signature
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

type exploreModel struct {
	ctx      context.Context
	eng      *engine.WazeroEngine
	instance *engine.WazeroInstance
	err      error
	source   string
	path     string
	result   string
	preview  string
	funcs    []funcInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	width    int
	height   int
	state    modelState
}

func newExploreModel(ctx context.Context, eng *engine.WazeroEngine, path string) *exploreModel {
	source := path
	if source == "" {
		source = "all variants (in memory)"
	}
	return &exploreModel{
		ctx:    ctx,
		eng:    eng,
		path:   path,
		source: source,
		state:  stateSelectFunc,
		width:  80,
		height: 40,
	}
}

type loadedMsg struct {
	err      error
	instance *engine.WazeroInstance
	funcs    []funcInfo
}

type callResultMsg struct {
	err     error
	result  string
	preview string
}

func (m *exploreModel) Init() tea.Cmd {
	return m.load
}

func (m *exploreModel) load() tea.Msg {
	funcs, inst, err := loadExplore(m.ctx, m.eng, m.path)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{funcs: funcs, instance: inst}
}

// loadExplore compiles every variant when path is empty, otherwise reads and
// decodes the module at path, then instantiates it.
func loadExplore(ctx context.Context, eng *engine.WazeroEngine, path string) ([]funcInfo, *engine.WazeroInstance, error) {
	var (
		bin      []byte
		contract fractal.Contract
		funcs    []funcInfo
	)
	if path == "" {
		art, err := fractal.CompileAll()
		if err != nil {
			return nil, nil, err
		}
		bin, contract = art.Binary, art.Contract
		for _, e := range contract.Entries {
			funcs = append(funcs, funcInfo{entry: e, known: true})
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		decoded, err := wasm.ParseModule(data)
		if err != nil {
			return nil, nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "parse "+path)
		}
		bin, funcs = data, describeExports(decoded)
	}

	mod, err := eng.LoadModule(ctx, bin)
	if err != nil {
		return nil, nil, err
	}
	// the instance stays usable after its compiled module is closed
	defer mod.Close(ctx)
	if len(contract.Entries) > 0 {
		if err := mod.Check(contract); err != nil {
			return nil, nil, err
		}
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return nil, nil, err
	}
	return funcs, inst, nil
}

// describeExports recovers parameter names for exports that match a
// registered variant; anything else gets positional names.
func describeExports(m *wasm.Module) []funcInfo {
	funcs := make([]funcInfo, 0, len(m.Exports))
	for _, name := range m.ExportNames() {
		idx, sig, ok := m.ExportedFunc(name)
		if !ok {
			continue
		}
		e := fractal.Entry{Name: name, FuncIndex: idx, TypeIndex: m.Funcs[idx], Signature: sig}
		d, err := fractal.Lookup(name)
		known := err == nil && d.Signature().Equal(sig)
		if known {
			e.Family = d.Family
		}
		for i, t := range sig.Params {
			pname := fmt.Sprintf("arg%d", i)
			if known {
				pname = d.Layout().Params[i]
			}
			e.Params = append(e.Params, fractal.Param{Name: pname, Type: witType(t)})
		}
		if len(sig.Results) > 0 {
			e.Result = witType(sig.Results[0])
		}
		funcs = append(funcs, funcInfo{entry: e, known: known})
	}
	return funcs
}

func witType(t wasm.ValType) wit.Type {
	switch t {
	case wasm.ValI32:
		return wit.S32{}
	case wasm.ValI64:
		return wit.S64{}
	case wasm.ValF32:
		return wit.F32{}
	case wasm.ValF64:
		return wit.F64{}
	default:
		return nil
	}
}

func (m *exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, m.quit()

		case "q":
			if m.state != stateInputArgs {
				return m, m.quit()
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					break
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateInputArgs
				m.result, m.preview, m.err = "", "", nil
				return m, nil
			}

		case "tab", "shift+tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				step := 1
				if msg.String() == "shift+tab" {
					step = len(m.inputs) - 1
				}
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + step) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
				return m, nil
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result, m.preview, m.err = "", "", nil
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.funcs = msg.funcs
		m.instance = msg.instance

	case callResultMsg:
		m.result = msg.result
		m.preview = msg.preview
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *exploreModel) quit() tea.Cmd {
	if m.instance != nil {
		_ = m.instance.Close(m.ctx)
	}
	return tea.Quit
}

// prepareInputs builds one field per parameter, prefilled with the family's
// sample point for registered variants.
func (m *exploreModel) prepareInputs() {
	f := m.funcs[m.selected]
	var defaults []float64
	if f.known {
		defaults = sampleArgs(f.entry.Family)
	}

	m.inputs = make([]textinput.Model, len(f.entry.Params))
	for i, p := range f.entry.Params {
		ti := textinput.New()
		ti.Placeholder = fractal.TypeName(p.Type)
		ti.Prompt = p.Name + ": "
		ti.Width = 40
		if i < len(defaults) {
			ti.SetValue(strconv.FormatFloat(defaults[i], 'g', -1, 64))
		}
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *exploreModel) callFunction() tea.Msg {
	if m.instance == nil {
		return callResultMsg{err: fmt.Errorf("module not loaded")}
	}

	f := m.funcs[m.selected]
	args := make([]float64, len(m.inputs))
	for i, input := range m.inputs {
		v, err := parseArg(input.Value())
		if err != nil {
			return callResultMsg{err: fmt.Errorf("%s: %w", f.entry.Params[i].Name, err)}
		}
		args[i] = v
	}

	fn, err := m.instance.Function(f.entry.Name)
	if err != nil {
		return callResultMsg{err: err}
	}
	result, err := fn.Call(m.ctx, args...)
	if err != nil {
		return callResultMsg{err: err}
	}

	msg := callResultMsg{result: fmt.Sprintf("%s(%s) = %s", f.entry.Name, formatArgs(args), strconv.FormatFloat(result, 'g', -1, 64))}
	if f.known {
		msg.preview, msg.err = m.renderFor(f.entry, fn, args)
	}
	return msg
}

// renderFor sweeps the first two parameters across the family's plane and
// keeps the remaining arguments as entered.
func (m *exploreModel) renderFor(e fractal.Entry, fn *engine.Function, args []float64) (string, error) {
	p := escapePlane
	if e.Family == fractal.FamilyJulia {
		p = juliaPlane
	}
	cols, rows := previewSize(m.width, m.height)
	point := append([]float64(nil), args...)
	return renderPreview(cols, rows, p, args[len(args)-1], func(x, y float64) (float64, error) {
		point[0], point[1] = x, y
		return fn.Call(m.ctx, point...)
	})
}

func parseArg(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("value required")
	}
	return strconv.ParseFloat(s, 64)
}

func formatArgs(args []float64) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = strconv.FormatFloat(a, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}

func (m *exploreModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.funcs) == 0 {
		return "Loading module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("fractalc explore"))
	b.WriteString(" ")
	b.WriteString(m.source)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + m.formatFunc(f)))
			} else {
				b.WriteString("  " + m.formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.entry.Name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(fractal.TypeName(f.entry.Params[i].Type)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.entry.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
			if m.preview != "" {
				b.WriteString("\n\n")
				b.WriteString(colorizePreview(m.preview))
			}
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter edit • esc back • q quit"))
	}

	return b.String()
}

func (m *exploreModel) formatFunc(f funcInfo) string {
	params := make([]string, len(f.entry.Params))
	for i, p := range f.entry.Params {
		params[i] = p.Name + ": " + typeStyle.Render(fractal.TypeName(p.Type))
	}
	result := ""
	if f.entry.Result != nil {
		result = " -> " + typeStyle.Render(fractal.TypeName(f.entry.Result))
	}
	return funcStyle.Render(f.entry.Name) + "(" + strings.Join(params, ", ") + ")" + result
}
