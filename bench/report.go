package bench

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Report is the benchmark result. Wasm fields are nil when the wasm half
// did not run.
type Report struct {
	Variant       string   `json:"variant"`
	NativeMS      float64  `json:"native_ms"`
	WasmMS        *float64 `json:"wasm_ms"`
	Speedup       *float64 `json:"speedup"`
	GridSize      int      `json:"grid_size"`
	MaxIter       int      `json:"max_iter"`
	Workers       int      `json:"workers"`
	WasmAvailable bool     `json:"wasm_available"`
	WasmEstimated bool     `json:"wasm_estimated"`
	OverheadNS    float64  `json:"overhead_ns_per_call,omitempty"`
	Checksum      float64  `json:"checksum"`
}

func (r *Report) setWasm(wasmMS, overheadNS float64) {
	wasmMS = round(wasmMS, 3)
	speedup := round(r.NativeMS/wasmMS, 1)
	r.WasmMS = &wasmMS
	r.Speedup = &speedup
	r.WasmAvailable = true
	r.WasmEstimated = true
	r.OverheadNS = round(overheadNS, 1)
}

// Write encodes the report as indented JSON.
func (r *Report) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteFile writes the report to path, creating parent directories.
func (r *Report) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
