package dwarfgen

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/orizon-lang/dwarfgen/internal/dwarfunit"
	"github.com/orizon-lang/dwarfgen/internal/errors"
	"github.com/orizon-lang/dwarfgen/internal/logging"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

func loadShapes(t *testing.T) *metadata.Module {
	t.Helper()
	m, err := metadata.LoadModule("testdata/shapes.yaml")
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	return m
}

func generate(t *testing.T, p dwarfunit.Policy, workers int) *Result {
	t.Helper()
	res, err := Generate(context.Background(), loadShapes(t), Options{Policy: p, Workers: workers, Logger: logging.Nop()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return res
}

func TestGenerate_CompileUnitPerNode(t *testing.T) {
	res := generate(t, dwarfunit.DefaultPolicy(), 0)
	if len(res.CompileUnits) != 2 {
		t.Fatalf("compile units = %d, want 2", len(res.CompileUnits))
	}
	if len(res.TypeUnits) != 0 {
		t.Fatalf("type units without policy = %d", len(res.TypeUnits))
	}
	if res.EntryCount() == 0 {
		t.Fatalf("no entries built")
	}
	if res.Finder.SubprogramCount() != 2 {
		t.Fatalf("subprograms = %d, want 2", res.Finder.SubprogramCount())
	}
}

func TestGenerate_WorkersDoNotChangeOutput(t *testing.T) {
	p := dwarfunit.DefaultPolicy()
	p.TypeUnits = true
	seq, err := generate(t, p, 0).Encode(DefaultTextBase)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := 0; i < 4; i++ {
		par, err := generate(t, p, 4).Encode(DefaultTextBase)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if !bytes.Equal(seq.Info, par.Info) || !bytes.Equal(seq.Types, par.Types) || !bytes.Equal(seq.Str, par.Str) {
			t.Fatalf("parallel run %d differs from sequential output", i)
		}
	}
}

func TestGenerate_SharedTypeUnitIsDeduplicated(t *testing.T) {
	p := dwarfunit.DefaultPolicy()
	p.TypeUnits = true
	res := generate(t, p, 2)
	if len(res.TypeUnits) != 1 {
		t.Fatalf("type units = %d, want 1", len(res.TypeUnits))
	}
	if got := res.TypeUnits[0].Identifier(); got != "_ZTSN3geo5pointE" {
		t.Fatalf("type unit identifier = %q", got)
	}
}

func TestGenerate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, loadShapes(t), Options{Policy: dwarfunit.DefaultPolicy(), Logger: logging.Nop()})
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestGenerate_NilModule(t *testing.T) {
	_, err := Generate(context.Background(), nil, Options{Policy: dwarfunit.DefaultPolicy()})
	if !stderrors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

func TestObjectSections_SplitNames(t *testing.T) {
	p := dwarfunit.DefaultPolicy()
	p.SplitDwarf = true
	secs, err := generate(t, p, 0).Encode(DefaultTextBase)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	names := map[string]bool{}
	for _, s := range ObjectSections(secs, true) {
		names[s.Name] = true
	}
	if !names[".debug_info.dwo"] || !names[".debug_abbrev.dwo"] {
		t.Fatalf("split sections not renamed: %v", names)
	}
	if names[".debug_line.dwo"] {
		t.Fatalf("split output carries a line table")
	}
}
