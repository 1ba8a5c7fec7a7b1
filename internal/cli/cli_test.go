package cli

import (
	"bytes"
	"context"
	"debug/elf"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/orizon-lang/dwarfgen/internal/die"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

const shapes = "../dwarfgen/testdata/shapes.yaml"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--log-level=error", "--config="+emptyConfig(t)))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dwarfgen.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuild_WritesELF(t *testing.T) {
	obj := filepath.Join(t.TempDir(), "shapes.o")
	out, err := run(t, "build", shapes, "-o", obj, "--type-units")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(out, "2 compile units, 1 type units") {
		t.Fatalf("output %q", out)
	}
	f, err := elf.Open(obj)
	if err != nil {
		t.Fatalf("elf.Open: %v", err)
	}
	defer f.Close()
	for _, name := range []string{".debug_info", ".debug_abbrev", ".debug_types", ".debug_line", ".debug_str"} {
		if f.Section(name) == nil {
			t.Fatalf("missing %s", name)
		}
	}
}

func TestBuild_SplitNamesDwo(t *testing.T) {
	obj := filepath.Join(t.TempDir(), "shapes.dwo")
	if _, err := run(t, "build", shapes, "-o", obj, "--split", "--dwarf-version=5"); err != nil {
		t.Fatalf("build: %v", err)
	}
	f, err := elf.Open(obj)
	if err != nil {
		t.Fatalf("elf.Open: %v", err)
	}
	defer f.Close()
	if f.Section(".debug_info.dwo") == nil {
		t.Fatalf("missing .debug_info.dwo")
	}
}

func TestDump_TextAndJSON(t *testing.T) {
	out, err := run(t, "dump", shapes)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !strings.Contains(out, "DW_TAG_compile_unit") || !strings.Contains(out, "DW_TAG_subprogram") {
		t.Fatalf("dump output %q", out)
	}

	out, err = run(t, "dump", shapes, "--json", "--unit=1")
	if err != nil {
		t.Fatalf("dump --json: %v", err)
	}
	var snaps []die.EntrySnapshot
	if err := json.Unmarshal([]byte(out), &snaps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Tag != "DW_TAG_compile_unit" {
		t.Fatalf("snapshots %+v", snaps)
	}

	if _, err := run(t, "dump", shapes, "--unit=99"); err == nil {
		t.Fatalf("expected error for unknown unit")
	}
}

func TestFind_ListsNodes(t *testing.T) {
	out, err := run(t, "find", shapes, "--identifiers")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	for _, want := range []string{"compile units (2)", "subprograms (2)", "_ZTSN3geo5pointE ->"} {
		if !strings.Contains(out, want) {
			t.Fatalf("find output lacks %q:\n%s", want, out)
		}
	}
}

func TestStrip_RemovesDebugInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stripped.yaml")
	if _, err := run(t, "strip", shapes, "-o", path); err != nil {
		t.Fatalf("strip: %v", err)
	}
	m, err := metadata.LoadModule(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(m.CompileUnits()) != 0 {
		t.Fatalf("compile unit anchor survived")
	}
	for _, f := range m.Functions {
		f.Instructions(func(inst *metadata.Instruction) {
			if inst.IsDebugIntrinsic() {
				t.Fatalf("debug intrinsic survived in %s", f.Name)
			}
		})
	}
}

func TestVersion_JSON(t *testing.T) {
	out, err := run(t, "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var v struct {
		Tool        string      `json:"tool"`
		VersionInfo VersionInfo `json:"version_info"`
	}
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Tool != "dwarfgen" || v.VersionInfo.Version != Version {
		t.Fatalf("version %+v", v)
	}
}

func TestRoot_RejectsBadConfig(t *testing.T) {
	if _, err := run(t, "dump", shapes, "--dwarf-version=9"); err == nil {
		t.Fatalf("expected error for DWARF version 9")
	}
}
