// Package cli implements the dwarfgen command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orizon-lang/dwarfgen/internal/config"
	"github.com/orizon-lang/dwarfgen/internal/dwarfgen"
	"github.com/orizon-lang/dwarfgen/internal/logging"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

// Version information, overridden at link time.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	CommitSHA = "unknown"
)

// VersionInfo contains version and build information.
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	CommitSHA string `json:"commit_sha"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
}

// GetVersionInfo returns structured version information.
func GetVersionInfo() *VersionInfo {
	return &VersionInfo{
		Version:   Version,
		BuildDate: BuildDate,
		CommitSHA: CommitSHA,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// PrintVersion writes version information as text or JSON.
func PrintVersion(w io.Writer, toolName string, jsonOutput bool) error {
	info := GetVersionInfo()
	if jsonOutput {
		data, err := json.MarshalIndent(map[string]interface{}{
			"tool":         toolName,
			"version_info": info,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal version info: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	title := color.New(color.FgCyan, color.Bold)
	title.Fprintf(w, "%s ", toolName)
	fmt.Fprintf(w, "v%s\n", info.Version)
	title.Fprint(w, "Build Date: ")
	fmt.Fprintln(w, info.BuildDate)
	if info.CommitSHA != "unknown" && info.CommitSHA != "" {
		title.Fprint(w, "Commit: ")
		fmt.Fprintln(w, info.CommitSHA)
	}
	title.Fprint(w, "Go Version: ")
	fmt.Fprintln(w, info.GoVersion)
	title.Fprint(w, "Platform: ")
	fmt.Fprintf(w, "%s/%s\n", info.Platform, info.Arch)
	return nil
}

// app is the state shared by every command once flags and configuration
// are resolved.
type app struct {
	configFile string
	noColor    bool

	cfg   *config.Config
	log   zerolog.Logger
	runID string
}

func (a *app) setup(cfg *config.Config, stderr io.Writer) {
	a.cfg = cfg
	a.runID = uuid.NewString()
	lc := cfg.Logging()
	lc.Output = stderr
	a.log = logging.New(lc).With().Str("run_id", a.runID).Logger()
	if a.noColor {
		color.NoColor = true
	}
}

func (a *app) options() (dwarfgen.Options, error) {
	p, err := a.cfg.Policy()
	if err != nil {
		return dwarfgen.Options{}, err
	}
	return dwarfgen.Options{Policy: p, Workers: a.cfg.Workers, Logger: a.log}, nil
}

// generate loads the module at path and generates its debug information.
func (a *app) generate(ctx context.Context, path string) (*dwarfgen.Result, error) {
	m, err := metadata.LoadModule(path)
	if err != nil {
		return nil, err
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	return dwarfgen.Generate(ctx, m, opts)
}
