// Package dwarfgen drives debug information generation for a module: it
// discovers the debug nodes, builds one compile unit per compile unit node
// and finalizes the result.
package dwarfgen

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/dwarfgen/internal/debuginfo"
	"github.com/orizon-lang/dwarfgen/internal/dwarfunit"
	"github.com/orizon-lang/dwarfgen/internal/errors"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
	"github.com/orizon-lang/dwarfgen/internal/metrics"
)

// Options configure one generation.
type Options struct {
	Policy dwarfunit.Policy
	// Workers bounds the number of compile units populated at once. Zero
	// or one builds them in order on the calling goroutine.
	Workers int
	Logger  zerolog.Logger
}

// Result is a finalized generation.
type Result struct {
	Module       *metadata.Module
	Context      *dwarfunit.Context
	Finder       *debuginfo.Finder
	CompileUnits []*dwarfunit.CompileUnit
	TypeUnits    []*dwarfunit.TypeUnit
}

// EntryCount returns the number of entries across all units.
func (r *Result) EntryCount() int {
	n := 0
	for _, cu := range r.CompileUnits {
		n += cu.EntryCount()
	}
	for _, tu := range r.TypeUnits {
		n += tu.EntryCount()
	}
	return n
}

// Generate builds and finalizes the debug information of m. Units are
// created in compile unit order before population starts, so unit
// numbering and the output do not depend on Workers.
func Generate(ctx context.Context, m *metadata.Module, opts Options) (res *Result, err error) {
	start := time.Now()
	log := opts.Logger
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.ObserveGenerate(status, time.Since(start).Seconds())
	}()

	if m == nil {
		return nil, errors.InvalidInput("module", "nil module")
	}
	if v := debuginfo.DebugMetadataVersion(m); v != 0 && v != 3 {
		log.Warn().Uint64("version", v).Msg("unexpected debug metadata version")
	}

	finder := debuginfo.NewFinder()
	finder.SetLogger(log)
	finder.ProcessModule(m)
	metrics.RecordFinder(finder.CompileUnitCount(), finder.SubprogramCount(),
		finder.GlobalVariableCount(), finder.TypeCount(), finder.ScopeCount())
	log.Debug().
		Int("compile_units", finder.CompileUnitCount()).
		Int("subprograms", finder.SubprogramCount()).
		Int("types", finder.TypeCount()).
		Msg("debug nodes collected")

	dctx, err := dwarfunit.NewContext(opts.Policy, m, finder.TypeIdentifierMap(m), log)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	cus := make([]*dwarfunit.CompileUnit, 0, finder.CompileUnitCount())
	for _, id := range finder.CompileUnits() {
		cu, err := newCompileUnit(dctx, id)
		if err != nil {
			return nil, err
		}
		cus = append(cus, cu)
	}

	if opts.Workers <= 1 {
		for _, cu := range cus {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := buildUnit(cu, m); err != nil {
				return nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		sem := make(chan struct{}, opts.Workers)
		for _, cu := range cus {
			cu := cu
			g.Go(func() error {
				select {
				case sem <- struct{}{}:
				case <-gctx.Done():
					return gctx.Err()
				}
				defer func() { <-sem }()
				return buildUnit(cu, m)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	if err := dctx.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}
	res = &Result{
		Module:       m,
		Context:      dctx,
		Finder:       finder,
		CompileUnits: dctx.CompileUnits(),
		TypeUnits:    dctx.TypeUnits(),
	}
	metrics.RecordUnits(len(res.CompileUnits), len(res.TypeUnits), res.EntryCount())
	log.Info().
		Str("module", m.Name).
		Int("entries", res.EntryCount()).
		Dur("elapsed", time.Since(start)).
		Msg("debug info generated")
	return res, nil
}

func newCompileUnit(dctx *dwarfunit.Context, id metadata.NodeID) (cu *dwarfunit.CompileUnit, err error) {
	defer recoverContract(&err)
	return dctx.NewCompileUnit(id), nil
}

func buildUnit(cu *dwarfunit.CompileUnit, m *metadata.Module) (err error) {
	defer recoverContract(&err)
	cu.Build(m)
	return nil
}

// recoverContract turns a contract violation raised while building into an
// error. Other panics propagate.
func recoverContract(err *error) {
	r := recover()
	if r == nil {
		return
	}
	se, ok := r.(*errors.StandardError)
	if !ok {
		panic(r)
	}
	*err = se
}
