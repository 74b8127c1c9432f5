// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the load, extract and convert stages for one ODIS
// file and reports progress to a Sink.
package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/odis2vcp/internal/convert"
	"github.com/pdiddy/odis2vcp/internal/odis"
	"github.com/pdiddy/odis2vcp/pkg/types"
)

// Journal records runs and the artifacts they write. manifest.Store
// implements it.
type Journal interface {
	BeginRun(ctx context.Context, info types.RunInfo) (string, error)
	RecordArtifact(ctx context.Context, runID string, a types.Artifact) error
	FinishRun(ctx context.Context, runID string, summary types.RunSummary, runErr error) error
}

// Options configures a Pipeline.
type Options struct {
	Mode types.OutputMode

	// Description is appended to artifact names. Empty means the input
	// file's base name.
	Description string

	// OutputDir receives the artifacts (default ".").
	OutputDir string

	// Workers above 1 converts records concurrently.
	Workers int

	// Overwrite allows replacing files that exist before the run.
	Overwrite bool

	// Journal, when set, records the run.
	Journal Journal
}

// OptionsFromConfig builds Options from the output section of the config.
func OptionsFromConfig(cfg types.OutputConfig) (Options, error) {
	mode, err := types.ParseOutputMode(cfg.Mode)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Mode:        mode,
		Description: cfg.Description,
		OutputDir:   cfg.Dir,
		Workers:     cfg.Workers,
		Overwrite:   cfg.Overwrite,
	}, nil
}

// Pipeline converts ODIS files. A Pipeline holds no per-run state and may
// run several files, one after another or concurrently.
type Pipeline struct {
	opts Options
	sink Sink
	conv convert.Converter
}

// New returns a Pipeline for opts. A nil sink discards all events.
func New(opts Options, sink Sink) (*Pipeline, error) {
	if sink == nil {
		sink = discard{}
	}
	conv, ok := convert.NewRegistry().Get(opts.Mode)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownMode, opts.Mode)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &Pipeline{opts: opts, sink: sink, conv: conv}, nil
}

// Run converts every record of the ODIS document at inputPath with the
// given mode ("raw", "structured" or "vcp") and description, writing
// artifacts to the working directory. It is the entry point front-ends
// call; progress and the final summary or failure go to sink.
func Run(ctx context.Context, mode, description, inputPath string, sink Sink) (types.RunSummary, error) {
	m, err := types.ParseOutputMode(mode)
	if err != nil {
		if sink != nil {
			sink.Error("Fatal error", err)
		}
		return types.RunSummary{}, err
	}
	p, err := New(Options{Mode: m, Description: description, Overwrite: true}, sink)
	if err != nil {
		return types.RunSummary{}, err
	}
	return p.Run(ctx, inputPath)
}

// DefaultDescription derives a description from the input file name.
func DefaultDescription(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Run converts one ODIS file. The first failure stops the run; artifacts
// written before it stay on disk. The returned summary is valid in both
// cases.
func (p *Pipeline) Run(ctx context.Context, inputPath string) (types.RunSummary, error) {
	description := p.opts.Description
	if description == "" {
		description = DefaultDescription(inputPath)
	}

	r := &run{
		sink:        p.sink,
		conv:        p.conv,
		writer:      convert.NewWriter(p.opts.OutputDir, p.opts.Overwrite),
		description: description,
		journal:     p.opts.Journal,
		workers:     p.opts.Workers,
	}

	if r.journal != nil {
		id, err := r.journal.BeginRun(ctx, types.RunInfo{
			InputPath:   inputPath,
			Mode:        p.opts.Mode,
			Description: description,
			OutputDir:   p.opts.OutputDir,
		})
		if err != nil {
			err = fmt.Errorf("recording run start: %w", err)
			p.sink.Error("Fatal error", err, "input", inputPath)
			return types.RunSummary{Mode: p.opts.Mode}, err
		}
		r.runID = id
	}

	summary, err := r.execute(ctx, inputPath)
	summary.Mode = p.opts.Mode

	if r.journal != nil {
		if jerr := r.journal.FinishRun(ctx, r.runID, summary, err); jerr != nil && err == nil {
			err = fmt.Errorf("recording run result: %w", jerr)
		}
	}

	if err != nil {
		p.sink.Error("Fatal error", err,
			"input", inputPath, "converted", summary.Converted, "total", summary.Total)
		return summary, err
	}

	p.sink.Info(
		fmt.Sprintf("%d of %d datasets extracted to %s format", summary.Converted, summary.Total, summary.Mode.Label()),
		"converted", summary.Converted,
		"total", summary.Total,
		"mode", string(summary.Mode),
		"modules", r.modules(),
	)
	return summary, nil
}

// errHalted stops extraction after a concurrent conversion has failed.
var errHalted = errors.New("run halted")

// attributeLabels names the attributes in progress events.
var attributeLabels = map[string]string{
	odis.AttrDiagnosticAddress: "Module",
	odis.AttrStartAddress:      "Start address",
	odis.AttrZDCName:           "ZDC name",
	odis.AttrZDCVersion:        "ZDC version",
	odis.AttrLogin:             "Login",
}

// run holds the state of one invocation.
type run struct {
	sink        Sink
	conv        convert.Converter
	writer      *convert.Writer
	description string
	journal     Journal
	runID       string
	workers     int

	converted atomic.Int64

	mu        sync.Mutex
	artifacts []types.Artifact
}

func (r *run) execute(ctx context.Context, inputPath string) (types.RunSummary, error) {
	var summary types.RunSummary

	doc, err := odis.Load(inputPath)
	if err != nil {
		return summary, err
	}

	x := odis.Extractor{OnAttribute: func(index int, name, value string) {
		r.sink.Info(attributeLabels[name], "record", index, "value", value)
	}}

	if r.workers <= 1 {
		summary.Total, err = x.Extract(doc, func(rec types.DatasetRecord) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path, err := r.claim(rec)
			if err != nil {
				return err
			}
			return r.convert(ctx, rec, path)
		})
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.workers)
		summary.Total, err = x.Extract(doc, func(rec types.DatasetRecord) error {
			if gctx.Err() != nil {
				return errHalted
			}
			path, err := r.claim(rec)
			if err != nil {
				return err
			}
			g.Go(func() error { return r.convert(gctx, rec, path) })
			return nil
		})
		werr := g.Wait()
		switch {
		case errors.Is(err, errHalted) && werr != nil:
			err = werr
		case errors.Is(err, errHalted):
			err = ctx.Err()
		case err == nil:
			err = werr
		}
	}

	summary.Converted = int(r.converted.Load())
	summary.Artifacts = r.paths()
	return summary, err
}

func (r *run) claim(rec types.DatasetRecord) (string, error) {
	return r.writer.Claim(rec, r.conv.Filename(rec, r.description))
}

func (r *run) convert(ctx context.Context, rec types.DatasetRecord, path string) error {
	data, err := r.conv.Render(rec)
	if err != nil {
		return err
	}
	if err := r.writer.Write(rec, path, data); err != nil {
		return err
	}

	size, err := convert.DecodedSize(rec.Payload)
	if err != nil {
		return types.NewRecordError(types.ErrDecode, rec, err)
	}
	a := types.Artifact{
		Path:              path,
		RecordIndex:       rec.Index,
		DiagnosticAddress: rec.DiagnosticAddress,
		StartAddress:      rec.StartAddress,
		ZDCName:           rec.ZDCName,
		ZDCVersion:        rec.ZDCVersion,
		Size:              size,
	}
	if r.journal != nil {
		if err := r.journal.RecordArtifact(ctx, r.runID, a); err != nil {
			return fmt.Errorf("recording artifact %s: %w", path, err)
		}
	}

	r.converted.Add(1)
	r.mu.Lock()
	r.artifacts = append(r.artifacts, a)
	r.mu.Unlock()

	r.sink.Info(fmt.Sprintf("Extracting %s data to %q", r.conv.Format().Label(), path),
		"record", rec.Index, "bytes", size)
	return nil
}

// paths returns the written artifact paths in record order.
func (r *run) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	slices.SortFunc(r.artifacts, func(a, b types.Artifact) int {
		return cmp.Compare(a.RecordIndex, b.RecordIndex)
	})
	return lo.Map(r.artifacts, func(a types.Artifact, _ int) string { return a.Path })
}

// modules returns the distinct diagnostic addresses converted.
func (r *run) modules() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Uniq(lo.Map(r.artifacts, func(a types.Artifact, _ int) string { return a.DiagnosticAddress }))
}
