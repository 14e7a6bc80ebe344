package generator

// The generator runs one header through the whole pipeline:
//
//	read -> extract -> resolve -> categorize -> validate -> lint -> render -> write
//
// Every stage is a pure function of the previous stage's output except the
// first (reads the header) and the last (writes or compares the artifact).
// Nothing is written unless every earlier stage succeeded.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/config"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/emitter"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/extractor"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/fsx"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/header"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/policy"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/resolver"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/tables"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/validator"
)

// fingerprintVersion changes whenever the rendered layout changes, so
// headers produced by an older layout are regenerated.
const fingerprintVersion = "enumgen/1"

// Status is the outcome of a successful run.
type Status string

const (
	StatusWritten  Status = "written"
	StatusUpToDate Status = "up-to-date"
	StatusCurrent  Status = "current"
)

// Generator renders one target from one header.
type Generator struct {
	// Target describes the header layout
	Target config.Target

	// Header is the input path
	Header string

	// Out is the generated header path
	Out string

	// Check compares with Out instead of writing
	Check bool

	// Force writes even when Out is up to date
	Force bool

	// LintRules maps rule names to severities
	LintRules map[string]string

	// PolicyDir holds extra .rego files
	PolicyDir string

	// TimingPath receives JSONL stage timings
	TimingPath string

	// Log receives diagnostics; defaults to the logrus standard logger
	Log logrus.FieldLogger
}

// TableCount is the number of rows in one emitted table.
type TableCount struct {
	Ident  string `json:"ident"`
	Family string `json:"family,omitempty"`
	Count  int    `json:"count"`
}

// Report summarizes a run.
type Report struct {
	Header      string             `json:"header"`
	Out         string             `json:"out"`
	Status      Status             `json:"status"`
	Fingerprint string             `json:"fingerprint"`
	Blocks      int                `json:"blocks"`
	Entries     int                `json:"entries"`
	Tables      []TableCount       `json:"tables"`
	Dropped     []tables.Dropped   `json:"dropped,omitempty"`
	Violations  []policy.Violation `json:"violations,omitempty"`
}

// Rows is the total row count across tables.
func (r *Report) Rows() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Count
	}
	return n
}

// StaleError is returned by a check run when Out differs from what would
// be generated.
type StaleError struct {
	Out     string
	Missing bool
	Delta   tables.Delta
}

func (e *StaleError) Error() string {
	if e.Missing {
		return fmt.Sprintf("%s does not exist", e.Out)
	}
	if e.Delta.Empty() {
		return fmt.Sprintf("%s is stale (layout differs)", e.Out)
	}
	return fmt.Sprintf("%s is stale: %d row(s) added, %d removed", e.Out, len(e.Delta.Added), len(e.Delta.Removed))
}

func (g *Generator) logger() logrus.FieldLogger {
	if g.Log != nil {
		return g.Log
	}
	return logrus.StandardLogger()
}

// Run executes the pipeline.
func (g *Generator) Run(ctx context.Context) (report *Report, err error) {
	if g.Header == "" || g.Out == "" {
		return nil, fmt.Errorf("header and output paths are required")
	}
	if err := g.Target.Check(); err != nil {
		return nil, fmt.Errorf("target layout: %w", err)
	}

	log := g.logger().WithField("header", g.Header)
	runStart := time.Now()
	timing := newTimingRecorder(runStart, resolveTimingPath(g.TimingPath))
	defer timing.Close()
	if terr := timing.Err(); terr != nil {
		log.WithError(terr).Warn("timing output disabled")
	}
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		timing.RecordStage("total", runStart, status)
	}()

	stage := func(name string, start time.Time, err error) {
		status := "ok"
		if err != nil {
			status = "error"
		}
		timing.RecordStage(name, start, status)
	}

	report = &Report{Header: g.Header, Out: g.Out}

	start := time.Now()
	src, err := header.Read(g.Header)
	stage("read", start, err)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	blocks, err := g.extract(src.Text)
	stage("extract", start, err)
	if err != nil {
		return nil, err
	}
	report.Blocks = len(blocks)
	log.WithField("blocks", len(blocks)).Debug("located enum blocks")

	start = time.Now()
	results, err := resolver.ResolveAll(blocks)
	stage("resolve", start, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.Header, err)
	}
	entries := resolver.Flatten(results)
	report.Entries = len(entries)
	if log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		for _, e := range entries {
			log.WithFields(logrus.Fields{"line": e.Line, "kind": e.Kind}).Debugf("%s = %s", e.Name, e.Value)
		}
	}

	start = time.Now()
	artifact, dropped, err := g.categorize(entries)
	stage("categorize", start, err)
	if err != nil {
		return nil, err
	}
	report.Dropped = dropped
	for _, ts := range g.Target.Tables {
		t, _ := artifact.Table(ts.Ident)
		report.Tables = append(report.Tables, TableCount{Ident: ts.Ident, Family: ts.Family, Count: len(t.Codes)})
	}
	log.WithFields(logrus.Fields{"entries": len(entries), "dropped": len(dropped)}).Debug("categorized entries")

	g.decorate(artifact, report.Rows())
	artifact.Fingerprint = g.fingerprint(src.Raw)
	report.Fingerprint = artifact.Fingerprint

	start = time.Now()
	err = g.validate(artifact)
	stage("validate", start, err)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	lint, err := g.lint(ctx, entries, dropped)
	stage("lint", start, err)
	if err != nil {
		return nil, err
	}
	report.Violations = lint.Violations
	log.WithFields(logrus.Fields{
		"violations": lint.Summary.TotalViolations,
		"errors":     lint.Summary.Errors,
		"warnings":   lint.Summary.Warnings,
		"info":       lint.Summary.Info,
	}).Debug("lint finished")
	for _, v := range lint.Violations {
		fields := logrus.Fields{"rule": v.Rule, "line": v.Line}
		switch v.Severity {
		case policy.SeverityError:
			log.WithFields(fields).Error(v.Message)
		case policy.SeverityWarning:
			log.WithFields(fields).Warn(v.Message)
		default:
			log.WithFields(fields).Info(v.Message)
		}
	}
	if err := lint.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	rendered, err := emitter.Render(artifact)
	stage("render", start, err)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", g.Out, err)
	}

	start = time.Now()
	report.Status, err = g.write(log, artifact, rendered)
	stage("write", start, err)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (g *Generator) extract(text string) ([]extractor.Block, error) {
	mode := extractor.AllAnonymous()
	if g.Target.Enum != "" {
		mode = extractor.NamedEnum(g.Target.Enum)
	}
	switch g.Target.Locator {
	case "", "lexer":
		return extractor.Extract(text, mode)
	case "syntax":
		loc := extractor.NewSyntaxLocator()
		defer loc.Close()
		return loc.Locate(text, mode)
	default:
		return nil, fmt.Errorf("unknown locator %q", g.Target.Locator)
	}
}

// categorize builds the artifact tables from resolved entries.
func (g *Generator) categorize(entries []resolver.Entry) (*emitter.Artifact, []tables.Dropped, error) {
	artifact := &emitter.Artifact{
		Banner:    g.Target.Banner,
		Includes:  g.Target.Includes,
		Namespace: g.Target.Namespace,
		CodeType:  g.Target.CodeType,
	}
	for _, acc := range g.Target.Accessors {
		artifact.Accessors = append(artifact.Accessors, emitter.Accessor{Func: acc.Func, Chain: acc.Chain, Default: acc.Default})
	}

	if len(g.Target.Families) == 0 {
		m, dropped := tables.Single(entries)
		artifact.Tables = []emitter.Table{{Ident: g.Target.Tables[0].Ident, Codes: m}}
		return artifact, dropped, nil
	}

	families := make([]tables.Family, 0, len(g.Target.Families))
	for _, f := range g.Target.Families {
		fam, err := tables.NewFamily(f.Tag, f.Pattern)
		if err != nil {
			return nil, nil, err
		}
		families = append(families, fam)
	}
	fm, dropped := tables.ByFamily(entries, families)
	for _, ts := range g.Target.Tables {
		artifact.Tables = append(artifact.Tables, emitter.Table{Ident: ts.Ident, Codes: fm.Get(ts.Family)})
	}
	return artifact, dropped, nil
}

// decorate adds the source comment and macros.
func (g *Generator) decorate(a *emitter.Artifact, rows int) {
	if g.Target.SourceMacro != "" {
		a.Comments = append(a.Comments, "SOURCE: "+g.Header)
		a.Defines = append(a.Defines, emitter.Define{Name: g.Target.SourceMacro, Value: emitter.Quote(g.Header)})
	}
	if g.Target.CountMacro != "" {
		a.Defines = append(a.Defines, emitter.Define{Name: g.Target.CountMacro, Value: strconv.Itoa(rows)})
	}
}

// fingerprint hashes everything the rendered header depends on.
func (g *Generator) fingerprint(raw []byte) string {
	h := xxhash.New()
	_, _ = h.WriteString(fingerprintVersion)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(g.Header)
	_, _ = h.WriteString("\x00")
	if layout, err := json.Marshal(g.Target); err == nil {
		_, _ = h.Write(layout)
	}
	_, _ = h.WriteString("\x00")
	_, _ = h.Write(raw)
	return fmt.Sprintf("xxh64:%016x", h.Sum64())
}

func (g *Generator) validate(a *emitter.Artifact) error {
	v, err := validator.New()
	if err != nil {
		return err
	}
	if err := v.ValidateArtifact(a); err != nil {
		return fmt.Errorf("generated tables for %s: %w", g.Out, err)
	}
	return nil
}

func (g *Generator) lint(ctx context.Context, entries []resolver.Entry, dropped []tables.Dropped) (*policy.Result, error) {
	engine, err := policy.New(ctx, g.PolicyDir)
	if err != nil {
		return nil, err
	}
	return engine.Evaluate(ctx, policy.Input{
		Target:  g.Target.Namespace,
		Header:  g.Header,
		Entries: entries,
		Dropped: dropped,
		Rules:   g.LintRules,
	})
}

// write stores rendered at Out, or compares against it in check mode. An
// existing Out is only left alone when it is byte-identical to rendered.
func (g *Generator) write(log logrus.FieldLogger, a *emitter.Artifact, rendered []byte) (Status, error) {
	if err := fsx.CheckDestination(g.Out); err != nil {
		return "", err
	}
	existing, err := os.ReadFile(g.Out)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("reading %s: %w", g.Out, err)
	}

	if g.Check {
		if !exists {
			return "", &StaleError{Out: g.Out, Missing: true}
		}
		if bytes.Equal(existing, rendered) {
			return StatusCurrent, nil
		}
		stale := &StaleError{Out: g.Out}
		if parsed, perr := emitter.Parse(existing); perr == nil {
			stale.Delta = tables.ComputeDelta(parsed.Rows, a.Snapshot())
		}
		return "", stale
	}

	if exists && !g.Force {
		if bytes.Equal(existing, rendered) {
			return StatusUpToDate, nil
		}
		if parsed, perr := emitter.Parse(existing); perr == nil && parsed.Fingerprint == a.Fingerprint {
			log.WithField("out", g.Out).Warn("output was modified after generation; rewriting")
		}
	}

	if err := fsx.WriteFileAtomic(g.Out, rendered, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", g.Out, err)
	}
	return StatusWritten, nil
}
