// Package cli is the shared front end of the gen-error-names and
// gen-prop-names commands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/config"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/extractor"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/fsx"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/generator"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/header"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/validator"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	ExitNoEnums = 3
)

// Kind selects which target of the config a command generates.
type Kind int

const (
	Errors Kind = iota
	Properties
)

func (k Kind) target(cfg *config.Config) config.Target {
	if k == Properties {
		return cfg.Properties
	}
	return cfg.Errors
}

// Main parses args, runs the generator and returns the process exit code.
func Main(name string, kind Kind, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	headerPath := fs.String("header", "", "path to the vendor header (required)")
	out := fs.String("out", "", "generated header path (required)")
	fs.StringVar(out, "o", "", "generated header path (shorthand)")
	configPath := fs.String("config", "", "config file (default: search ./enumgen.{json,yaml,yml,toml}, ./.enumgen.json, ~/.config/enumgen/config.json)")
	locator := fs.String("locator", "", "enum locator: lexer or syntax (default from config)")
	check := fs.Bool("check", false, "compare with the existing output instead of writing")
	force := fs.Bool("force", false, "write even when the output is up to date")
	timing := fs.String("timing", "", "write per-stage timing as JSONL to file")
	policyDir := fs.String("policy-dir", "", "directory with extra .rego lint rules")
	verbose := fs.Bool("v", false, "verbose diagnostics on stderr")
	var enumName *string
	if kind == Properties {
		enumName = fs.String("enum", "", "enum to extract (default CrDevicePropertyCode)")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}
	if *headerPath == "" || *out == "" || fs.NArg() > 0 {
		fmt.Fprintf(stderr, "Usage: %s --header <path> -o <out> [flags]\n", name)
		fs.PrintDefaults()
		return ExitUsage
	}

	log := logrus.New()
	log.SetOutput(stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(logrus.WarnLevel)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, cfgFile, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		var contract *validator.ContractError
		if errors.As(err, &contract) {
			for _, d := range contract.Details {
				fmt.Fprintf(stderr, "  %s\n", d)
			}
		}
		return ExitFailure
	}
	if cfgFile != "" {
		log.WithField("config", cfgFile).Debug("loaded configuration")
	}

	target := kind.target(cfg)
	if *locator != "" {
		target.Locator = *locator
	}
	if enumName != nil && *enumName != "" {
		target.Enum = *enumName
	}
	// --timing, then the environment, then the config file.
	timingPath := *timing
	if timingPath == "" && os.Getenv(generator.TimingEnv) == "" {
		timingPath = cfg.Timing
	}

	g := &generator.Generator{
		Target:     target,
		Header:     *headerPath,
		Out:        *out,
		Check:      *check,
		Force:      *force,
		LintRules:  cfg.Lint.Rules,
		PolicyDir:  *policyDir,
		TimingPath: timingPath,
		Log:        log,
	}
	report, err := g.Run(context.Background())
	if err != nil {
		return fail(stderr, kind, *headerPath, err)
	}

	fmt.Fprintln(stdout, summary(kind, report))
	return ExitOK
}

func fail(stderr io.Writer, kind Kind, headerPath string, err error) int {
	var notFound *extractor.EnumNotFoundError
	var stale *generator.StaleError
	switch {
	case header.IsNotFound(err):
		fmt.Fprintf(stderr, "Header not found: %s\n", headerPath)
	case errors.Is(err, extractor.ErrNoBlocks):
		fmt.Fprintf(stderr, "No anonymous enums found in %s\n", filepath.Base(headerPath))
		return ExitNoEnums
	case errors.As(err, &notFound):
		fmt.Fprintf(stderr, "Could not find enum %s\n", notFound.Name)
	case fsx.IsPathTypeConflict(err):
		fmt.Fprintf(stderr, "Cannot write output: %v\n", err)
	case errors.As(err, &stale):
		fmt.Fprintf(stderr, "%v\n", stale)
		for _, r := range stale.Delta.Removed {
			fmt.Fprintf(stderr, "  - %s 0x%04x %s\n", r.Table, r.Code, r.Name)
		}
		for _, r := range stale.Delta.Added {
			fmt.Fprintf(stderr, "  + %s 0x%04x %s\n", r.Table, r.Code, r.Name)
		}
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return ExitFailure
}

// summary renders the one-line result for stdout.
func summary(kind Kind, r *generator.Report) string {
	var counts string
	if kind == Properties {
		counts = fmt.Sprintf("%d entries from %s", r.Rows(), r.Header)
	} else {
		parts := make([]string, 0, len(r.Tables))
		for _, t := range r.Tables {
			label := t.Family
			if label == "" {
				label = t.Ident
			}
			parts = append(parts, fmt.Sprintf("%d %s", t.Count, plural(label)))
		}
		counts = strings.Join(parts, ", ") + "."
	}

	switch r.Status {
	case generator.StatusUpToDate:
		return fmt.Sprintf("%s is up to date with %s", r.Out, counts)
	case generator.StatusCurrent:
		return fmt.Sprintf("%s matches %s with %s", r.Out, filepath.Base(r.Header), counts)
	default:
		return fmt.Sprintf("Wrote %s with %s", r.Out, counts)
	}
}

func plural(word string) string {
	if strings.HasSuffix(word, "y") && len(word) > 1 && !strings.ContainsRune("aeiou", rune(word[len(word)-2])) {
		return word[:len(word)-1] + "ies"
	}
	return word + "s"
}
