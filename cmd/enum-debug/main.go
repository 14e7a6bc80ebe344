// Command enum-debug shows how a header is split into enum blocks by both
// locators and how each block's entries resolve.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/extractor"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/header"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/resolver"
)

type blockReport struct {
	Block   extractor.Block  `json:"block"`
	Entries []resolver.Entry `json:"entries"`
	Error   string           `json:"error,omitempty"`
}

type locatorReport struct {
	Locator string        `json:"locator"`
	Blocks  []blockReport `json:"blocks"`
	Error   string        `json:"error,omitempty"`
}

type debugReport struct {
	Header   string          `json:"header"`
	Mode     string          `json:"mode"`
	Locators []locatorReport `json:"locators"`
	Agree    bool            `json:"agree"`
	Tree     string          `json:"tree,omitempty"`
}

func main() {
	headerPath := flag.String("header", "", "header to inspect (required)")
	enumName := flag.String("enum", "", "named enum to locate (default: every anonymous enum)")
	jsonOut := flag.Bool("json", false, "print the report as JSON")
	tree := flag.Bool("tree", false, "include the tree-sitter s-expression of every enum")
	flag.Parse()

	if *headerPath == "" || flag.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: enum-debug --header <path> [--enum name] [--json] [--tree]")
		os.Exit(2)
	}

	src, err := header.Read(*headerPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	mode := extractor.AllAnonymous()
	if *enumName != "" {
		mode = extractor.NamedEnum(*enumName)
	}

	syntax := extractor.NewSyntaxLocator()
	defer syntax.Close()

	report := debugReport{Header: src.Path, Mode: mode.String()}
	report.Locators = append(report.Locators,
		inspect("lexer", extractor.New(), src.Text, mode),
		inspect("syntax", syntax, src.Text, mode),
	)
	report.Agree = sameBodies(report.Locators[0], report.Locators[1])
	if *tree {
		dump, err := syntax.DumpTree(src.Text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		report.Tree = dump
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
			os.Exit(1)
		}
	} else {
		printReport(report)
	}

	if !report.Agree {
		os.Exit(1)
	}
}

func inspect(name string, loc extractor.Locator, src string, mode extractor.Mode) locatorReport {
	lr := locatorReport{Locator: name}
	blocks, err := loc.Locate(src, mode)
	if err != nil {
		lr.Error = err.Error()
		return lr
	}
	for _, blk := range blocks {
		br := blockReport{Block: blk}
		res, err := resolver.Resolve(blk)
		if err != nil {
			br.Error = err.Error()
		}
		br.Entries = res.Entries
		lr.Blocks = append(lr.Blocks, br)
	}
	return lr
}

func sameBodies(a, b locatorReport) bool {
	if a.Error != b.Error || len(a.Blocks) != len(b.Blocks) {
		return false
	}
	for i := range a.Blocks {
		if a.Blocks[i].Block.Offset != b.Blocks[i].Block.Offset || a.Blocks[i].Block.Body != b.Blocks[i].Block.Body {
			return false
		}
	}
	return true
}

func printReport(r debugReport) {
	fmt.Printf("header: %s (%s)\n", r.Header, r.Mode)
	for _, lr := range r.Locators {
		fmt.Printf("\n=== %s ===\n", lr.Locator)
		if lr.Error != "" {
			fmt.Printf("  error: %s\n", lr.Error)
			continue
		}
		for i, br := range lr.Blocks {
			name := br.Block.Name
			if name == "" {
				name = "<anonymous>"
			}
			fmt.Printf("  block %d: %s line %d offset %d\n", i, name, br.Block.Line, br.Block.Offset)
			for _, e := range br.Entries {
				fmt.Printf("    %-48s %-12s line %-5d %s\n", e.Name, e.Value, e.Line, e.Kind)
			}
			if br.Error != "" {
				fmt.Printf("    error: %s\n", br.Error)
			}
		}
	}
	if r.Agree {
		fmt.Println("\nlocators agree")
	} else {
		fmt.Println("\nlocators DISAGREE")
	}
	if r.Tree != "" {
		fmt.Printf("\n=== syntax tree ===\n%s", r.Tree)
	}
}
