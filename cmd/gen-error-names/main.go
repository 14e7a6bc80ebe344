// Command gen-error-names generates C++ code->name tables for the
// CrError_*, CrWarning_* and CrNotify_* constants of CrError.h.
package main

import (
	"os"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/cli"
)

func main() {
	os.Exit(cli.Main("gen-error-names", cli.Errors, os.Args[1:], os.Stdout, os.Stderr))
}
