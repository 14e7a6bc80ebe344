// Command gen-prop-names generates a C++ code->name table for the
// CrDevicePropertyCode enum of CrDeviceProperty.h.
package main

import (
	"os"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/cli"
)

func main() {
	os.Exit(cli.Main("gen-prop-names", cli.Properties, os.Args[1:], os.Stdout, os.Stderr))
}
