package config

import (
	"fmt"
	"io"
	"os"
)

var exitWriter io.Writer = os.Stderr

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(exitWriter, format+"\n", args...)
	os.Exit(1)
}
