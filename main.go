// The main package for the schemeharvest executable.
package main

import (
	"github.com/janseva-labs/schemeharvest/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
