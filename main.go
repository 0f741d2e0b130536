// The main package for the pagelens executable.
package main

import (
	"github.com/pagelens/pagelens/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
