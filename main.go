// The main package for the shopagent executable.
package main

import (
	"github.com/synthmart/shopagent/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
