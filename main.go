// The main package for the carwatch executable.
package main

import (
	"github.com/dealwatch/carwatch/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
