// Command adacomp compiles one source file to a listing of
// target-machine instructions.
package main

import (
	"fmt"
	"os"

	"github.com/skx/adacomp/cmd/adacomp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
