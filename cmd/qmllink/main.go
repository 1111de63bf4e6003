// Command qmllink links QML projects and answers find-usages and
// completion queries from the command line.
package main

import (
	stderrors "errors"
	"fmt"
	"os"
)

const version = "0.3.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !stderrors.Is(err, errProblems) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
