// Command cowdb manages a copy-on-write key-value store file.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cowdb:", err)
		os.Exit(1)
	}
}
