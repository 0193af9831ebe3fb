package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// An interrupt during serve already printed its own shutdown line.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "mixdown: %v\n", err)
		}
		os.Exit(1)
	}
}
