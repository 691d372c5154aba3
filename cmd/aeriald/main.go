// Command aeriald runs the aerial daemon as a standalone process for init
// systems that want a dedicated binary. It is equivalent to "aerial daemon".
package main

import (
	"context"
	"fmt"
	"os"

	"aerial/internal/config"
	"aerial/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "aeriald: load config: %v\n", err)
		os.Exit(1)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		fmt.Fprintf(os.Stderr, "aeriald: %v\n", err)
		os.Exit(1)
	}
}
