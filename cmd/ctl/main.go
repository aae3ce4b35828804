// Command cpu_throttle_ctl talks to a running cpu_throttle daemon over its control
// socket.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// The daemon's own ERROR reply has already been printed.
		if !errors.Is(err, errDaemon) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
