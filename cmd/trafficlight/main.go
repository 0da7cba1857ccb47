// Command trafficlight runs a timed traffic-light controller and prints the
// colors it shows.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
