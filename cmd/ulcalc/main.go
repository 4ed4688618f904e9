// Command ulcalc computes Bayesian credible upper limits on event rates
// from the sensitivities of independent searches.
package main

import (
	"os"

	"github.com/obsidianstack/upperlimit/cmd/ulcalc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
