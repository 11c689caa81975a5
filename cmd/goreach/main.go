// Command goreach runs episodes of the goal-conditioned reaching
// environment from the command line, using a planar arm backend and a
// uniform random policy for data collection.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "goreach",
		Short: "Run a torque-controlled reaching environment",
		Long: "goreach drives a goal-conditioned reaching environment " +
			"backed by a planar arm simulator. The run command collects " +
			"episodes with a uniform random policy and tracks episodic " +
			"returns and success rates; the eval command scores the policy " +
			"on fixed targets.",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCommand(), newEvalCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
