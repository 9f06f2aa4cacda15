package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Detect circular file dependencies",
	Args:  cobra.NoArgs,
	RunE:  runCycles,
}

func runCycles(cmd *cobra.Command, args []string) error {
	ts, err := openTethys()
	if err != nil {
		return err
	}
	defer ts.Close()

	cycles, err := ts.DetectCycles()
	if err != nil {
		return err
	}
	if len(cycles) == 0 {
		fmt.Println(goodColor.Sprint("No dependency cycles found"))
		return nil
	}

	fmt.Printf("%s: %d\n\n", titleColor.Sprint("Dependency cycles"), len(cycles))
	for i, cycle := range cycles {
		fmt.Printf("  %s (%d files):\n", headerColor.Sprintf("Cycle %d", i+1), len(cycle.Files))
		for _, path := range cycle.Files {
			fmt.Printf("    %s\n", relWorkspace(ts, path))
		}
		fmt.Println()
	}
	return nil
}
