package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/tethys"
)

// maxReachablePerDepth bounds the symbols displayed per depth level.
const maxReachablePerDepth = 15

var flagReachableMaxDepth int

var reachableCmd = &cobra.Command{
	Use:   "reachable SYMBOL {forward|backward}",
	Short: "Show symbols reachable from (or reaching) a symbol",
	Args:  cobra.ExactArgs(2),
	RunE:  runReachable,
}

func init() {
	reachableCmd.Flags().IntVar(&flagReachableMaxDepth, "max-depth", 0, "maximum traversal depth (default 50)")
}

func runReachable(cmd *cobra.Command, args []string) error {
	ts, err := openTethys()
	if err != nil {
		return err
	}
	defer ts.Close()

	var depth *int
	if flagReachableMaxDepth > 0 {
		depth = &flagReachableMaxDepth
	}

	var result *tethys.ReachabilityResult
	switch strings.ToLower(args[1]) {
	case "forward", "f":
		result, err = ts.GetForwardReachable(args[0], depth)
	case "backward", "b":
		result, err = ts.GetBackwardReachable(args[0], depth)
	default:
		return fmt.Errorf("invalid direction %q: use 'forward' (or 'f') or 'backward' (or 'b')", args[1])
	}
	if err != nil {
		return err
	}

	if result.IsEmpty() {
		desc := "can reach"
		if result.Direction == tethys.Backward {
			desc = "can be reached from"
		}
		fmt.Printf("No symbols %s %q (max depth: %d)\n", desc, result.Source.QualifiedName, result.MaxDepth)
		return nil
	}

	title := "Forward reachability"
	if result.Direction == tethys.Backward {
		title = "Backward reachability"
	}
	fmt.Printf("%s from %s:\n\n", headerColor.Sprint(title), titleColor.Sprint(result.Source.QualifiedName))

	byDepth := make(map[int][]tethys.ReachableSymbol)
	for _, r := range result.Reachable {
		byDepth[r.Depth] = append(byDepth[r.Depth], r)
	}
	for depth := 1; depth <= result.MaxDepth; depth++ {
		symbols, ok := byDepth[depth]
		if !ok {
			continue
		}
		label := "transitive"
		if depth == 1 {
			label = "direct"
		}
		fmt.Printf("  %s %s (%d):\n", warnColor.Sprintf("Depth %d", depth), dimColor.Sprint(label), len(symbols))

		sort.Slice(symbols, func(i, j int) bool {
			return symbols[i].Symbol.QualifiedName < symbols[j].Symbol.QualifiedName
		})
		for i, r := range symbols {
			if i == maxReachablePerDepth {
				fmt.Printf("    %s ... and %d more at depth %d\n", dimColor.Sprint("•"), len(symbols)-maxReachablePerDepth, depth)
				break
			}
			fmt.Printf("    %s %s %s\n",
				dimColor.Sprint("•"),
				r.Symbol.QualifiedName,
				dimColor.Sprintf("(%s:%d)", relWorkspace(ts, r.Path), r.Symbol.Line+1))
		}
	}

	files := make(map[int64]bool)
	for _, r := range result.Reachable {
		files[r.Symbol.FileID] = true
	}
	fmt.Println()
	fmt.Printf("%s: %s symbols across %d files (max depth: %d)\n",
		dimColor.Sprint("Summary"),
		goodColor.Sprint(len(result.Reachable)), len(files), result.MaxDepth)
	return nil
}
