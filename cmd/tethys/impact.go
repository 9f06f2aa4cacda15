package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/tethys"
)

var (
	flagImpactSymbol bool
	flagImpactDepth  int
	flagImpactLSP    bool
)

var impactCmd = &cobra.Command{
	Use:   "impact TARGET",
	Short: "Analyze impact of changes to a file or symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runImpact,
}

func init() {
	impactCmd.Flags().BoolVarP(&flagImpactSymbol, "symbol", "s", false, "treat TARGET as a symbol name instead of a file path")
	impactCmd.Flags().IntVarP(&flagImpactDepth, "depth", "d", 0, "maximum traversal depth (default 50)")
	impactCmd.Flags().BoolVar(&flagImpactLSP, "lsp", false, "with --symbol, merge direct callers found via the language server")
}

func runImpact(cmd *cobra.Command, args []string) error {
	ts, err := openTethys()
	if err != nil {
		return err
	}
	defer ts.Close()

	var depth *int
	if flagImpactDepth > 0 {
		depth = &flagImpactDepth
	}

	if flagImpactSymbol {
		return runSymbolImpact(ts, args[0], depth)
	}
	if flagImpactLSP {
		fmt.Println(dimColor.Sprint("--lsp only affects symbol impact; ignoring for file impact"))
	}

	result, err := ts.GetImpact(args[0], depth)
	if err != nil {
		return err
	}
	total := len(result.DirectDependents) + len(result.TransitiveDependents)
	if total == 0 {
		fmt.Printf("Nothing depends on %s\n", args[0])
		return nil
	}

	fmt.Printf("%s of %s:\n\n", titleColor.Sprint("Impact"), goodColor.Sprint(relWorkspace(ts, result.Target)))
	if len(result.DirectDependents) > 0 {
		fmt.Printf("  %s:\n", headerColor.Sprint("Direct dependents"))
		for _, d := range result.DirectDependents {
			uses := ""
			if len(d.SymbolsUsed) > 0 {
				uses = dimColor.Sprintf("  uses: %s", strings.Join(d.SymbolsUsed, ", "))
			}
			fmt.Printf("    %s  %s%s\n",
				relWorkspace(ts, d.Path),
				dimColor.Sprintf("%d ref%s", d.RefCount, plural(d.RefCount)),
				uses)
		}
	}
	if len(result.TransitiveDependents) > 0 {
		fmt.Printf("\n  %s:\n", headerColor.Sprint("Transitive dependents"))
		for _, d := range result.TransitiveDependents {
			fmt.Printf("    %s  %s\n", relWorkspace(ts, d.Path), dimColor.Sprintf("depth %d", d.Depth))
		}
	}
	fmt.Printf("\n%s: %d file%s affected\n", dimColor.Sprint("Total"), total, plural(total))
	return nil
}

func runSymbolImpact(ts *tethys.Tethys, name string, depth *int) error {
	deps, err := ts.GetSymbolImpact(name, depth)
	if err != nil {
		return err
	}

	if flagImpactLSP {
		callers, err := ts.GetCallersWithLSP(name)
		if err != nil {
			return err
		}
		seen := make(map[int64]bool, len(deps))
		for _, d := range deps {
			seen[d.Symbol.ID] = true
		}
		for _, c := range callers {
			if !seen[c.Symbol.ID] {
				deps = append(deps, tethys.SymbolDependent{Symbol: c.Symbol, Path: c.Path, Depth: 1})
			}
		}
	}

	if len(deps) == 0 {
		fmt.Printf("Nothing calls %q\n", name)
		return nil
	}
	fmt.Printf("%s of %s:\n\n", titleColor.Sprint("Symbol impact"), goodColor.Sprint(name))
	for _, d := range deps {
		fmt.Printf("  %s  %s  %s\n",
			d.Symbol.QualifiedName,
			dimColor.Sprint(relWorkspace(ts, d.Path)),
			dimColor.Sprintf("depth %d", d.Depth))
	}
	fmt.Printf("\n%s: %d symbol%s affected\n", dimColor.Sprint("Total"), len(deps), plural(len(deps)))
	return nil
}
