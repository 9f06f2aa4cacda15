package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/tethys"
)

var (
	flagSearchKind  string
	flagSearchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search for symbols by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&flagSearchKind, "kind", "k", "", "filter by symbol kind (function, method, struct, class, enum, trait, interface, ...)")
	searchCmd.Flags().IntVarP(&flagSearchLimit, "limit", "l", tethys.DefaultSearchLimit, "maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ts, err := openTethys()
	if err != nil {
		return err
	}
	defer ts.Close()

	var kind *tethys.SymbolKind
	if flagSearchKind != "" {
		k := tethys.SymbolKind(flagSearchKind)
		kind = &k
	}

	symbols, err := ts.SearchSymbolsFiltered(args[0], kind, flagSearchLimit)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		fmt.Printf("No symbols matching %q\n", args[0])
		return nil
	}

	fmt.Printf("%s for %q:\n\n", titleColor.Sprint("Search results"), args[0])
	for _, sym := range symbols {
		file, err := ts.GetFileByID(sym.FileID)
		if err != nil {
			return err
		}
		location := "?"
		if file != nil {
			location = fmt.Sprintf("%s:%d", relWorkspace(ts, file.Path), sym.Line+1)
		}
		fmt.Printf("  %s %s  %s\n",
			dimColor.Sprintf("%-10s", sym.Kind),
			goodColor.Sprint(sym.QualifiedName),
			dimColor.Sprint(location))
	}
	fmt.Printf("\n%s: %d symbol%s\n", dimColor.Sprint("Total"), len(symbols), plural(len(symbols)))
	return nil
}

// relWorkspace renders a path relative to the workspace root when possible.
func relWorkspace(ts *tethys.Tethys, path string) string {
	if rel, err := filepath.Rel(ts.Workspace(), path); err == nil && !filepath.IsAbs(rel) {
		return rel
	}
	return path
}
