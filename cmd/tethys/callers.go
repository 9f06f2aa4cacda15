package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/tethys"
)

var (
	flagCallersTransitive bool
	flagCallersLSP        bool
)

var callersCmd = &cobra.Command{
	Use:   "callers SYMBOL",
	Short: "Show callers of a symbol",
	Long:  "Shows the functions that call the given symbol. SYMBOL may be a qualified name (AuthService::authenticate) or a short name.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCallers,
}

func init() {
	callersCmd.Flags().BoolVarP(&flagCallersTransitive, "transitive", "t", false, "include transitive callers (callers of callers)")
	callersCmd.Flags().BoolVar(&flagCallersLSP, "lsp", false, "merge callers found via the language server")
}

func runCallers(cmd *cobra.Command, args []string) error {
	ts, err := openTethys()
	if err != nil {
		return err
	}
	defer ts.Close()

	name := args[0]

	if flagCallersTransitive {
		deps, err := ts.GetSymbolImpact(name, nil)
		if err != nil {
			return err
		}
		if len(deps) == 0 {
			fmt.Printf("No callers of %q\n", name)
			return nil
		}
		fmt.Printf("%s of %s:\n\n", titleColor.Sprint("Transitive callers"), goodColor.Sprint(name))
		for _, d := range deps {
			depth := dimColor.Sprintf("depth %d", d.Depth)
			fmt.Printf("  %s  %s  %s\n", d.Symbol.QualifiedName, dimColor.Sprint(relWorkspace(ts, d.Path)), depth)
		}
		return nil
	}

	var callers []tethys.Caller
	if flagCallersLSP {
		callers, err = ts.GetCallersWithLSP(name)
	} else {
		callers, err = ts.GetCallers(name)
	}
	if err != nil {
		return err
	}
	if len(callers) == 0 {
		fmt.Printf("No callers of %q\n", name)
		return nil
	}

	fmt.Printf("%s of %s:\n\n", titleColor.Sprint("Callers"), goodColor.Sprint(name))
	for _, c := range callers {
		calls := dimColor.Sprintf("%d call%s", c.CallCount, plural(c.CallCount))
		fmt.Printf("  %s  %s:%d  %s\n",
			c.Symbol.QualifiedName,
			dimColor.Sprint(relWorkspace(ts, c.Path)), c.Symbol.Line+1,
			calls)
	}
	fmt.Printf("\n%s: %d caller%s\n", dimColor.Sprint("Total"), len(callers), plural(len(callers)))
	return nil
}
