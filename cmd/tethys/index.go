package main

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jward/tethys"
)

var (
	flagRebuild    bool
	flagIndexLSP   bool
	flagLSPTimeout uint64
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index source files in the workspace",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagRebuild, "rebuild", false, "rebuild index from scratch (clears existing data)")
	indexCmd.Flags().BoolVar(&flagIndexLSP, "lsp", false, "refine unresolved references via a language server")
	indexCmd.Flags().Uint64Var(&flagLSPTimeout, "lsp-timeout", 0, "max seconds to wait for the language server's workspace load (default 120, env TETHYS_LSP_TIMEOUT)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	root, err := resolveWorkspace()
	if err != nil {
		return err
	}
	fmt.Printf("%s %s...\n", titleColor.Sprint("Indexing"), root)

	var opts []tethys.Option
	var bar *progressbar.ProgressBar
	if stderrIsTTY() {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("indexing"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		)
		opts = append(opts, tethys.WithProgress(func(string) {
			_ = bar.Add(1)
		}))
	}

	ts, err := openTethys(opts...)
	if err != nil {
		return err
	}
	defer ts.Close()

	indexOpts := tethys.IndexOptions{
		WithLSP:           flagIndexLSP,
		LSPTimeoutSeconds: flagLSPTimeout,
	}

	var stats *tethys.IndexingStats
	if flagRebuild {
		fmt.Println(warnColor.Sprint("Rebuilding index from scratch"))
		stats, err = ts.RebuildWithOptions(indexOpts)
	} else {
		stats, err = ts.IndexWithOptions(indexOpts)
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("%s %d files, found %d symbols, %d references\n",
		goodBold.Sprint("Indexed"),
		stats.FilesIndexed, stats.SymbolsFound, stats.ReferencesFound)
	fmt.Printf("%s: %s\n", dimColor.Sprint("Duration"), stats.Duration.Round(time.Millisecond))

	if stats.FilesSkipped > 0 {
		fmt.Printf("%s: %d file%s (unsupported language)\n",
			warnColor.Sprint("Skipped"), stats.FilesSkipped, plural(stats.FilesSkipped))
	}
	if flagIndexLSP {
		fmt.Printf("%s: %d reference%s resolved via LSP\n",
			dimColor.Sprint("LSP"), stats.LspResolvedCount, plural(stats.LspResolvedCount))
	}
	if len(stats.Errors) > 0 {
		fmt.Printf("%s: %d file%s failed\n",
			warnColor.Sprint("Errors"), len(stats.Errors), plural(len(stats.Errors)))
		for _, e := range stats.Errors {
			fmt.Printf("  %s: %s (%s)\n", e.Path, e.Message, dimColor.Sprint(string(e.Kind)))
		}
	}
	return nil
}
