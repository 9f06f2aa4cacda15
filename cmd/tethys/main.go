package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jward/tethys"
)

var (
	flagWorkspace string
	flagVerbose   int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		printErrorChain(err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tethys",
	Short:         "Code intelligence cache and query interface",
	Long:          "Tethys indexes source files with tree-sitter and answers navigation and impact queries: callers, dependents, cycles, affected tests, panic points.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "w", "", "workspace root directory (defaults to current directory)")
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "verbose output (repeat: -v, -vv, -vvv)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(callersCmd)
	rootCmd.AddCommand(impactCmd)
	rootCmd.AddCommand(cyclesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(reachableCmd)
	rootCmd.AddCommand(affectedTestsCmd)
	rootCmd.AddCommand(panicPointsCmd)
}

// setupLogging maps -v repetitions to slog levels on stderr.
func setupLogging() {
	level := slog.LevelWarn
	switch {
	case flagVerbose == 1:
		level = slog.LevelInfo
	case flagVerbose >= 2:
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// resolveWorkspace returns the absolute workspace root from the flag or the
// current directory.
func resolveWorkspace() (string, error) {
	dir := flagWorkspace
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve current directory: %w", err)
		}
		dir = cwd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve workspace %q: %w", dir, err)
	}
	return abs, nil
}

// openTethys opens the index for the selected workspace.
func openTethys(opts ...tethys.Option) (*tethys.Tethys, error) {
	root, err := resolveWorkspace()
	if err != nil {
		return nil, err
	}
	opts = append(opts, tethys.WithLogger(slog.Default()))
	return tethys.Open(root, opts...)
}

// printErrorChain prints the top-level error and walks its cause chain,
// each cause dimmed.
func printErrorChain(err error) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", color.New(color.FgRed, color.Bold).Sprint("error"), err)
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", color.New(color.Faint).Sprint("caused by"), cause)
	}
}
