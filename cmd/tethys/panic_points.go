package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jward/tethys"
)

var (
	flagPanicIncludeTests bool
	flagPanicJSON         bool
	flagPanicFile         string
)

var panicPointsCmd = &cobra.Command{
	Use:   "panic-points",
	Short: "List unwrap/expect call sites that can panic",
	Args:  cobra.NoArgs,
	RunE:  runPanicPoints,
}

func init() {
	panicPointsCmd.Flags().BoolVar(&flagPanicIncludeTests, "include-tests", false, "include panic points inside test functions")
	panicPointsCmd.Flags().BoolVar(&flagPanicJSON, "json", false, "print JSON output")
	panicPointsCmd.Flags().StringVar(&flagPanicFile, "file", "", "only files whose path contains this substring")
}

func runPanicPoints(cmd *cobra.Command, args []string) error {
	ts, err := openTethys()
	if err != nil {
		return err
	}
	defer ts.Close()

	prodCount, testCount, err := ts.CountPanicPoints()
	if err != nil {
		return err
	}
	points, err := ts.GetPanicPoints(flagPanicIncludeTests, flagPanicFile)
	if err != nil {
		return err
	}

	if flagPanicJSON {
		out := struct {
			Summary struct {
				ProductionCount int  `json:"production_count"`
				TestCount       int  `json:"test_count"`
				IncludeTests    bool `json:"include_tests"`
			} `json:"summary"`
			PanicPoints []tethys.PanicPoint `json:"panic_points"`
		}{PanicPoints: points}
		out.Summary.ProductionCount = prodCount
		out.Summary.TestCount = testCount
		out.Summary.IncludeTests = flagPanicIncludeTests

		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("encode panic points: %w", err)
		}
		fmt.Println(string(encoded))
		return nil
	}

	fmt.Println(titleColor.Sprint("Panic Points Analysis"))
	fmt.Println()
	fmt.Printf("%s:\n", headerColor.Sprint("Summary"))
	fmt.Printf("  %-20s%s\n", dimColor.Sprint("Production code:"),
		goodColor.Sprintf("%d panic point%s", prodCount, plural(prodCount)))
	if flagPanicIncludeTests {
		fmt.Printf("  %-20s%s\n", dimColor.Sprint("Test code:"),
			warnColor.Sprintf("%d panic point%s", testCount, plural(testCount)))
	} else {
		fmt.Printf("  %-20s%s\n", dimColor.Sprint("Test code:"),
			dimColor.Sprintf("%d (use --include-tests to show)", testCount))
	}
	fmt.Println()

	if len(points) == 0 {
		fmt.Println(dimColor.Sprint("No panic points found matching the filters."))
		return nil
	}

	byKind := make(map[string][]tethys.PanicPoint)
	for _, p := range points {
		byKind[p.Kind] = append(byKind[p.Kind], p)
	}
	kinds := make([]string, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		codeType := "production code"
		if flagPanicIncludeTests {
			codeType = "code"
		}
		fmt.Printf("%s in %s:\n", warnColor.Sprintf("%s()", kind), codeType)
		for _, p := range byKind[kind] {
			testTag := ""
			if p.IsTest {
				testTag = dimColor.Sprint(" [test]")
			}
			symbol := p.ContainingSymbol
			if symbol == "" {
				symbol = "(top level)"
			}
			fmt.Printf("  %s:%s  in %s%s\n",
				relWorkspace(ts, p.Path),
				titleColor.Sprint(p.Line+1),
				goodColor.Sprintf("%s()", symbol),
				testTag)
		}
		fmt.Println()
	}
	return nil
}
