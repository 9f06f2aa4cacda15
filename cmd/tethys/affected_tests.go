package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/tethys"
)

var (
	flagTestsNamesOnly bool
	flagTestsJSON      bool
)

var affectedTestsCmd = &cobra.Command{
	Use:   "affected-tests [FILES...]",
	Short: "List tests affected by changes to the given files",
	RunE:  runAffectedTests,
}

func init() {
	affectedTestsCmd.Flags().BoolVar(&flagTestsNamesOnly, "names-only", false, "print one test name per line (machine readable)")
	affectedTestsCmd.Flags().BoolVar(&flagTestsJSON, "json", false, "print JSON output")
}

func runAffectedTests(cmd *cobra.Command, args []string) error {
	ts, err := openTethys()
	if err != nil {
		return err
	}
	defer ts.Close()

	if len(args) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: no files specified\n", warnColor.Sprint("warning"))
		return nil
	}

	affected, err := ts.GetAffectedTests(args)
	if err != nil {
		return err
	}

	if flagTestsJSON {
		type jsonTest struct {
			QualifiedName string `json:"qualified_name"`
			Path          string `json:"path"`
			Line          int    `json:"line"`
		}
		out := struct {
			ChangedFiles []string   `json:"changed_files"`
			Tests        []jsonTest `json:"tests"`
		}{ChangedFiles: args, Tests: []jsonTest{}}
		for _, test := range affected {
			file, err := ts.GetFileByID(test.FileID)
			if err != nil {
				return err
			}
			path := ""
			if file != nil {
				path = file.Path
			}
			out.Tests = append(out.Tests, jsonTest{
				QualifiedName: test.QualifiedName,
				Path:          path,
				Line:          test.Line,
			})
		}
		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("encode affected tests: %w", err)
		}
		fmt.Println(string(encoded))
		return nil
	}

	if len(affected) == 0 {
		if !flagTestsNamesOnly {
			fmt.Println("No tests affected by changes to the specified files.")
		}
		return nil
	}

	if flagTestsNamesOnly {
		for _, test := range affected {
			fmt.Println(test.QualifiedName)
		}
		return nil
	}

	fmt.Printf("Tests affected by changes to %s file%s:\n\n",
		titleColor.Sprint(len(args)), plural(len(args)))

	byFile := make(map[int64][]*tethys.Symbol)
	for _, test := range affected {
		byFile[test.FileID] = append(byFile[test.FileID], test)
	}
	for fileID, tests := range byFile {
		display := fmt.Sprintf("(unknown file_id: %d)", fileID)
		if file, err := ts.GetFileByID(fileID); err == nil && file != nil {
			display = relWorkspace(ts, file.Path)
		}
		fmt.Printf("  %s:\n", headerColor.Sprint(display))
		for _, test := range tests {
			fmt.Printf("    %s %s\n", dimColor.Sprint("-"), goodColor.Sprint(test.QualifiedName))
		}
		fmt.Println()
	}

	fmt.Printf("%s: %d test%s across %d file%s\n",
		dimColor.Sprint("Total"),
		len(affected), plural(len(affected)),
		len(byFile), plural(len(byFile)))
	return nil
}
