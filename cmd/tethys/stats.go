package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jward/tethys"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ts, err := openTethys()
	if err != nil {
		return err
	}
	defer ts.Close()

	dbSize := "not created"
	if info, err := os.Stat(ts.DBPath()); err == nil {
		dbSize = formatSize(info.Size())
	}

	stats, err := ts.GetStats()
	if err != nil {
		return err
	}

	fmt.Println(titleColor.Sprint("Tethys Index Statistics"))
	fmt.Println()
	fmt.Printf("  %s: %s (%s)\n", headerColor.Sprint("Database"), ts.DBPath(), dbSize)
	fmt.Println()

	fmt.Printf("  %s: %s total\n", headerColor.Sprint("Files"), goodColor.Sprint(stats.FileCount))
	languages := make([]tethys.Language, 0, len(stats.FilesByLanguage))
	for lang := range stats.FilesByLanguage {
		languages = append(languages, lang)
	}
	sort.Slice(languages, func(i, j int) bool { return languages[i] < languages[j] })
	for _, lang := range languages {
		fmt.Printf("    %s: %d\n", dimColor.Sprint(languageName(lang)), stats.FilesByLanguage[lang])
	}
	fmt.Println()

	fmt.Printf("  %s: %s total\n", headerColor.Sprint("Symbols"), goodColor.Sprint(stats.SymbolCount))
	type kindCount struct {
		kind  tethys.SymbolKind
		count int
	}
	kinds := make([]kindCount, 0, len(stats.SymbolsByKind))
	for kind, count := range stats.SymbolsByKind {
		kinds = append(kinds, kindCount{kind, count})
	}
	sort.Slice(kinds, func(i, j int) bool {
		if kinds[i].count != kinds[j].count {
			return kinds[i].count > kinds[j].count
		}
		return kinds[i].kind < kinds[j].kind
	})
	for _, kc := range kinds {
		fmt.Printf("    %s: %d\n", dimColor.Sprint(kindName(kc.kind)), kc.count)
	}
	fmt.Println()

	fmt.Printf("  %s: %s (%d resolved)\n", headerColor.Sprint("References"),
		goodColor.Sprint(stats.ReferenceCount), stats.ResolvedReferenceCount)
	fmt.Printf("  %s: %s\n", headerColor.Sprint("File Dependencies"), goodColor.Sprint(stats.FileDependencyCount))
	fmt.Printf("  %s: %s\n", headerColor.Sprint("Call Edges"), goodColor.Sprint(stats.CallEdgeCount))
	fmt.Printf("  %s: %s\n", headerColor.Sprint("Tests"), goodColor.Sprint(stats.TestCount))

	if stats.SkippedUnknownLanguages > 0 || stats.SkippedUnknownKinds > 0 {
		fmt.Println()
		fmt.Printf("  %s: database contains unrecognized entries\n", warnColor.Sprint("Warning"))
		if stats.SkippedUnknownLanguages > 0 {
			fmt.Printf("    %s files with unknown language\n", warnColor.Sprint(stats.SkippedUnknownLanguages))
		}
		if stats.SkippedUnknownKinds > 0 {
			fmt.Printf("    %s symbols with unknown kind\n", warnColor.Sprint(stats.SkippedUnknownKinds))
		}
		fmt.Printf("    %s\n", dimColor.Sprint("Database may be from a newer Tethys version. Consider reindexing."))
	}
	return nil
}

func languageName(lang tethys.Language) string {
	switch lang {
	case tethys.LangRust:
		return "Rust"
	case tethys.LangCSharp:
		return "C#"
	default:
		return string(lang)
	}
}

func kindName(kind tethys.SymbolKind) string {
	switch kind {
	case tethys.KindFunction:
		return "Functions"
	case tethys.KindMethod:
		return "Methods"
	case tethys.KindStruct:
		return "Structs"
	case tethys.KindClass:
		return "Classes"
	case tethys.KindEnum:
		return "Enums"
	case tethys.KindTrait:
		return "Traits"
	case tethys.KindInterface:
		return "Interfaces"
	case tethys.KindConst:
		return "Constants"
	case tethys.KindStatic:
		return "Statics"
	case tethys.KindModule:
		return "Modules"
	case tethys.KindTypeAlias:
		return "Type Aliases"
	case tethys.KindMacro:
		return "Macros"
	default:
		return string(kind)
	}
}
