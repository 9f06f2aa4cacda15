package tethys

import (
	"fmt"

	"github.com/jward/tethys/internal/lang"
)

// PanicPoint is a call site that can panic at runtime: an unwrap or expect
// call, tagged with its enclosing definition.
type PanicPoint struct {
	Path             string `json:"path"`
	Line             int    `json:"line"`
	Column           int    `json:"column"`
	Kind             string `json:"kind"` // the method name: unwrap, expect
	ContainingSymbol string `json:"containing_symbol"`
	IsTest           bool   `json:"is_test"`
}

// GetPanicPoints returns panic-prone call sites. Sites inside test
// functions are excluded unless includeTests is set. fileFilter, when
// non-empty, keeps only files whose path contains the substring.
func (t *Tethys) GetPanicPoints(includeTests bool, fileFilter string) ([]PanicPoint, error) {
	rows, err := t.store.PanicPoints(lang.PanicMethods, includeTests, fileFilter)
	if err != nil {
		return nil, fmt.Errorf("tethys: panic points: %w", err)
	}
	points := make([]PanicPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, PanicPoint{
			Path:             row.Path,
			Line:             row.Line,
			Column:           row.Column,
			Kind:             row.Method,
			ContainingSymbol: row.ContainingSymbol,
			IsTest:           row.IsTest,
		})
	}
	return points, nil
}

// CountPanicPoints returns (production, test) counts of panic-prone sites.
func (t *Tethys) CountPanicPoints() (int, int, error) {
	prod, test, err := t.store.CountPanicPoints(lang.PanicMethods)
	if err != nil {
		return 0, 0, fmt.Errorf("tethys: count panic points: %w", err)
	}
	return prod, test, nil
}
