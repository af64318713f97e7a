// Package analyzer implements the Dependency Analyzer (SPEC_FULL §4.1):
// producing a cell's read/write symbol sets from its source text.
package analyzer

import "github.com/carter293/reactive-notebook/notebook"

// Result holds a cell's derived read and write sets. It is a pure function
// of (kind, source) — calling Analyze twice on the same input yields
// identical sets (SPEC_FULL §8 "Analyzer" idempotence property).
type Result struct {
	Reads  map[string]struct{}
	Writes map[string]struct{}
}

// Analyze dispatches to the Python or SQL extractor by cell kind. Analysis
// never returns an error; failures surface at execution time. The Python
// scanner does not detect syntax errors, so a syntactically invalid Python
// cell gets a best-effort Result that is not necessarily empty.
func Analyze(kind notebook.Kind, source string) Result {
	switch kind {
	case notebook.KindSQL:
		return analyzeSQL(source)
	case notebook.KindPython:
		return analyzePython(source)
	default:
		return Result{Reads: map[string]struct{}{}, Writes: map[string]struct{}{}}
	}
}

// Apply writes the analysis result onto the cell's Reads/Writes fields.
func Apply(c *notebook.Cell) {
	r := Analyze(c.Kind, c.Source)
	c.Reads = r.Reads
	c.Writes = r.Writes
}
