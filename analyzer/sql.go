package analyzer

import "regexp"

// templateRe matches {identifier} templates in SQL source (SPEC_FULL §4.1:
// "extracted by a restricted regex on word characters").
var templateRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// analyzeSQL extracts the distinct template identifiers as the read set.
// SQL cells never define symbols, so the write set is always empty.
func analyzeSQL(source string) Result {
	reads := map[string]struct{}{}
	for _, m := range templateRe.FindAllStringSubmatch(source, -1) {
		reads[m[1]] = struct{}{}
	}
	return Result{Reads: reads, Writes: map[string]struct{}{}}
}
