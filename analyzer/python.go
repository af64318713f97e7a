package analyzer

import (
	"regexp"
	"strings"
)

// analyzePython extracts a cell's read/write sets from Python source using
// a scope-tracking scanner (SPEC_FULL §4.1). This is not a full CPython
// parser — no third-party Go/Python AST library exists anywhere in the
// retrieval corpus this repo was built from (see DESIGN.md) — but it
// follows the same scoping rules a real parser would apply:
//
//   - assignment targets at the cell's own statement scope are writes;
//   - names referenced anywhere that are not bound by an enclosing
//     function/lambda/comprehension scope (and are not cell-level writes)
//     are reads;
//   - names bound only inside a nested def/lambda/comprehension do not
//     leak into the cell's write set, and references to them inside that
//     scope do not count as cell-level reads.
//
// A syntactically broken cell never panics, but the scanner does not detect
// syntax errors: for invalid source it returns whatever names its line
// patterns pick up, so the result is not necessarily empty.
func analyzePython(source string) Result {
	defer func() { recover() }() // scanner must never panic the cell mutation path

	lines := toLogicalLines(source)
	sc := &scanner{
		reads:    map[string]struct{}{},
		writes:   map[string]struct{}{},
		bound:    map[string]int{}, // name -> nesting depth at which it's bound (0 = cell scope)
		augReads: map[string]struct{}{},
	}
	sc.scanBlock(lines, 0)

	for b := range sc.writes {
		if _, keep := sc.augReads[b]; keep {
			continue
		}
		delete(sc.reads, b)
	}
	for name := range builtins {
		delete(sc.reads, name)
		delete(sc.writes, name)
	}
	return Result{Reads: sc.reads, Writes: sc.writes}
}

// logicalLine is one statement's header text plus its indentation level.
type logicalLine struct {
	indent int
	text   string
}

// toLogicalLines joins backslash/bracket continuations into single logical
// lines and records each one's leading-whitespace indent width.
func toLogicalLines(source string) []logicalLine {
	raw := strings.Split(stripComments(source), "\n")
	var out []logicalLine
	depth := 0
	var cur strings.Builder
	indent := 0
	started := false

	flush := func() {
		if started {
			out = append(out, logicalLine{indent: indent, text: strings.TrimSpace(cur.String())})
		}
		cur.Reset()
		started = false
	}

	for _, raw := range raw {
		trimmed := strings.TrimRight(raw, " \t\r")
		if !started {
			t := strings.TrimLeft(trimmed, " \t")
			if t == "" {
				continue
			}
			indent = len(trimmed) - len(t)
			started = true
		}
		line := strings.TrimSuffix(trimmed, "\\")
		cont := strings.HasSuffix(trimmed, "\\")
		cur.WriteString(line)
		cur.WriteByte(' ')
		depth += bracketDelta(line)
		if depth <= 0 && !cont {
			depth = 0
			flush()
		}
	}
	flush()
	return out
}

var stringRe = regexp.MustCompile(`(?s)("""|''').*?("""|''')|("([^"\\]|\\.)*")|('([^'\\]|\\.)*')`)

// stripComments blanks out `#`-to-end-of-line comments and neutralizes
// string contents (so identifiers inside string literals are never
// mistaken for names), without disturbing line counts.
func stripComments(source string) string {
	source = stringRe.ReplaceAllStringFunc(source, func(m string) string {
		return strings.Repeat("_", len(m))
	})
	lines := strings.Split(source, "\n")
	for i, l := range lines {
		if idx := strings.Index(l, "#"); idx >= 0 {
			lines[i] = l[:idx]
		}
	}
	return strings.Join(lines, "\n")
}

func bracketDelta(s string) int {
	d := 0
	for _, r := range s {
		switch r {
		case '(', '[', '{':
			d++
		case ')', ']', '}':
			d--
		}
	}
	return d
}

var nameRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

type scanner struct {
	reads  map[string]struct{}
	writes map[string]struct{}
	// bound tracks names local to the scope currently being scanned;
	// restored on scope exit via snapshot/restore in scanBlock callers.
	bound map[string]int
	// augReads holds cell-scope names that are both read and written by an
	// augmented assignment (`total += delta` reads `total` before rebinding
	// it); analyzePython's write/read dedup must not strip these back out.
	augReads map[string]struct{}
}

// scanBlock scans logical lines belonging to one block (the cell body, or
// a nested def/class body), at nesting depth `depth` (0 = cell scope).
// Lines whose indent is strictly greater than the block's own first-line
// indent belong to a nested sub-block headed by that line.
func (sc *scanner) scanBlock(lines []logicalLine, depth int) {
	i := 0
	for i < len(lines) {
		line := lines[i]
		header := line.text
		i++

		isDef := reDef.MatchString(header)
		isClass := reClass.MatchString(header)

		// collect this header's own body (contiguous following lines with
		// strictly greater indent)
		var body []logicalLine
		if strings.HasSuffix(strings.TrimSpace(stripInlineSuffix(header)), ":") || isDef || isClass {
			for i < len(lines) && lines[i].indent > line.indent {
				body = append(body, lines[i])
				i++
			}
		}

		switch {
		case isDef:
			name, params := parseDefHeader(header)
			if depth == 0 {
				sc.writes[name] = struct{}{}
			}
			sc.withNestedScope(params, func() { sc.scanBlock(body, depth+1) })
		case isClass:
			name := parseClassHeader(header)
			if depth == 0 {
				sc.writes[name] = struct{}{}
			}
			sc.withNestedScope(nil, func() { sc.scanBlock(body, depth+1) })
		default:
			sc.scanStatement(header, depth)
			// non-def/class compound statements (if/for/while/with/try)
			// share the cell's own scope per SPEC_FULL ("for loop variables
			// at statement scope" bind into the cell, not a sub-scope).
			sc.scanBlock(body, depth)
		}
	}
}

func (sc *scanner) withNestedScope(boundNames []string, f func()) {
	saved := make(map[string]int, len(sc.bound))
	for n, d := range sc.bound {
		saved[n] = d
	}
	for _, n := range boundNames {
		if _, exists := sc.bound[n]; !exists {
			sc.bound[n] = 1
		}
	}
	f()
	sc.bound = saved
}

var (
	reDef      = regexp.MustCompile(`^(async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)`)
	reClass    = regexp.MustCompile(`^class\s+([A-Za-z_][A-Za-z0-9_]*)`)
	reImport   = regexp.MustCompile(`^import\s+(.+)$`)
	reFromImp  = regexp.MustCompile(`^from\s+\S+\s+import\s+(.+)$`)
	reFor      = regexp.MustCompile(`^(async\s+)?for\s+(.+?)\s+in\s+(.+?):\s*$`)
	reWith     = regexp.MustCompile(`^(async\s+)?with\s+(.+?):\s*$`)
	reAssign   = regexp.MustCompile(`^([^=<>!]+?)(\+=|-=|\*=|/=|//=|%=|\*\*=|&=|\|=|\^=|>>=|<<=|:=|=)(?:[^=]|$)`)
	reLambda   = regexp.MustCompile(`lambda\s*([^:]*):`)
	reComp     = regexp.MustCompile(`for\s+([A-Za-z_][A-Za-z0-9_,()\s*]*?)\s+in\b`)
)

func parseDefHeader(header string) (name string, params []string) {
	m := reDef.FindStringSubmatch(header)
	if m == nil {
		return "", nil
	}
	name = m[2]
	for _, p := range strings.Split(m[3], ",") {
		p = strings.TrimSpace(p)
		p = strings.TrimPrefix(p, "*")
		p = strings.TrimPrefix(p, "*")
		if p == "" {
			continue
		}
		if idx := strings.IndexAny(p, ":="); idx >= 0 {
			p = p[:idx]
		}
		p = strings.TrimSpace(p)
		if nameRe.MatchString(p) {
			params = append(params, nameRe.FindString(p))
		}
	}
	return name, params
}

func parseClassHeader(header string) string {
	m := reClass.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return m[1]
}

func stripInlineSuffix(s string) string { return s }

// scanStatement handles one non-compound-header logical line: assignment
// targets become writes (at cell scope only, depth==0), every other name
// reference becomes a read unless locally bound (parameter/comprehension/
// lambda-bound in an enclosing scope we're currently inside).
func (sc *scanner) scanStatement(line string, depth int) {
	targets, augmented := sc.extractWriteTargets(line, depth)

	if depth == 0 {
		for n := range targets {
			sc.writes[n] = struct{}{}
		}
	}

	// lambdas and comprehensions introduce their own tiny bound-name scope
	// for the remainder of the line; collect their spans first.
	localBound := map[string]struct{}{}
	for _, m := range reLambda.FindAllStringSubmatch(line, -1) {
		for _, p := range strings.Split(m[1], ",") {
			p = strings.TrimSpace(p)
			if idx := strings.IndexAny(p, ":="); idx >= 0 {
				p = p[:idx]
			}
			if nameRe.MatchString(p) {
				localBound[nameRe.FindString(p)] = struct{}{}
			}
		}
	}
	for _, m := range reComp.FindAllStringSubmatch(line, -1) {
		for _, n := range nameRe.FindAllString(m[1], -1) {
			localBound[n] = struct{}{}
		}
	}

	for _, n := range nameRe.FindAllString(line, -1) {
		if isKeyword(n) || builtins[n] {
			continue
		}
		if _, ok := sc.bound[n]; ok {
			continue
		}
		if _, ok := localBound[n]; ok {
			continue
		}
		if depth == 0 {
			if _, isTarget := targets[n]; isTarget {
				if augmented {
					sc.reads[n] = struct{}{}
					sc.augReads[n] = struct{}{}
				}
				continue
			}
			sc.reads[n] = struct{}{}
		} else {
			// inside a nested def/class body: a bare reference may still
			// be an assignment target of this inner scope; extractWriteTargets
			// handles that at this same depth via the recursive scanBlock
			// call, so here we only need to avoid re-adding names this
			// inner scope itself writes.
			if _, isTarget := targets[n]; isTarget {
				sc.bound[n] = depth + 1
				continue
			}
			sc.reads[n] = struct{}{}
		}
	}
}

// extractWriteTargets finds the LHS names of assignments, for-targets,
// with-as targets, and import bindings on one logical line. The second
// return value reports whether these targets are bound by an augmented
// assignment (`+=` and friends), which reads its target before rebinding
// it, unlike a plain `=` or walrus `:=`.
func (sc *scanner) extractWriteTargets(line string, depth int) (map[string]struct{}, bool) {
	targets := map[string]struct{}{}

	if m := reFor.FindStringSubmatch(line); m != nil {
		for _, n := range nameRe.FindAllString(m[2], -1) {
			targets[n] = struct{}{}
		}
		return targets, false
	}
	if m := reWith.FindStringSubmatch(line); m != nil {
		for _, part := range strings.Split(m[2], ",") {
			if idx := strings.Index(part, " as "); idx >= 0 {
				asName := strings.TrimSpace(part[idx+4:])
				if nameRe.MatchString(asName) {
					targets[nameRe.FindString(asName)] = struct{}{}
				}
			}
		}
		return targets, false
	}
	if m := reImport.FindStringSubmatch(line); m != nil {
		for _, part := range strings.Split(m[1], ",") {
			part = strings.TrimSpace(part)
			if idx := strings.Index(part, " as "); idx >= 0 {
				targets[strings.TrimSpace(part[idx+4:])] = struct{}{}
			} else {
				first := strings.SplitN(part, ".", 2)[0]
				targets[strings.TrimSpace(first)] = struct{}{}
			}
		}
		return targets, false
	}
	if m := reFromImp.FindStringSubmatch(line); m != nil {
		for _, part := range strings.Split(m[1], ",") {
			part = strings.TrimSpace(part)
			part = strings.Trim(part, "()")
			part = strings.TrimSpace(part)
			if idx := strings.Index(part, " as "); idx >= 0 {
				targets[strings.TrimSpace(part[idx+4:])] = struct{}{}
			} else if part != "" && part != "*" {
				targets[part] = struct{}{}
			}
		}
		return targets, false
	}
	if m := reAssign.FindStringSubmatch(line); m != nil {
		lhs := m[1]
		op := m[2]
		augmented := op != "=" && op != ":="
		// tuple/list unpacking: a, b = ... / (a, b) = ... / [a, b] = ...
		lhs = strings.Trim(lhs, "()[] \t")
		for _, part := range strings.Split(lhs, ",") {
			part = strings.TrimSpace(part)
			// drop subscript/attribute targets (obj.attr = .. / obj[k] = ..):
			// not a new binding of `obj`, but a mutation, so obj is a read.
			if strings.ContainsAny(part, ".[") {
				continue
			}
			if nameRe.MatchString(part) && nameRe.FindString(part) == part {
				targets[part] = struct{}{}
			}
		}
		return targets, augmented
	}
	_ = depth
	return targets, false
}

var keywords = map[string]struct{}{
	"False": {}, "None": {}, "True": {}, "and": {}, "as": {}, "assert": {},
	"async": {}, "await": {}, "break": {}, "class": {}, "continue": {},
	"def": {}, "del": {}, "elif": {}, "else": {}, "except": {}, "finally": {},
	"for": {}, "from": {}, "global": {}, "if": {}, "import": {}, "in": {},
	"is": {}, "lambda": {}, "nonlocal": {}, "not": {}, "or": {}, "pass": {},
	"raise": {}, "return": {}, "try": {}, "while": {}, "with": {}, "yield": {},
}

func isKeyword(n string) bool {
	_, ok := keywords[n]
	return ok
}

var builtins = map[string]bool{
	"abs": true, "all": true, "any": true, "bool": true, "bytes": true,
	"dict": true, "enumerate": true, "filter": true, "float": true,
	"format": true, "frozenset": true, "getattr": true, "hasattr": true,
	"int": true, "isinstance": true, "issubclass": true, "iter": true,
	"len": true, "list": true, "map": true, "max": true, "min": true,
	"next": true, "object": true, "open": true, "ord": true, "pow": true,
	"print": true, "range": true, "repr": true, "reversed": true,
	"round": true, "set": true, "slice": true, "sorted": true, "str": true,
	"sum": true, "super": true, "tuple": true, "type": true, "vars": true,
	"zip": true, "self": true, "cls": true,
}
