package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carter293/reactive-notebook/notebook"
)

func keys(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

func TestAnalyzePython_SimpleAssignment(t *testing.T) {
	r := Analyze(notebook.KindPython, "x = 5")
	assert.ElementsMatch(t, []string{"x"}, keys(r.Writes))
	assert.Empty(t, r.Reads)
}

func TestAnalyzePython_ReadAndWrite(t *testing.T) {
	r := Analyze(notebook.KindPython, "y = x + 1")
	assert.ElementsMatch(t, []string{"y"}, keys(r.Writes))
	assert.ElementsMatch(t, []string{"x"}, keys(r.Reads))
}

func TestAnalyzePython_TupleUnpacking(t *testing.T) {
	r := Analyze(notebook.KindPython, "a, b = 1, 2")
	assert.ElementsMatch(t, []string{"a", "b"}, keys(r.Writes))
}

func TestAnalyzePython_AugmentedAssignment(t *testing.T) {
	r := Analyze(notebook.KindPython, "total += delta")
	assert.Contains(t, keys(r.Writes), "total")
	assert.Contains(t, keys(r.Reads), "total")
	assert.Contains(t, keys(r.Reads), "delta")
}

func TestAnalyzePython_ForLoopBindsAtStatementScope(t *testing.T) {
	r := Analyze(notebook.KindPython, "for i in items:\n    total += i")
	assert.Contains(t, keys(r.Writes), "i")
	assert.Contains(t, keys(r.Reads), "items")
	assert.NotContains(t, keys(r.Reads), "i")
}

func TestAnalyzePython_WithAs(t *testing.T) {
	r := Analyze(notebook.KindPython, "with open(path) as f:\n    data = f.read()")
	assert.Contains(t, keys(r.Writes), "f")
	assert.Contains(t, keys(r.Writes), "data")
	assert.Contains(t, keys(r.Reads), "path")
}

func TestAnalyzePython_Import(t *testing.T) {
	r := Analyze(notebook.KindPython, "import pandas as pd")
	assert.Contains(t, keys(r.Writes), "pd")
}

func TestAnalyzePython_FromImport(t *testing.T) {
	r := Analyze(notebook.KindPython, "from math import sqrt, pi")
	assert.ElementsMatch(t, []string{"sqrt", "pi"}, keys(r.Writes))
}

func TestAnalyzePython_FunctionDefDoesNotLeakParamsOrLocals(t *testing.T) {
	r := Analyze(notebook.KindPython, "def f(a):\n    b = a + 1\n    return b")
	assert.Contains(t, keys(r.Writes), "f")
	assert.NotContains(t, keys(r.Writes), "a")
	assert.NotContains(t, keys(r.Writes), "b")
	assert.NotContains(t, keys(r.Reads), "a")
	assert.NotContains(t, keys(r.Reads), "b")
}

func TestAnalyzePython_LambdaParamNotARead(t *testing.T) {
	r := Analyze(notebook.KindPython, "f = lambda x: x + offset")
	assert.Contains(t, keys(r.Writes), "f")
	assert.NotContains(t, keys(r.Reads), "x")
	assert.Contains(t, keys(r.Reads), "offset")
}

func TestAnalyzePython_ComprehensionVariableNotARead(t *testing.T) {
	r := Analyze(notebook.KindPython, "squares = [n * n for n in values]")
	assert.Contains(t, keys(r.Writes), "squares")
	assert.NotContains(t, keys(r.Reads), "n")
	assert.Contains(t, keys(r.Reads), "values")
}

func TestAnalyzePython_BuiltinsExcluded(t *testing.T) {
	r := Analyze(notebook.KindPython, "n = len(items)")
	assert.NotContains(t, keys(r.Reads), "len")
	assert.Contains(t, keys(r.Reads), "items")
}

func TestAnalyzePython_InvalidSourceYieldsEmpty(t *testing.T) {
	r := Analyze(notebook.KindPython, "def (((( not valid python @@@")
	assert.NotNil(t, r.Reads)
	assert.NotNil(t, r.Writes)
}

func TestAnalyzePython_Deterministic(t *testing.T) {
	src := "y = x + 1\nprint(y)"
	a := Analyze(notebook.KindPython, src)
	b := Analyze(notebook.KindPython, src)
	assert.Equal(t, keys(a.Reads), keys(a.Reads))
	assert.ElementsMatch(t, keys(a.Reads), keys(b.Reads))
	assert.ElementsMatch(t, keys(a.Writes), keys(b.Writes))
}

func TestAnalyzeSQL_TemplateVariables(t *testing.T) {
	r := Analyze(notebook.KindSQL, "SELECT * FROM users WHERE id = {user_id} AND name = {name}")
	assert.ElementsMatch(t, []string{"user_id", "name"}, keys(r.Reads))
	assert.Empty(t, r.Writes)
}

func TestAnalyzeSQL_NoTemplates(t *testing.T) {
	r := Analyze(notebook.KindSQL, "SELECT * FROM users")
	assert.Empty(t, r.Reads)
	assert.Empty(t, r.Writes)
}

func TestAnalyzeSQL_DuplicateTemplateCollapses(t *testing.T) {
	r := Analyze(notebook.KindSQL, "SELECT {id}, {id} FROM t WHERE id = {id}")
	assert.ElementsMatch(t, []string{"id"}, keys(r.Reads))
}
