package main

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	corerr "github.com/carter293/reactive-notebook/internal/errors"
	"github.com/carter293/reactive-notebook/notebook"
)

var sqlTemplateRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// executeSQL implements SPEC_FULL §4.4's SQL execution semantics:
// parameterized template substitution, a short-lived per-query connection
// (no pooling), and table-shaped output via the bun/pgdriver stack
// (DESIGN.md: the teacher's own Postgres driver stack, repointed at a
// per-query connection instead of a long-lived store).
func executeSQL(ctx context.Context, connString, source string, ns namespaceView) (*notebook.Output, string, error) {
	if connString == "" {
		return nil, "", corerr.New(corerr.CodeDatabaseUnconfigured, "database not configured", nil)
	}

	query, args, err := bindTemplate(source, ns)
	if err != nil {
		return nil, "", err
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connString)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", corerr.New(corerr.CodeCellRuntime, "database query failed", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, "", corerr.New(corerr.CodeCellRuntime, "failed reading result columns", err)
	}

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, "", corerr.New(corerr.CodeCellRuntime, "failed scanning row", err)
		}
		out = append(out, vals)
	}

	if len(out) == 0 {
		return nil, "Query returned 0 rows\n", nil
	}

	table := notebook.Table{Type: "table", Columns: cols, Rows: out}
	return &notebook.Output{Mime: notebook.MimeJSON, Data: table}, "", nil
}

// namespaceView is the minimal read-only namespace lookup executeSQL needs.
type namespaceView interface {
	Get(name string) (any, bool)
}

// bindTemplate replaces each {name} with a positional $N placeholder,
// never textual interpolation (SPEC_FULL §9 "Parameterized SQL").
func bindTemplate(source string, ns namespaceView) (string, []any, error) {
	var args []any
	index := map[string]int{}

	query := sqlTemplateRe.ReplaceAllStringFunc(source, func(m string) string {
		name := sqlTemplateRe.FindStringSubmatch(m)[1]
		if i, ok := index[name]; ok {
			return placeholder(i)
		}
		value, ok := ns.Get(name)
		if !ok {
			return m // error raised below once we know it's unresolved
		}
		args = append(args, value)
		index[name] = len(args)
		return placeholder(len(args))
	})

	for _, m := range sqlTemplateRe.FindAllStringSubmatch(source, -1) {
		name := m[1]
		if _, ok := index[name]; !ok {
			if _, found := ns.Get(name); !found {
				return "", nil, corerr.New(corerr.CodeMissingTemplateVariable,
					fmt.Sprintf("Variable '%s' not found in namespace", name), nil)
			}
		}
	}

	return query, args, nil
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
