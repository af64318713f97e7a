package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corerr "github.com/carter293/reactive-notebook/internal/errors"
)

type fakeNamespace map[string]any

func (f fakeNamespace) Get(name string) (any, bool) {
	v, ok := f[name]
	return v, ok
}

func TestBindTemplate_SingleVariable(t *testing.T) {
	ns := fakeNamespace{"user_id": 42}
	query, args, err := bindTemplate("SELECT * FROM users WHERE id = {user_id}", ns)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE id = $1", query)
	assert.Equal(t, []any{42}, args)
}

func TestBindTemplate_RepeatedVariableReusesPlaceholder(t *testing.T) {
	ns := fakeNamespace{"id": 7}
	query, args, err := bindTemplate("SELECT {id}, {id} FROM t WHERE id = {id}", ns)
	require.NoError(t, err)
	assert.Equal(t, "SELECT $1, $1 FROM t WHERE id = $1", query)
	assert.Equal(t, []any{7}, args)
}

func TestBindTemplate_MultipleDistinctVariables(t *testing.T) {
	ns := fakeNamespace{"a": 1, "b": "two"}
	query, args, err := bindTemplate("SELECT * FROM t WHERE x = {a} AND y = {b}", ns)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE x = $1 AND y = $2", query)
	assert.Equal(t, []any{1, "two"}, args)
}

func TestBindTemplate_MissingVariableErrorsBeforeDBContact(t *testing.T) {
	ns := fakeNamespace{}
	_, _, err := bindTemplate("SELECT * FROM t WHERE id = {missing}", ns)
	require.Error(t, err)
	assert.True(t, corerr.IsCode(err, corerr.CodeMissingTemplateVariable))
	assert.Contains(t, err.Error(), "missing")
}

func TestBindTemplate_NoTemplatesPassesThrough(t *testing.T) {
	ns := fakeNamespace{}
	query, args, err := bindTemplate("SELECT * FROM t", ns)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t", query)
	assert.Empty(t, args)
}
