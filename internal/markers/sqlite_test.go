package markers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elskow/erlbuild/internal/builder/types"
)

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ebin", "markers.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)

	require.NoError(t, s.Add(ctx, types.Diagnostic{Project: "app", Resource: "src/a.erl", Severity: types.SeverityError, Message: "syntax error", Line: 3, Column: 9}))
	require.NoError(t, s.Add(ctx, types.Diagnostic{Project: "app", Resource: "src/b.erl", Severity: types.SeverityWarning, Message: "unused"}))
	require.NoError(t, s.Add(ctx, types.Diagnostic{Project: "lib", Resource: "src/a.erl", Severity: types.SeverityInfo, Message: "other"}))
	require.NoError(t, s.Close())

	// markers survive a reopen
	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	diags, err := s.List(ctx, "app")
	require.NoError(t, err)
	require.Len(t, diags, 2)
	assert.Equal(t, types.Diagnostic{
		Project:  "app",
		Resource: "src/a.erl",
		Severity: types.SeverityError,
		Message:  "syntax error",
		Line:     3,
		Column:   9,
	}, diags[0])

	require.NoError(t, s.Clear(ctx, "app", "src/a.erl"))
	diags, err = s.List(ctx, "app")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "src/b.erl", diags[0].Resource)

	require.NoError(t, s.ClearProject(ctx, "app"))
	diags, err = s.List(ctx, "app")
	require.NoError(t, err)
	assert.Empty(t, diags)

	diags, err = s.List(ctx, "lib")
	require.NoError(t, err)
	assert.Len(t, diags, 1)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	require.Error(t, err)
}
