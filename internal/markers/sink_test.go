package markers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elskow/erlbuild/internal/builder/types"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Add(ctx, types.Diagnostic{Project: "app", Resource: "src/a.erl", Message: "first"}))
	require.NoError(t, m.Add(ctx, types.Diagnostic{Project: "app", Resource: "src/a.erl", Message: "first"}))
	require.NoError(t, m.Add(ctx, types.Diagnostic{Project: "app", Resource: "src/b.erl", Message: "second"}))
	require.NoError(t, m.Add(ctx, types.Diagnostic{Project: "app", Message: "project"}))
	require.NoError(t, m.Add(ctx, types.Diagnostic{Project: "lib", Resource: "src/a.erl", Message: "other"}))

	// duplicates are kept, in order
	assert.Len(t, m.For("app", "src/a.erl"), 2)

	require.NoError(t, m.Clear(ctx, "app", "src/a.erl"))
	assert.Empty(t, m.For("app", "src/a.erl"))
	assert.Len(t, m.For("lib", "src/a.erl"), 1)

	all, err := m.List(ctx, "app")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].Message)
	assert.Equal(t, "project", all[1].Message)

	require.NoError(t, m.ClearProject(ctx, "app"))
	all, err = m.List(ctx, "app")
	require.NoError(t, err)
	assert.Empty(t, all)

	lib, err := m.List(ctx, "lib")
	require.NoError(t, err)
	assert.Len(t, lib, 1)
}

func TestMarkerConversion(t *testing.T) {
	d := types.Diagnostic{
		Project:  "app",
		Resource: "src/a.erl",
		Severity: types.SeverityWarning,
		Message:  "unused variable",
		Line:     12,
		Column:   5,
	}
	m := fromDiagnostic(d)
	assert.Equal(t, "warning", m.Severity)
	assert.Equal(t, d, m.diagnostic())
	assert.Equal(t, "markers", Marker{}.TableName())
}
