package dal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrythewa/deskbridge/internal/types"
)

func newDAL(t *testing.T) *DAL {
	t.Helper()
	d, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestProjects(t *testing.T) {
	ctx := context.Background()
	d := newDAL(t)

	projects, err := d.Projects()
	require.NoError(t, err)
	assert.Empty(t, projects)

	// add a project
	_, err = d.CreateProject(ctx, "test 1")
	require.NoError(t, err)

	projects, err = d.Projects()
	require.NoError(t, err)
	assert.Equal(t, []string{"test 1"}, projects)

	// stray files are not projects
	require.NoError(t, os.WriteFile(filepath.Join(d.Dir(), "not a db.txt"), nil, 0644))
	projects, err = d.Projects()
	require.NoError(t, err)
	assert.Equal(t, []string{"test 1"}, projects)

	// delete project
	require.NoError(t, d.DeleteProject("test 1"))
	projects, err = d.Projects()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestDuplicatedProject(t *testing.T) {
	ctx := context.Background()
	d := newDAL(t)

	_, err := d.CreateProject(ctx, "test duplicated")
	require.NoError(t, err)

	// second call fails because the project already exists
	_, err = d.CreateProject(ctx, "test duplicated")
	assert.True(t, errors.Is(err, ErrProjectExists))
}

func TestMissingProject(t *testing.T) {
	d := newDAL(t)

	_, err := d.Project(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrProjectNotFound))
	assert.True(t, errors.Is(d.DeleteProject("ghost"), ErrProjectNotFound))
}

func TestInvalidProjectNames(t *testing.T) {
	d := newDAL(t)
	for _, name := range []string{"", "  ", "../escape", `a\b`, ".hidden"} {
		_, err := d.CreateProject(context.Background(), name)
		assert.True(t, errors.Is(err, ErrInvalidProjectName), "name %q", name)
	}
}

func TestEntries(t *testing.T) {
	ctx := context.Background()
	d := newDAL(t)

	_, err := d.CreateProject(ctx, "test entries")
	require.NoError(t, err)

	p, err := d.Project(ctx, "test entries")
	require.NoError(t, err)

	entries, err := p.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	id, err := p.CreateEntry(ctx, types.CreateEntry{Title: "x", Body: "lorem ipsum"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)

	expected := types.Entry{ID: 1, Title: "x", Body: "lorem ipsum", Published: false}
	entries, err = p.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Entry{expected}, entries)

	got, err := p.Entry(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, expected, got)

	require.NoError(t, p.DeleteEntry(ctx, 1))
	entries, err = p.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = p.Entry(ctx, 1)
	assert.True(t, errors.Is(err, ErrEntryNotFound))
}

func TestProjectReopenedFromDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := New(dir, nil)
	require.NoError(t, err)
	p, err := first.CreateProject(ctx, "persisted")
	require.NoError(t, err)
	_, err = p.CreateEntry(ctx, types.CreateEntry{Title: "kept", Body: "b", Published: true})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(dir, nil)
	require.NoError(t, err)
	defer second.Close()

	p, err = second.Project(ctx, "persisted")
	require.NoError(t, err)
	entries, err := p.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Published)

	cached, err := second.Project(ctx, "persisted")
	require.NoError(t, err)
	assert.Same(t, p, cached)
}
