package project

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/testutil"
)

type recordingObserver struct {
	mu      sync.Mutex
	changes []string
}

func (r *recordingObserver) ProjectChanged(reason, uuid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, reason+":"+uuid)
}

func setupTestStore(t *testing.T) (*FileStore, string, *recordingObserver) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "projects.json")
	obs := &recordingObserver{}
	store := NewFileStore(path, WithObserver(obs))
	t.Cleanup(func() { store.Close() })
	return store, path, obs
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store, _, _ := setupTestStore(t)

	projects, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, projects)
	assert.NotNil(t, projects)
}

func TestFileStore_CorruptFileIsEmpty(t *testing.T) {
	for name, content := range map[string]string{
		"syntax":   `[{"uuid": "a",`,
		"empty":    ``,
		"object":   `{"uuid":"a"}`,
		"not json": `projects: []`,
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := testutil.TempFile(t, dir, "projects.json", content)

			projects, err := NewFileStore(path).List()
			require.NoError(t, err)
			assert.Empty(t, projects)
		})
	}
}

func TestFileStore_NullEntryIgnored(t *testing.T) {
	dir := t.TempDir()
	path := testutil.TempFile(t, dir, "projects.json",
		`[null, {"uuid":"a","projectId":"p"}, {"projectId":"no-uuid"}]`)
	store := NewFileStore(path)

	projects, err := store.List()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "a", projects[0].UUID)

	assert.NotPanics(t, func() {
		p, err := store.Get("a")
		require.NoError(t, err)
		assert.Equal(t, "p", p.ProjectID)
	})

	// Writing drops the bad entries from the file.
	require.NoError(t, store.Delete("a"))
	assert.JSONEq(t, `[]`, testutil.ReadFile(t, path))
}

func TestFileStore_CreateAssignsUUIDAndPersists(t *testing.T) {
	store, path, obs := setupTestStore(t)

	p, err := store.Create(CreateInput{ProjectID: "my-project", CredentialsPath: "/keys/sa.json"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.UUID)
	assert.Equal(t, "my-project", p.ProjectID)
	assert.Equal(t, "/keys/sa.json", p.CredentialsPath)

	// Two-space indented JSON array.
	content := testutil.ReadFile(t, path)
	assert.Contains(t, content, "[\n  {\n    \"uuid\": \""+p.UUID+"\"")

	reopened := NewFileStore(path)
	projects, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, *p, *projects[0])

	assert.Equal(t, []string{"created:" + p.UUID}, obs.changes)
}

func TestFileStore_CreateRequiresProjectID(t *testing.T) {
	store, path, _ := setupTestStore(t)

	_, err := store.Create(CreateInput{ProjectID: "  "})
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written")
}

func TestFileStore_Get(t *testing.T) {
	store, _, _ := setupTestStore(t)

	created, err := store.Create(CreateInput{ProjectID: "p"})
	require.NoError(t, err)

	got, err := store.Get(created.UUID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestFileStore_UpdateKeepsOrder(t *testing.T) {
	store, _, obs := setupTestStore(t)

	a, err := store.Create(CreateInput{ProjectID: "a"})
	require.NoError(t, err)
	b, err := store.Create(CreateInput{ProjectID: "b"})
	require.NoError(t, err)

	require.NoError(t, store.Update(&Project{UUID: a.UUID, ProjectID: "a2", CredentialsPath: "/k.json"}))

	projects, err := store.List()
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "a2", projects[0].ProjectID)
	assert.Equal(t, "/k.json", projects[0].CredentialsPath)
	assert.Equal(t, b.UUID, projects[1].UUID)
	assert.Contains(t, obs.changes, "updated:"+a.UUID)
}

func TestFileStore_UnknownUUID(t *testing.T) {
	store, _, _ := setupTestStore(t)

	err := store.Update(&Project{UUID: "nope", ProjectID: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProjectNotFound))
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
	assert.Contains(t, err.Error(), "Project uuid: nope does not exist.")

	err = store.Delete("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Project uuid: nope does not exist.")
}

func TestFileStore_Delete(t *testing.T) {
	store, _, obs := setupTestStore(t)

	a, err := store.Create(CreateInput{ProjectID: "a"})
	require.NoError(t, err)
	b, err := store.Create(CreateInput{ProjectID: "b"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(a.UUID))

	projects, err := store.List()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, b.UUID, projects[0].UUID)
	assert.Contains(t, obs.changes, "deleted:"+a.UUID)
}

func TestFileStore_SeesExternalEdits(t *testing.T) {
	store, path, obs := setupTestStore(t)
	_, err := store.List()
	require.NoError(t, err)

	write := func(content string) {
		testutil.TempFile(t, filepath.Dir(path), filepath.Base(path), content)
	}

	write(`[{"uuid":"u1","projectId":"external"}]`)
	p, err := store.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, "external", p.ProjectID, "reads do not need a reload")

	require.NoError(t, store.Reload())
	assert.Equal(t, []string{"created:u1"}, obs.changes)

	write(`[{"uuid":"u1","projectId":"renamed"}]`)
	require.NoError(t, store.Reload())
	write(`[]`)
	require.NoError(t, store.Reload())
	require.NoError(t, store.Reload())
	assert.Equal(t, []string{"created:u1", "updated:u1", "deleted:u1"}, obs.changes)
}

func TestFileStore_ReloadIgnoresOwnWrites(t *testing.T) {
	store, _, obs := setupTestStore(t)

	p, err := store.Create(CreateInput{ProjectID: "a"})
	require.NoError(t, err)
	p.ProjectID = "b"
	require.NoError(t, store.Update(p))

	require.NoError(t, store.Reload())
	assert.Equal(t, []string{"created:" + p.UUID, "updated:" + p.UUID}, obs.changes)
}

func TestFileStore_Closed(t *testing.T) {
	store, _, _ := setupTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.List()
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = store.Create(CreateInput{ProjectID: "p"})
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestFileStore_ConcurrentCreate(t *testing.T) {
	store, _, _ := setupTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Create(CreateInput{ProjectID: "p"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	projects, err := store.List()
	require.NoError(t, err)
	assert.Len(t, projects, 20)
}
