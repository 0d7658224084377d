package collection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postern/internal/auth"
)

func bearerConfig(token string) *auth.Config {
	return &auth.Config{Type: auth.TypeBearer, Bearer: &auth.BearerConfig{Token: token}}
}

func TestStoreAddAndGetRequest(t *testing.T) {
	s := NewStore()

	id, err := s.AddRequest(Request{Name: "list widgets", Method: "GET",
		URL: "https://api.example.com/widgets"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	byID, err := s.Request(id)
	require.NoError(t, err)
	assert.Equal(t, "list widgets", byID.Name)

	byName, err := s.Request("list widgets")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)

	_, err = s.Request("no such request")
	assert.Error(t, err)
}

func TestStoreAddRequestValidatesAuth(t *testing.T) {
	s := NewStore()

	_, err := s.AddRequest(Request{Name: "bad",
		Auth: &auth.Config{Type: auth.TypeBearer}})
	assert.Error(t, err)
}

func TestStoreAddRequestUnknownFolder(t *testing.T) {
	s := NewStore()
	_, err := s.AddRequest(Request{Name: "orphan", FolderID: "missing"})
	assert.Error(t, err)
}

func TestEffectiveAuthInheritance(t *testing.T) {
	s := NewStore()

	parentID, err := s.AddFolder(Folder{Name: "api", Auth: bearerConfig("folder-token")})
	require.NoError(t, err)
	childID, err := s.AddFolder(Folder{Name: "admin", ParentID: parentID})
	require.NoError(t, err)

	ownAuth, err := s.AddRequest(Request{Name: "own", FolderID: childID,
		Auth: bearerConfig("own-token")})
	require.NoError(t, err)
	inherited, err := s.AddRequest(Request{Name: "inherited", FolderID: childID})
	require.NoError(t, err)
	explicit, err := s.AddRequest(Request{Name: "opted out", FolderID: childID,
		Auth: &auth.Config{Type: auth.TypeNone}})
	require.NoError(t, err)
	topLevel, err := s.AddRequest(Request{Name: "top level"})
	require.NoError(t, err)

	cfg, err := s.EffectiveAuth(ownAuth)
	require.NoError(t, err)
	assert.Equal(t, "own-token", cfg.Bearer.Token, "a request's own config wins")

	cfg, err = s.EffectiveAuth(inherited)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "folder-token", cfg.Bearer.Token,
		"the walk climbs past folders without a config")

	cfg, err = s.EffectiveAuth(explicit)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, auth.TypeNone, cfg.Type, "an explicit none stops inheritance")

	cfg, err = s.EffectiveAuth(topLevel)
	require.NoError(t, err)
	assert.Nil(t, cfg, "no config anywhere on the chain")
}

func TestEffectiveAuthCollectionFallback(t *testing.T) {
	s := NewStore()
	col := s.Collection()
	col.Auth = bearerConfig("collection-token")
	s.collection = col

	id, err := s.AddRequest(Request{Name: "r"})
	require.NoError(t, err)

	cfg, err := s.EffectiveAuth(id)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "collection-token", cfg.Bearer.Token)
}

func TestEffectiveAuthReturnsCopy(t *testing.T) {
	s := NewStore()
	id, err := s.AddRequest(Request{Name: "r", Auth: bearerConfig("original")})
	require.NoError(t, err)

	cfg, err := s.EffectiveAuth(id)
	require.NoError(t, err)
	cfg.Bearer.Token = "mutated"

	again, err := s.EffectiveAuth(id)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Bearer.Token)
}

func TestSetRequestAuth(t *testing.T) {
	s := NewStore()
	id, err := s.AddRequest(Request{Name: "r"})
	require.NoError(t, err)

	require.NoError(t, s.SetRequestAuth(id, bearerConfig("new-token")))
	cfg, err := s.EffectiveAuth(id)
	require.NoError(t, err)
	assert.Equal(t, "new-token", cfg.Bearer.Token)

	require.NoError(t, s.SetRequestAuth(id, nil))
	cfg, err = s.EffectiveAuth(id)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	assert.Error(t, s.SetRequestAuth("missing", nil))
	assert.Error(t, s.SetRequestAuth(id, &auth.Config{Type: auth.TypeBearer}))
}

func TestStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection.yaml")

	s := NewStore()
	folderID, err := s.AddFolder(Folder{Name: "api", Auth: bearerConfig("t")})
	require.NoError(t, err)
	reqID, err := s.AddRequest(Request{Name: "r", Method: "GET",
		URL: "https://api.example.com", FolderID: folderID})
	require.NoError(t, err)

	require.NoError(t, s.Save(path))

	loaded := NewStore()
	require.NoError(t, loaded.LoadFile(path))

	cfg, err := loaded.EffectiveAuth(reqID)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "t", cfg.Bearer.Token)
}

func TestLoadFileMissingStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection.yaml")

	s := NewStore()
	require.NoError(t, s.LoadFile(path))
	assert.Empty(t, s.Requests())

	// The path is remembered so Save works without arguments.
	_, err := s.AddRequest(Request{Name: "r"})
	require.NoError(t, err)
	require.NoError(t, s.Save(""))
	assert.FileExists(t, path)
}

func TestLoadFileRejectsBrokenCollections(t *testing.T) {
	write := func(t *testing.T, content string) string {
		path := filepath.Join(t.TempDir(), "collection.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("duplicate request id", func(t *testing.T) {
		s := NewStore()
		err := s.LoadFile(write(t, `
id: c1
name: c
requests:
  - id: r1
    name: a
  - id: r1
    name: b
`))
		assert.Error(t, err)
	})

	t.Run("request in missing folder", func(t *testing.T) {
		s := NewStore()
		err := s.LoadFile(write(t, `
id: c1
name: c
requests:
  - id: r1
    name: a
    folderId: ghost
`))
		assert.Error(t, err)
	})

	t.Run("invalid auth config", func(t *testing.T) {
		s := NewStore()
		err := s.LoadFile(write(t, `
id: c1
name: c
requests:
  - id: r1
    name: a
    auth:
      type: bearer
`))
		assert.Error(t, err)
	})
}

func TestEffectiveAuthFolderCycle(t *testing.T) {
	s := NewStore()
	s.collection.Folders = []Folder{
		{ID: "f1", Name: "a", ParentID: "f2"},
		{ID: "f2", Name: "b", ParentID: "f1"},
	}
	s.collection.Requests = []Request{{ID: "r1", Name: "r", FolderID: "f1"}}

	_, err := s.EffectiveAuth("r1")
	assert.Error(t, err)
}
