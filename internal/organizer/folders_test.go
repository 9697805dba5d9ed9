package organizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/propertyinbox/internal/property"
)

var jst = time.FixedZone("JST", 9*60*60)

func TestFolderResolver_Idempotent(t *testing.T) {
	store := newMemStore()
	r := NewFolderResolver(store, "")
	key := property.Key{Station: "渋谷", Number: "12345", Date: time.Date(2024, 6, 1, 9, 0, 0, 0, jst)}

	first, created, err := r.Resolve(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "20240601_渋谷_12345", first.Name)

	second, created, err := r.Resolve(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.createCalls)
}

func TestFolderResolver_ReusesEarlierFolderOfProperty(t *testing.T) {
	store := newMemStore()
	store.folders = []property.Folder{{ID: "old", Name: "20240530_渋谷_12345"}}
	r := NewFolderResolver(store, "")

	folder, created, err := r.Resolve(context.Background(), property.Key{
		Station: "渋谷", Number: "12345", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, jst),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "old", folder.ID)
}

func TestFolderResolver_PlaceholderNeverReused(t *testing.T) {
	store := newMemStore()
	store.folders = []property.Folder{{ID: "old", Name: "20240530_渋谷_unknown"}}
	r := NewFolderResolver(store, "")

	folder, created, err := r.Resolve(context.Background(), property.Key{
		Station: "中野", Number: property.DefaultPlaceholder, Date: time.Date(2024, 6, 1, 0, 0, 0, 0, jst),
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "20240601_中野_unknown", folder.Name)
}

type failingStore struct {
	*memStore
}

func (failingStore) FindFolder(context.Context, string) (*property.Folder, error) {
	return nil, errors.New("rate limit exceeded")
}

func TestFolderResolver_LookupError(t *testing.T) {
	r := NewFolderResolver(failingStore{newMemStore()}, "")
	_, _, err := r.Resolve(context.Background(), property.Key{Station: "a", Number: "1", Date: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestPersister(t *testing.T) {
	store := newMemStore()
	store.files["f1"] = []property.StoredFile{{ID: "x", Name: "plan.pdf", Size: 4}}
	p := NewPersister(store)

	inv, err := p.Inventory(context.Background(), "f1")
	require.NoError(t, err)

	tests := []struct {
		name string
		file string
		data string
		want PersistResult
	}{
		{"same name and size", "plan.pdf", "abcd", PersistDuplicate},
		{"same name other size", "plan.pdf", "abcdef", PersistSaved},
		{"new file", "map.pdf", "zz", PersistSaved},
		{"uploaded in this run", "map.pdf", "zz", PersistDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Persist(context.Background(), inv, tt.file, "application/pdf", []byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, []string{"plan.pdf", "map.pdf"}, store.uploads)
}

func TestPersister_ListError(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("forbidden")
	_, err := NewPersister(store).Inventory(context.Background(), "f1")
	assert.ErrorContains(t, err, "forbidden")
}
