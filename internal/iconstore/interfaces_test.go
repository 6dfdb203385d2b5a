package iconstore

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearmap/gearmap-go/internal/conf"
	"github.com/gearmap/gearmap-go/internal/errors"
)

func ptr[T any](v T) *T { return &v }

// createTestSettings creates minimal settings for store tests.
func createTestSettings(t *testing.T) *conf.Settings {
	t.Helper()
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "icons.db")
	return settings
}

// createStore opens a temporary SQLite-backed store seeded with the built-in
// defaults and closes it when the test finishes.
func createStore(t *testing.T) Interface {
	t.Helper()
	return openStore(t, createTestSettings(t))
}

func openStore(t *testing.T, settings *conf.Settings) Interface {
	t.Helper()

	store := New(settings)
	require.NotNil(t, store, "New must select the SQLite backend")
	require.NoError(t, store.Open(), "Failed to open icon store")

	t.Cleanup(func() {
		assert.NoError(t, store.Close(), "Failed to close icon store")
	})
	return store
}

func TestOpenSeedsDefaults(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	configs, err := store.List()
	require.NoError(t, err)
	require.Len(t, configs, 12, "one built-in config per deployment subject")

	assert.True(t, sort.SliceIsSorted(configs, func(i, j int) bool {
		return configs[i].Subject < configs[j].Subject
	}), "List must return subject order")

	for i := range configs {
		assert.Equal(t, SourceDefault, configs[i].Source, "seeded config %s", configs[i].Subject)
		assert.NoError(t, configs[i].Validate(), "seeded config %s", configs[i].Subject)
	}

	cam, err := store.Get("CAM-D")
	require.NoError(t, err)
	assert.Equal(t, "camera", cam.Category)
	assert.Equal(t, "#1f6feb", cam.CircleColor)
	assert.Equal(t, DefaultLayerOrder(), cam.LayerOrder)
}

func TestSeedingLeavesExistingRowsAlone(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	store := openStore(t, settings)

	_, err := store.Update("DOME-D", FieldPatch{CircleColor: ptr("#101010")})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := openStore(t, settings)
	configs, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, configs, 12, "reopening must not duplicate seeded rows")

	dome, err := reopened.Get("DOME-D")
	require.NoError(t, err)
	assert.Equal(t, "#101010", dome.CircleColor, "user edit must survive a restart")
	assert.Equal(t, SourceOverride, dome.Source)
}

func TestGetUnknownSubject(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	_, err := store.Get("GHOST-D")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestListByCategory(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	access, err := store.ListByCategory("access")
	require.NoError(t, err)

	subjects := make([]string, len(access))
	for i := range access {
		subjects[i] = access[i].Subject
	}
	assert.Equal(t, []string{"DC-D", "INT-D", "RDR-D", "REX-D"}, subjects)
}

func TestCreateFromBaseline(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	created, err := store.Create("GATE-D", "access", "")
	require.NoError(t, err)
	assert.Equal(t, SourceCustom, created.Source)
	assert.Equal(t, DefaultLayerOrder(), created.LayerOrder)
	assert.True(t, created.NoImage)

	stored, err := store.Get("GATE-D")
	require.NoError(t, err)
	assert.Equal(t, created.CircleColor, stored.CircleColor)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestCreateCloneCopiesEverythingButIdentity(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	source, err := store.Get("THERM-D")
	require.NoError(t, err)

	clone, err := store.Create("THERM2-D", "thermal", "THERM-D")
	require.NoError(t, err)
	assert.Equal(t, "THERM2-D", clone.Subject)
	assert.Equal(t, "thermal", clone.Category)
	assert.Equal(t, SourceCustom, clone.Source)

	// Everything except identity and provenance matches the source.
	normalized := clone
	normalized.Subject = source.Subject
	normalized.Category = source.Category
	normalized.Source = source.Source
	normalized.CreatedAt = source.CreatedAt
	normalized.UpdatedAt = source.UpdatedAt
	assert.Equal(t, source, normalized)
}

func TestCreateDuplicateSubject(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	_, err := store.Create("CAM-D", "camera", "")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConflict), "duplicate create, got %v", err)
}

func TestCreateCloneFromMissingSource(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	_, err := store.Create("NEW-D", "camera", "GHOST-D")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateMergesPatch(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	updated, err := store.Update("CAM-D", FieldPatch{
		CircleColor:   ptr("#ff6600"),
		BrandFontSize: ptr(11.0),
	})
	require.NoError(t, err)
	assert.Equal(t, "#ff6600", updated.CircleColor)
	assert.InDelta(t, 11.0, updated.BrandFontSize, 0)
	assert.Equal(t, "FIXED", updated.BrandText, "untouched fields keep their values")
	assert.Equal(t, SourceOverride, updated.Source, "editing a default turns it into an override")

	stored, err := store.Get("CAM-D")
	require.NoError(t, err)
	assert.Equal(t, "#ff6600", stored.CircleColor)
	assert.Equal(t, SourceOverride, stored.Source)
}

func TestUpdateEmptyPatchIsANoop(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	updated, err := store.Update("CAM-D", FieldPatch{})
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, updated.Source, "an empty patch must not flip provenance")
}

func TestUpdateRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	_, err := store.Update("CAM-D", FieldPatch{CircleColor: ptr("orange")})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation), "bad client value, got %v", err)

	stored, err := store.Get("CAM-D")
	require.NoError(t, err)
	assert.Equal(t, "#1f6feb", stored.CircleColor, "rejected patch must not be written")
	assert.Equal(t, SourceDefault, stored.Source)
}

func TestUpdateUnknownSubject(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	_, err := store.Update("GHOST-D", FieldPatch{CircleColor: ptr("#ffffff")})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteRemovesConfig(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	require.NoError(t, store.Delete("NVR-D"))

	_, err := store.Get("NVR-D")
	assert.True(t, errors.IsNotFound(err))

	err = store.Delete("NVR-D")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "deleting twice reports not found")
}

func TestDeleteRefusedWhilePinned(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	first, releaseFirst, err := store.Snapshot("HORN-D")
	require.NoError(t, err)
	assert.Equal(t, "HORN-D", first.Subject)

	_, releaseSecond, err := store.Snapshot("HORN-D")
	require.NoError(t, err)

	err = store.Delete("HORN-D")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConflict), "pinned delete, got %v", err)

	releaseFirst()
	releaseFirst() // releasing twice must not unpin the second snapshot

	err = store.Delete("HORN-D")
	require.Error(t, err, "one snapshot still outstanding")

	releaseSecond()
	require.NoError(t, store.Delete("HORN-D"))

	// The snapshot copy is a value, deleting the row cannot touch it.
	assert.Equal(t, "#bf8700", first.CircleColor)
}

func TestSnapshotIsAValueCopy(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	snap, release, err := store.Snapshot("LPR-D")
	require.NoError(t, err)
	defer release()

	_, err = store.Update("LPR-D", FieldPatch{CircleColor: ptr("#000000")})
	require.NoError(t, err)

	assert.Equal(t, "#8250df", snap.CircleColor, "later writes must not show up in the snapshot")
}

func TestSnapshotUnknownSubject(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	_, _, err := store.Snapshot("GHOST-D")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCategoriesAggregation(t *testing.T) {
	t.Parallel()

	store := createStore(t)

	_, err := store.Create("SPARE-D", "camera", "CAM-D")
	require.NoError(t, err)

	categories, err := store.Categories()
	require.NoError(t, err)

	names := make([]string, len(categories))
	for i := range categories {
		names[i] = categories[i].Name
	}
	assert.Equal(t, []string{"access", "audio", "camera", "infrastructure"}, names)

	var camera CategoryInfo
	for i := range categories {
		if categories[i].Name == "camera" {
			camera = categories[i]
		}
	}
	assert.Equal(t, 7, camera.ConfigCount, "six defaults plus the clone")
	assert.Len(t, camera.DefaultSubjects, 6, "the clone is custom, not a default")
	assert.Contains(t, camera.DefaultSubjects, "CAM-D")
	assert.NotContains(t, camera.DefaultSubjects, "SPARE-D")
}
