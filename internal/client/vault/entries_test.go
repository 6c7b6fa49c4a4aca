package vault

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/otpvault/internal/client/models"
	"github.com/dmitrijs2005/otpvault/internal/common"
)

func ids(entries []models.VaultEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func seed(t *testing.T, f *fixture, entries ...models.VaultEntry) {
	t.Helper()
	for _, e := range entries {
		_, err := f.v.AddEntry(context.Background(), e)
		require.NoError(t, err)
	}
}

func TestAddEntry_UpsertsByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.unlock(t)

	first, err := f.v.AddEntry(ctx, models.VaultEntry{ID: "1", Issuer: "Old", Secret: secret})
	require.NoError(t, err)
	_, err = f.v.AddEntry(ctx, models.VaultEntry{ID: "1", Issuer: "New", Secret: secret})
	require.NoError(t, err)

	entries := f.v.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "New", entries[0].Issuer)
	assert.Equal(t, "1", first.ID)

	_, err = f.v.AddEntry(ctx, models.VaultEntry{Secret: ""})
	require.ErrorIs(t, err, common.ErrInvalidSecret)
	assert.False(t, f.v.PersistState().Status == models.PersistError)
}

func TestEntries_ReturnsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.unlock(t)
	seed(t, f, models.VaultEntry{ID: "1", Secret: secret, Tags: []string{"a"}})

	snap := f.v.Entries()
	snap[0].Issuer = "mutated"
	snap[0].Tags[0] = "mutated"

	got, err := f.v.Entry("1")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", got.Issuer)
	assert.Equal(t, []string{"a"}, got.Tags)
}

func TestRemoveEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.unlock(t)
	seed(t, f,
		models.VaultEntry{ID: "1", Secret: secret},
		models.VaultEntry{ID: "2", Secret: secret},
	)
	require.NoError(t, f.v.FlushPersist(ctx))
	sets := f.storage.Sets()

	require.NoError(t, f.v.RemoveEntry(ctx, "missing"))
	assert.False(t, f.v.PersistState().Scheduled, "unknown id schedules nothing")

	require.NoError(t, f.v.RemoveEntry(ctx, "1"))
	assert.Equal(t, []string{"2"}, ids(f.v.Entries()))
	require.NoError(t, f.v.FlushPersist(ctx))
	assert.Equal(t, sets+1, f.storage.Sets())
}

func TestImportEntries_CollectsPerElementFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.unlock(t)

	results, err := f.v.ImportEntries(ctx, []models.VaultEntry{
		{ID: "ok1", Secret: secret},
		{ID: "bad", Issuer: "Broken"},
		{ID: "ok2", Secret: "GEZDGNBV", Algorithm: "sha512"},
		{ID: "alg", Secret: secret, Algorithm: "md5"},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, models.ImportOK, results[0].Status)
	assert.Equal(t, "ok1", results[0].Entry.ID)
	assert.Equal(t, models.ImportFailed, results[1].Status)
	assert.Equal(t, "Broken", results[1].Input.Issuer)
	assert.NotEmpty(t, results[1].Reason)
	assert.Equal(t, models.ImportOK, results[2].Status)
	assert.Equal(t, models.ImportFailed, results[3].Status)

	assert.Equal(t, []string{"ok1", "ok2"}, ids(f.v.Entries()))
	assert.True(t, f.v.PersistState().Scheduled)
}

func TestTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.unlock(t)
	seed(t, f,
		models.VaultEntry{ID: "1", Secret: secret, Tags: []string{"work"}},
		models.VaultEntry{ID: "2", Secret: secret},
	)

	f.clock.Advance(time.Minute)
	e, err := f.v.AddTag(ctx, "2", "dev")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev"}, e.Tags)
	assert.Equal(t, f.clock.Now(), e.UpdatedAt)

	before := e.UpdatedAt
	f.clock.Advance(time.Minute)
	e, err = f.v.AddTag(ctx, "2", "dev")
	require.NoError(t, err)
	assert.Equal(t, before, e.UpdatedAt, "adding an existing tag changes nothing")

	_, err = f.v.AddTag(ctx, "2", "work")
	require.NoError(t, err)

	assert.Equal(t, []string{"dev", "work"}, f.v.AllTags())
	assert.Equal(t, []string{"1", "2"}, ids(f.v.EntriesByTag("work")))

	e, err = f.v.RemoveTag(ctx, "2", "work")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev"}, e.Tags)
	assert.Equal(t, []string{"1"}, ids(f.v.EntriesByTag("work")))

	_, err = f.v.AddTag(ctx, "missing", "x")
	require.ErrorIs(t, err, common.ErrEntryNotFound)
}

func TestGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.unlock(t)
	seed(t, f,
		models.VaultEntry{ID: "1", Secret: secret},
		models.VaultEntry{ID: "2", Secret: secret},
		models.VaultEntry{ID: "3", Secret: secret},
	)

	_, err := f.v.SetGroup(ctx, "1", "work")
	require.NoError(t, err)
	_, err = f.v.SetGroup(ctx, "2", "home")
	require.NoError(t, err)

	assert.Equal(t, []string{"home", "work"}, f.v.AllGroups())
	assert.Equal(t, []string{"1"}, ids(f.v.EntriesByGroup("work")))
	assert.Equal(t, []string{"3"}, ids(f.v.EntriesByGroup("")))

	e, err := f.v.SetGroup(ctx, "1", "")
	require.NoError(t, err)
	assert.Nil(t, e.Group)
	assert.Equal(t, []string{"home"}, f.v.AllGroups())
}

func TestFavoritesAndNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.unlock(t)
	seed(t, f, models.VaultEntry{ID: "1", Secret: secret}, models.VaultEntry{ID: "2", Secret: secret})

	e, err := f.v.ToggleFavorite(ctx, "2")
	require.NoError(t, err)
	assert.True(t, e.Favorite)
	assert.Equal(t, []string{"2"}, ids(f.v.Favorites()))

	e, err = f.v.ToggleFavorite(ctx, "2")
	require.NoError(t, err)
	assert.False(t, e.Favorite)
	assert.Empty(t, f.v.Favorites())

	e, err = f.v.UpdateNotes(ctx, "1", "backup codes in safe")
	require.NoError(t, err)
	assert.Equal(t, "backup codes in safe", e.Notes)
}

func TestIncrementUseCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.unlock(t)
	seed(t, f,
		models.VaultEntry{ID: "1", Secret: secret},
		models.VaultEntry{ID: "2", Secret: secret},
	)

	updated, err := f.v.IncrementUseCounts(ctx, []string{"2", "1", "2", "", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, ids(updated))
	assert.Equal(t, 2, updated[0].UseCount)
	assert.Equal(t, 1, updated[1].UseCount)
	require.NotNil(t, updated[0].LastUsed)
	assert.Equal(t, f.clock.Now(), *updated[0].LastUsed)

	updated, err = f.v.IncrementUseCounts(ctx, []string{"", ""})
	require.NoError(t, err)
	assert.Empty(t, updated)

	_, err = f.v.IncrementUseCount(ctx, "missing")
	require.ErrorIs(t, err, common.ErrEntryNotFound)

	e, err := f.v.IncrementUseCount(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 2, e.UseCount)
}

func TestRecentlyAndMostUsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.unlock(t)
	seed(t, f,
		models.VaultEntry{ID: "a", Secret: secret},
		models.VaultEntry{ID: "b", Secret: secret},
		models.VaultEntry{ID: "c", Secret: secret},
		models.VaultEntry{ID: "never", Secret: secret},
	)

	_, err := f.v.IncrementUseCounts(ctx, []string{"a", "a", "a"})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.v.IncrementUseCounts(ctx, []string{"c"})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.v.IncrementUseCounts(ctx, []string{"b", "b"})
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "c", "a"}, ids(f.v.RecentlyUsed(0)))
	assert.Equal(t, []string{"b", "c"}, ids(f.v.RecentlyUsed(2)))
	assert.Equal(t, []string{"a", "b", "c"}, ids(f.v.MostUsed(10)))
	assert.Equal(t, []string{"a"}, ids(f.v.MostUsed(1)))
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.unlock(t)
	seed(t, f,
		models.VaultEntry{ID: "gh", Issuer: "GitHub", Label: "alice", Secret: secret},
		models.VaultEntry{ID: "gl", Issuer: "GitLab", Label: "bob", Secret: secret, Tags: []string{"Work"}},
		models.VaultEntry{ID: "aws", Issuer: "AWS", Label: "root", Secret: secret, Notes: "Billing account"},
	)
	_, err := f.v.SetGroup(ctx, "aws", "Cloud")
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"gh", "gl", "aws"}},
		{"git", []string{"gh", "gl"}},
		{"ALICE", []string{"gh"}},
		{"work", []string{"gl"}},
		{"cloud", []string{"aws"}},
		{"billing", []string{"aws"}},
		{"nothing", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(f.v.Search(tt.query))); diff != "" {
				t.Errorf("Search(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}
