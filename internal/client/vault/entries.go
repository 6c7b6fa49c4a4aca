package vault

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/dmitrijs2005/otpvault/internal/client/models"
	"github.com/dmitrijs2005/otpvault/internal/common"
)

const defaultListLimit = 10

func cloneEntries(in []models.VaultEntry) []models.VaultEntry {
	out := make([]models.VaultEntry, 0, len(in))
	for _, e := range in {
		out = append(out, e.Clone())
	}
	return out
}

func (v *Vault) indexLocked(id string) int {
	return slices.IndexFunc(v.entries, func(e models.VaultEntry) bool { return e.ID == id })
}

func (v *Vault) upsertLocked(e models.VaultEntry) {
	if i := v.indexLocked(e.ID); i >= 0 {
		v.entries[i] = e
		return
	}
	v.entries = append(v.entries, e)
}

// mutate runs fn under the state lock of an unlocked vault and schedules a
// write when fn reports a change.
func (v *Vault) mutate(ctx context.Context, fn func() (bool, error)) error {
	v.mu.Lock()
	if err := v.requireUnlockedLocked(); err != nil {
		v.mu.Unlock()
		return err
	}
	changed, err := fn()
	if err != nil || !changed {
		v.mu.Unlock()
		return err
	}
	v.scheduleLocked()
	st := v.stateLocked()
	v.mu.Unlock()
	v.emit(ctx, st)
	return nil
}

// updateEntry applies fn to the entry with id and bumps updatedAt when fn
// reports a change.
func (v *Vault) updateEntry(ctx context.Context, id string, fn func(e *models.VaultEntry) bool) (models.VaultEntry, error) {
	var out models.VaultEntry
	err := v.mutate(ctx, func() (bool, error) {
		i := v.indexLocked(id)
		if i < 0 {
			return false, common.ErrEntryNotFound
		}
		e := &v.entries[i]
		changed := fn(e)
		if changed {
			e.UpdatedAt = v.now().UTC()
		}
		out = e.Clone()
		return changed, nil
	})
	return out, err
}

// AddEntry normalizes partial and inserts it, replacing an entry with the
// same id.
func (v *Vault) AddEntry(ctx context.Context, partial models.VaultEntry) (models.VaultEntry, error) {
	var out models.VaultEntry
	err := v.mutate(ctx, func() (bool, error) {
		e, err := models.NormalizeEntry(partial, v.now())
		if err != nil {
			return false, err
		}
		v.upsertLocked(e)
		out = e.Clone()
		return true, nil
	})
	return out, err
}

// RemoveEntry deletes the entry with id. Unknown ids are ignored.
func (v *Vault) RemoveEntry(ctx context.Context, id string) error {
	return v.mutate(ctx, func() (bool, error) {
		i := v.indexLocked(id)
		if i < 0 {
			return false, nil
		}
		v.entries = slices.Delete(v.entries, i, i+1)
		return true, nil
	})
}

// ImportEntries normalizes and upserts each element on its own. A bad
// element is reported in its result and does not stop the batch.
func (v *Vault) ImportEntries(ctx context.Context, batch []models.VaultEntry) ([]models.ImportResult, error) {
	results := make([]models.ImportResult, 0, len(batch))
	err := v.mutate(ctx, func() (bool, error) {
		now := v.now()
		changed := false
		for _, partial := range batch {
			e, err := models.NormalizeEntry(partial, now)
			if err != nil {
				results = append(results, models.ImportResult{
					Status: models.ImportFailed,
					Reason: err.Error(),
					Input:  partial.Clone(),
				})
				continue
			}
			v.upsertLocked(e)
			results = append(results, models.ImportResult{Status: models.ImportOK, Entry: e.Clone()})
			changed = true
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (v *Vault) AddTag(ctx context.Context, id, tag string) (models.VaultEntry, error) {
	return v.updateEntry(ctx, id, func(e *models.VaultEntry) bool {
		if e.HasTag(tag) {
			return false
		}
		e.Tags = append(e.Tags, tag)
		return true
	})
}

func (v *Vault) RemoveTag(ctx context.Context, id, tag string) (models.VaultEntry, error) {
	return v.updateEntry(ctx, id, func(e *models.VaultEntry) bool {
		if !e.HasTag(tag) {
			return false
		}
		e.Tags = slices.DeleteFunc(e.Tags, func(t string) bool { return t == tag })
		return true
	})
}

// SetGroup moves the entry into group. An empty group removes it from any
// group.
func (v *Vault) SetGroup(ctx context.Context, id, group string) (models.VaultEntry, error) {
	return v.updateEntry(ctx, id, func(e *models.VaultEntry) bool {
		if e.GroupName() == group {
			return false
		}
		if group == "" {
			e.Group = nil
		} else {
			g := group
			e.Group = &g
		}
		return true
	})
}

func (v *Vault) ToggleFavorite(ctx context.Context, id string) (models.VaultEntry, error) {
	return v.updateEntry(ctx, id, func(e *models.VaultEntry) bool {
		e.Favorite = !e.Favorite
		return true
	})
}

func (v *Vault) UpdateNotes(ctx context.Context, id, notes string) (models.VaultEntry, error) {
	return v.updateEntry(ctx, id, func(e *models.VaultEntry) bool {
		if e.Notes == notes {
			return false
		}
		e.Notes = notes
		return true
	})
}

func (v *Vault) IncrementUseCount(ctx context.Context, id string) (models.VaultEntry, error) {
	updated, err := v.IncrementUseCounts(ctx, []string{id})
	if err != nil {
		return models.VaultEntry{}, err
	}
	if len(updated) == 0 {
		return models.VaultEntry{}, common.ErrEntryNotFound
	}
	return updated[0], nil
}

// IncrementUseCounts adds one use per occurrence of each id and stamps
// lastUsed. Empty and unknown ids are skipped; the result holds one entry
// per distinct known id in first-seen order.
func (v *Vault) IncrementUseCounts(ctx context.Context, ids []string) ([]models.VaultEntry, error) {
	var order []string
	counts := make(map[string]int)
	for _, id := range ids {
		if id == "" {
			continue
		}
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}
	if len(order) == 0 {
		v.mu.Lock()
		defer v.mu.Unlock()
		return []models.VaultEntry{}, v.requireUnlockedLocked()
	}

	var updated []models.VaultEntry
	err := v.mutate(ctx, func() (bool, error) {
		now := v.now().UTC()
		for _, id := range order {
			i := v.indexLocked(id)
			if i < 0 {
				continue
			}
			e := &v.entries[i]
			e.UseCount += counts[id]
			used := now
			e.LastUsed = &used
			e.UpdatedAt = now
			updated = append(updated, e.Clone())
		}
		return len(updated) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		updated = []models.VaultEntry{}
	}
	return updated, nil
}

// Entries returns a copy of the entry list in insertion order. A locked
// vault has no entries.
func (v *Vault) Entries() []models.VaultEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return cloneEntries(v.entries)
}

func (v *Vault) Entry(id string) (models.VaultEntry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := v.indexLocked(id)
	if i < 0 {
		return models.VaultEntry{}, common.ErrEntryNotFound
	}
	return v.entries[i].Clone(), nil
}

func (v *Vault) filter(keep func(e models.VaultEntry) bool) []models.VaultEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := []models.VaultEntry{}
	for _, e := range v.entries {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// AllTags returns every distinct tag, sorted.
func (v *Vault) AllTags() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var tags []string
	for _, e := range v.entries {
		tags = append(tags, e.Tags...)
	}
	slices.Sort(tags)
	return slices.Compact(tags)
}

func (v *Vault) EntriesByTag(tag string) []models.VaultEntry {
	return v.filter(func(e models.VaultEntry) bool { return e.HasTag(tag) })
}

// AllGroups returns every distinct non-empty group, sorted.
func (v *Vault) AllGroups() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var groups []string
	for _, e := range v.entries {
		if g := e.GroupName(); g != "" {
			groups = append(groups, g)
		}
	}
	slices.Sort(groups)
	return slices.Compact(groups)
}

// EntriesByGroup returns the entries in group; "" selects ungrouped entries.
func (v *Vault) EntriesByGroup(group string) []models.VaultEntry {
	return v.filter(func(e models.VaultEntry) bool { return e.GroupName() == group })
}

func (v *Vault) Favorites() []models.VaultEntry {
	return v.filter(func(e models.VaultEntry) bool { return e.Favorite })
}

// RecentlyUsed returns up to limit used entries, most recent first.
// A non-positive limit means 10.
func (v *Vault) RecentlyUsed(limit int) []models.VaultEntry {
	out := v.filter(func(e models.VaultEntry) bool { return e.LastUsed != nil })
	slices.SortStableFunc(out, func(a, b models.VaultEntry) int {
		return b.LastUsed.Compare(*a.LastUsed)
	})
	return truncate(out, limit)
}

// MostUsed returns up to limit used entries, highest use count first.
// A non-positive limit means 10.
func (v *Vault) MostUsed(limit int) []models.VaultEntry {
	out := v.filter(func(e models.VaultEntry) bool { return e.UseCount > 0 })
	slices.SortStableFunc(out, func(a, b models.VaultEntry) int {
		return cmp.Compare(b.UseCount, a.UseCount)
	})
	return truncate(out, limit)
}

func truncate(in []models.VaultEntry, limit int) []models.VaultEntry {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(in) > limit {
		return in[:limit]
	}
	return in
}

// Search matches query case-insensitively against issuer, label, tags,
// group and notes. An empty query returns every entry.
func (v *Vault) Search(query string) []models.VaultEntry {
	q := strings.ToLower(query)
	return v.filter(func(e models.VaultEntry) bool { return Matches(e, q) })
}

// Matches reports whether e matches an already lower-cased query.
func Matches(e models.VaultEntry, lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	contains := func(s string) bool { return strings.Contains(strings.ToLower(s), lowerQuery) }
	if contains(e.Issuer) || contains(e.Label) || contains(e.GroupName()) || contains(e.Notes) {
		return true
	}
	return slices.ContainsFunc(e.Tags, contains)
}
