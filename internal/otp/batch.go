package otp

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Entry is the read-only view of a vault entry the engine needs.
type Entry struct {
	ID          string
	Issuer      string
	Label       string
	Secret      string
	Digits      int
	Period      int
	Algorithm   Algorithm
	EpochOffset int64
}

// GeneratedToken is a freshly generated code for one entry. It is never persisted.
type GeneratedToken struct {
	ID        string `json:"id"`
	Issuer    string `json:"issuer"`
	Label     string `json:"label"`
	Code      string `json:"code"`
	ExpiresIn int    `json:"expiresIn"`
	Digits    int    `json:"digits"`
}

// BatchOptions controls GenerateBatch. Sort defaults to true when nil;
// Comparator defaults to issuer then label in locale order.
type BatchOptions struct {
	Timestamp  time.Time
	Sort       *bool
	Comparator func(a, b Entry) int
}

// IssuerLabelComparator orders entries by issuer, then label, using a
// locale-aware collator.
func IssuerLabelComparator() func(a, b Entry) int {
	c := collate.New(language.Und)
	return func(a, b Entry) int {
		if r := c.CompareString(a.Issuer, b.Issuer); r != 0 {
			return r
		}
		return c.CompareString(a.Label, b.Label)
	}
}

// GenerateBatch computes one code and time window per entry concurrently,
// all at the same timestamp. Output order follows the comparator, or the
// input order when sorting is disabled.
func (e *Engine) GenerateBatch(ctx context.Context, entries []Entry, opts BatchOptions) ([]GeneratedToken, error) {
	ts := opts.Timestamp
	if ts.IsZero() {
		ts = e.now()
	}

	working := entries
	if opts.Sort == nil || *opts.Sort {
		cmp := opts.Comparator
		if cmp == nil {
			cmp = IssuerLabelComparator()
		}
		working = slices.Clone(entries)
		slices.SortStableFunc(working, cmp)
	}

	out := make([]GeneratedToken, len(working))
	g, ctx := errgroup.WithContext(ctx)
	for i, entry := range working {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o := Options{
				Digits:      entry.Digits,
				Period:      entry.Period,
				Algorithm:   entry.Algorithm,
				Timestamp:   ts,
				EpochOffset: entry.EpochOffset,
			}.withDefaults(e.now)

			code, err := e.Generate(entry.Secret, o)
			if err != nil {
				return err
			}
			w := TimeWindowAt(o.Period, ts.UnixMilli(), o.EpochOffset)
			out[i] = GeneratedToken{
				ID:        entry.ID,
				Issuer:    entry.Issuer,
				Label:     entry.Label,
				Code:      code,
				ExpiresIn: w.ExpiresIn,
				Digits:    o.Digits,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateBatch uses the shared default Engine.
func GenerateBatch(ctx context.Context, entries []Entry, opts BatchOptions) ([]GeneratedToken, error) {
	return defaultEngine.GenerateBatch(ctx, entries, opts)
}
