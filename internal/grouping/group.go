// Package grouping partitions raw organization records into groups that
// describe the same real-world organization.
package grouping

import (
	"context"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/ketankauntia/gsoc-orgs/internal/identity"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
	"github.com/ketankauntia/gsoc-orgs/internal/similarity"
)

// DefaultFuzzyThreshold is the minimum token-set score (0-100) linking two
// records that have no usable website.
const DefaultFuzzyThreshold = 90

// Options tunes the grouper.
type Options struct {
	// FuzzyThreshold on a 0-100 scale. Default: 90.
	FuzzyThreshold float64
	// Workers scoring fuzzy candidate pairs. Default: GOMAXPROCS.
	Workers int
}

// Group is one equivalence class of records.
type Group struct {
	// Members are indices into the input, ascending.
	Members []int
	// Keys are the identity keys carried by the members.
	Keys []identity.Key
	// Fuzzy is set when at least one member was linked by name similarity.
	Fuzzy bool
}

// Grouper links records by shared identity keys, then by name similarity
// for records without a usable website.
type Grouper struct {
	norm *identity.Normalizer
	opts Options
}

// NewGrouper creates a Grouper.
func NewGrouper(norm *identity.Normalizer, opts Options) *Grouper {
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Grouper{norm: norm, opts: opts}
}

// Group returns a partition of orgs: every index appears in exactly one
// group. Records without a name never take part in fuzzy matching and end
// up alone unless a URL key links them.
func (g *Grouper) Group(ctx context.Context, orgs []model.Organization) ([]Group, error) {
	ds := NewDisjointSet(len(orgs))
	keysOf := make([][]identity.Key, len(orgs))

	firstWithKey := make(map[identity.Key]int)
	var candidates []int
	for i, org := range orgs {
		keysOf[i] = g.norm.KeysFor(org)
		for _, k := range keysOf[i] {
			if j, ok := firstWithKey[k]; ok {
				ds.Union(i, j)
				continue
			}
			firstWithKey[k] = i
		}
		if _, ok := g.norm.WebsiteKey(org); !ok && strings.TrimSpace(org.Name) != "" {
			candidates = append(candidates, i)
		}
	}

	pairs, err := g.scoreCandidates(ctx, orgs, candidates)
	if err != nil {
		return nil, err
	}

	fuzzy := make(map[int]bool)
	for _, p := range pairs {
		ds.Union(p[0], p[1])
		fuzzy[p[0]] = true
		fuzzy[p[1]] = true
	}

	parts := ds.Groups()
	groups := make([]Group, 0, len(parts))
	for _, members := range parts {
		grp := Group{Members: members}
		seen := make(map[identity.Key]struct{})
		for _, m := range members {
			if fuzzy[m] {
				grp.Fuzzy = true
			}
			for _, k := range keysOf[m] {
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}
				grp.Keys = append(grp.Keys, k)
			}
		}
		groups = append(groups, grp)
	}
	return groups, nil
}

// scoreCandidates compares every pair of candidates in parallel and
// returns the linked pairs. Rows are striped across workers; each worker
// writes only its own slot.
func (g *Grouper) scoreCandidates(ctx context.Context, orgs []model.Organization, candidates []int) ([][2]int, error) {
	if len(candidates) < 2 {
		return nil, nil
	}

	workers := min(g.opts.Workers, len(candidates))
	results := make([][][2]int, workers)
	threshold := g.opts.FuzzyThreshold

	eg, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		eg.Go(func() error {
			for r := w; r < len(candidates); r += workers {
				if err := gctx.Err(); err != nil {
					return eris.Wrap(err, "grouping: score candidates")
				}
				a := orgs[candidates[r]].Name
				for _, c := range candidates[r+1:] {
					b := orgs[c].Name
					if !similarity.Compatible(a, b) {
						continue
					}
					if similarity.TokenSetRatio(a, b)*100 >= threshold {
						results[w] = append(results[w], [2]int{candidates[r], c})
					}
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var pairs [][2]int
	for _, r := range results {
		pairs = append(pairs, r...)
	}
	return pairs, nil
}
