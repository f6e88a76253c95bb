// Package align reconciles merged records against the authoritative
// organization list.
package align

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ketankauntia/gsoc-orgs/internal/merge"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
	"github.com/ketankauntia/gsoc-orgs/internal/similarity"
)

// DefaultReviewBelow is the fuzzy score under which a match is queued for
// manual review.
const DefaultReviewBelow = 0.95

// Method is how a record was matched to an authoritative name.
type Method string

const (
	MethodAlias Method = "alias"
	MethodExact Method = "exact"
	MethodFuzzy Method = "fuzzy"
)

// Status classifies an alignment outcome.
type Status string

const (
	StatusMatched Status = "matched"
	StatusExtra   Status = "extra"
	StatusMissing Status = "missing"
)

// AliasTable maps raw names to authoritative names.
type AliasTable map[string]string

// Options tunes the reconciler.
type Options struct {
	// Threshold is the minimum fuzzy score. Default: 0.88.
	Threshold float64
	// ReviewBelow queues fuzzy matches scoring under it. Default: 0.95.
	ReviewBelow float64
}

// Match links one merged record to an authoritative name.
type Match struct {
	Name          string  `json:"name"`
	Authoritative string  `json:"authoritative"`
	Method        Method  `json:"method"`
	Score         float64 `json:"score"`
}

// Outcome is the alignment of one authoritative entry, or one extra record.
type Outcome struct {
	Status        Status              `json:"status"`
	Authoritative string              `json:"authoritative,omitempty"`
	Record        *model.Organization `json:"record,omitempty"`
	Sources       []string            `json:"sources,omitempty"`
}

// Result is the output of Align.
type Result struct {
	Outcomes []Outcome            `json:"outcomes"`
	Aligned  []model.Organization `json:"aligned"`
	Matches  []Match              `json:"matches"`
	Review   []Match              `json:"review"`
	Matched  int                  `json:"matched"`
	Extra    int                  `json:"extra"`
	Missing  int                  `json:"missing"`
}

// Reconciler renames merged records to authoritative names.
type Reconciler struct {
	aliases AliasTable
	opts    Options
}

// NewReconciler creates a Reconciler.
func NewReconciler(aliases AliasTable, opts Options) *Reconciler {
	if aliases == nil {
		aliases = AliasTable{}
	}
	if opts.Threshold <= 0 {
		opts.Threshold = similarity.DefaultMatchThreshold
	}
	if opts.ReviewBelow <= 0 {
		opts.ReviewBelow = DefaultReviewBelow
	}
	return &Reconciler{aliases: aliases, opts: opts}
}

// Align maps every merged record to at most one authoritative entry. The
// alias table is consulted first, then exact names, then fuzzy matching.
// Records sharing an authoritative entry are merged under its name.
// Unmatched records are kept unchanged as extras and authoritative entries
// nobody maps to are reported missing.
func (r *Reconciler) Align(merged []model.Organization, authoritative []model.AuthoritativeOrg) *Result {
	names := make([]string, len(authoritative))
	byName := make(map[string]int, len(authoritative))
	for i, a := range authoritative {
		names[i] = a.Name
		if _, ok := byName[a.Name]; !ok {
			byName[a.Name] = i
		}
	}

	res := &Result{}
	assigned := make(map[int][]int)
	var extras []int

	for i, org := range merged {
		m, idx, ok := r.resolve(org.Name, names, byName)
		if !ok {
			extras = append(extras, i)
			continue
		}
		assigned[idx] = append(assigned[idx], i)
		res.Matches = append(res.Matches, m)
		if m.Method == MethodFuzzy {
			zap.L().Debug("align: fuzzy match",
				zap.String("name", m.Name),
				zap.String("authoritative", m.Authoritative),
				zap.Float64("score", m.Score),
			)
			if m.Score < r.opts.ReviewBelow {
				res.Review = append(res.Review, m)
			}
		}
	}

	for idx, a := range authoritative {
		members := assigned[idx]
		if len(members) == 0 {
			res.Outcomes = append(res.Outcomes, Outcome{Status: StatusMissing, Authoritative: a.Name})
			res.Missing++
			continue
		}
		group := make([]model.Organization, len(members))
		sources := make([]string, len(members))
		for k, m := range members {
			group[k] = merged[m]
			sources[k] = merged[m].Name
		}
		rec := merge.MergeAs(group, a.Name)
		res.Outcomes = append(res.Outcomes, Outcome{
			Status:        StatusMatched,
			Authoritative: a.Name,
			Record:        &rec,
			Sources:       sources,
		})
		res.Aligned = append(res.Aligned, rec)
		res.Matched++
	}

	for _, i := range extras {
		rec := merge.Clone(merged[i])
		res.Outcomes = append(res.Outcomes, Outcome{Status: StatusExtra, Record: &rec, Sources: []string{rec.Name}})
		res.Aligned = append(res.Aligned, rec)
		res.Extra++
	}

	sort.SliceStable(res.Aligned, func(i, j int) bool {
		return strings.ToLower(res.Aligned[i].Name) < strings.ToLower(res.Aligned[j].Name)
	})
	return res
}

// resolve finds the authoritative entry for name.
func (r *Reconciler) resolve(name string, names []string, byName map[string]int) (Match, int, bool) {
	if target, ok := r.aliases[name]; ok {
		if idx, ok := byName[target]; ok {
			return Match{Name: name, Authoritative: target, Method: MethodAlias, Score: 1}, idx, true
		}
	}
	if idx, ok := byName[name]; ok {
		return Match{Name: name, Authoritative: name, Method: MethodExact, Score: 1}, idx, true
	}
	if m, ok := similarity.FindBestMatch(name, names, r.opts.Threshold); ok {
		return Match{Name: name, Authoritative: m.Name, Method: MethodFuzzy, Score: m.Score}, m.Index, true
	}
	return Match{}, 0, false
}
