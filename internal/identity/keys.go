package identity

import (
	"sort"
	"strings"

	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

// KeysFor returns the identity keys used for grouping: the website key of
// any kind, the GitHub social when it yields a github key, and the Twitter
// social when it yields a twitter key.
func (n *Normalizer) KeysFor(org model.Organization) []Key {
	var keys []Key
	if k, ok := n.Normalize(org.Website); ok {
		keys = append(keys, k)
	}
	if k, ok := n.Normalize(org.Socials.GitHub); ok && k.Kind == KindGitHub {
		keys = appendUnique(keys, k)
	}
	if k, ok := n.Normalize(org.Socials.Twitter); ok && k.Kind == KindTwitter {
		keys = appendUnique(keys, k)
	}
	return keys
}

// WebsiteKey returns the key of the website alone.
func (n *Normalizer) WebsiteKey(org model.Organization) (Key, bool) {
	return n.Normalize(org.Website)
}

// AllKeysFor returns every key reachable from the record's links, including
// blog, mailing list and unclassified links.
func (n *Normalizer) AllKeysFor(org model.Organization) []Key {
	keys := n.KeysFor(org)
	for _, raw := range []string{org.Socials.Blog, org.Socials.MailingList} {
		if k, ok := n.Normalize(raw); ok {
			keys = appendUnique(keys, k)
		}
	}
	for _, l := range org.Socials.Other {
		if k, ok := n.Normalize(l.URL); ok {
			keys = appendUnique(keys, k)
		}
	}
	return keys
}

func appendUnique(keys []Key, k Key) []Key {
	for _, existing := range keys {
		if existing == k {
			return keys
		}
	}
	return append(keys, k)
}

// Index maps identity keys to the indices of the records carrying them.
type Index struct {
	orgs   []model.Organization
	byKey  map[Key][]int
	sorted []Key
}

// SharedKey is a key carried by records with more than one distinct name.
type SharedKey struct {
	Key     Key      `json:"key"`
	Names   []string `json:"names"`
	Records []int    `json:"records"`
}

// BuildIndex indexes all keys of orgs.
func (n *Normalizer) BuildIndex(orgs []model.Organization) *Index {
	idx := &Index{orgs: orgs, byKey: make(map[Key][]int)}
	for i, org := range orgs {
		for _, k := range n.AllKeysFor(org) {
			if _, ok := idx.byKey[k]; !ok {
				idx.sorted = append(idx.sorted, k)
			}
			idx.byKey[k] = append(idx.byKey[k], i)
		}
	}
	return idx
}

// Lookup returns the record indices carrying k.
func (idx *Index) Lookup(k Key) []int {
	return idx.byKey[k]
}

// Len returns the number of distinct keys.
func (idx *Index) Len() int {
	return len(idx.byKey)
}

// Shared lists keys carried by records with different names, most names
// first, then by key.
func (idx *Index) Shared() []SharedKey {
	var out []SharedKey
	for _, k := range idx.sorted {
		recs := idx.byKey[k]
		seen := make(map[string]struct{})
		var names []string
		for _, i := range recs {
			name := strings.TrimSpace(idx.orgs[i].Name)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
		if len(names) < 2 {
			continue
		}
		sort.Strings(names)
		out = append(out, SharedKey{Key: k, Names: names, Records: recs})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Names) != len(out[j].Names) {
			return len(out[i].Names) > len(out[j].Names)
		}
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}
