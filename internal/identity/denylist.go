package identity

import "strings"

// Denylist is a set of hosts that are too generic to identify an
// organization (shared chat, mailing list, blogging and shortener hosts).
type Denylist map[string]struct{}

var defaultDenyHosts = []string{
	"groups.google.com",
	"plus.google.com",
	"gitter.im",
	"webchat.freenode.net",
	"medium.com",
	"lists.sourceforge.net",
	"bit.ly",
	"goo.gl",
	"t.co",
}

// DefaultDenylist returns the built-in denylist.
func DefaultDenylist() Denylist {
	return NewDenylist(defaultDenyHosts...)
}

// NewDenylist builds a denylist from host names. Entries are lowercased and
// have a leading "www." removed so they compare against normalized hosts.
func NewDenylist(hosts ...string) Denylist {
	d := make(Denylist, len(hosts))
	for _, h := range hosts {
		h = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(h)), "www.")
		if h == "" {
			continue
		}
		d[h] = struct{}{}
	}
	return d
}

// Contains reports whether host is denylisted.
func (d Denylist) Contains(host string) bool {
	_, ok := d[host]
	return ok
}
