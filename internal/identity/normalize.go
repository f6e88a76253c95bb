// Package identity derives canonical identity keys from organization URLs.
package identity

import (
	"net/url"
	"strings"
)

// Kind is the namespace of an identity key.
type Kind string

const (
	KindWeb     Kind = "web"
	KindGitHub  Kind = "github"
	KindTwitter Kind = "twitter"
)

// Key is a canonical identity token such as "github:xbmc" or "web:kodi.tv".
type Key struct {
	Kind  Kind
	Value string
}

// String renders the key as <kind>:<value>.
func (k Key) String() string {
	return string(k.Kind) + ":" + k.Value
}

// Normalizer turns raw URLs into identity keys. It is safe for concurrent
// use once constructed.
type Normalizer struct {
	deny Denylist
}

// NewNormalizer creates a Normalizer that rejects hosts in deny.
func NewNormalizer(deny Denylist) *Normalizer {
	if deny == nil {
		deny = Denylist{}
	}
	return &Normalizer{deny: deny}
}

// Normalize returns the identity key for raw, or false when the input is
// empty, unparseable, not http(s), a bare GitHub or Twitter host, or a
// denylisted host.
func (n *Normalizer) Normalize(raw string) (Key, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if strings.Trim(s, "/") == "" {
		return Key{}, false
	}
	if scheme, rest, ok := cutScheme(s); ok {
		if scheme != "http" && scheme != "https" {
			return Key{}, false
		}
		if !strings.HasPrefix(rest, "//") {
			return Key{}, false
		}
	} else {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return Key{}, false
	}

	host := u.Hostname()
	path := u.Path
	if host == "" {
		// Inputs like "http:///kodi.tv" parse with the host in the path.
		first, rest, _ := strings.Cut(strings.TrimLeft(path, "/"), "/")
		host, path = first, rest
	}
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return Key{}, false
	}

	switch {
	case isGitHubHost(host):
		return pathKey(KindGitHub, path)
	case isTwitterHost(host):
		return pathKey(KindTwitter, path)
	}

	if n.deny.Contains(host) {
		return Key{}, false
	}
	return Key{Kind: KindWeb, Value: host}, true
}

// cutScheme splits a leading "scheme:" off s. A colon followed by a digit
// is a port, as in "kodi:8080".
func cutScheme(s string) (scheme, rest string, ok bool) {
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return "", "", false
	}
	for _, r := range s[:i] {
		if r < 'a' || r > 'z' {
			return "", "", false
		}
	}
	rest = s[i+1:]
	if rest != "" && rest[0] >= '0' && rest[0] <= '9' {
		return "", "", false
	}
	return s[:i], rest, true
}

func pathKey(kind Kind, path string) (Key, bool) {
	seg, _, _ := strings.Cut(strings.Trim(path, "/"), "/")
	if seg == "" {
		return Key{}, false
	}
	return Key{Kind: kind, Value: seg}, true
}

func isGitHubHost(host string) bool {
	return strings.Contains(host, "github.com")
}

func isTwitterHost(host string) bool {
	return strings.Contains(host, "twitter.com") || host == "x.com" || strings.HasSuffix(host, ".x.com")
}
