// Package urlstate reads and writes single named parameters kept in a URL
// fragment, for example "#lang=en&theme=dark".
//
// Parsing is lenient the way browsers parse search params: pairs are split on
// "&" only, and a value that does not unescape is kept as written.
package urlstate

import (
	"fmt"
	"net/url"
	"strings"
)

type pair struct {
	key   string
	value string
}

func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return strings.ReplaceAll(s, "+", " ")
}

// parse splits a fragment into its pairs, in order.
func parse(fragment string) []pair {
	var pairs []pair
	for _, part := range strings.Split(strings.TrimPrefix(fragment, "#"), "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		pairs = append(pairs, pair{key: unescape(k), value: unescape(v)})
	}
	return pairs
}

func encode(pairs []pair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// Read returns param from the fragment, or def when the fragment or the
// parameter is absent. A leading "#" is ignored. The first occurrence wins.
func Read(fragment, param, def string) string {
	for _, p := range parse(fragment) {
		if p.key == param {
			return p.value
		}
	}
	return def
}

// SetFragment returns fragment with param set to value, other parameters
// are kept in place. The first occurrence of param is replaced and later
// ones dropped, a missing param is appended. The result has no leading "#".
func SetFragment(fragment, param, value string) string {
	pairs := parse(fragment)
	out := make([]pair, 0, len(pairs)+1)
	set := false
	for _, p := range pairs {
		if p.key != param {
			out = append(out, p)
			continue
		}
		if !set {
			out = append(out, pair{key: param, value: value})
			set = true
		}
	}
	if !set {
		out = append(out, pair{key: param, value: value})
	}
	return encode(out)
}

// Write returns rawURL with param set inside its fragment.
func Write(rawURL, param, value string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	frag := SetFragment(u.EscapedFragment(), param, value)
	decoded, err := url.PathUnescape(frag)
	if err != nil {
		return "", fmt.Errorf("set fragment: %w", err)
	}
	u.Fragment = decoded
	u.RawFragment = frag
	return u.String(), nil
}
