package channels

import "strings"

// MatchKey reduces a channel display name to the key used to join the
// regional and platform tables. Both sources spell names differently
// ("BBC One HD" vs "BBC ONE HD", "E4+1" vs "E4 +1"), so the key is
// lowercase with a trailing HD marker and all non-alphanumerics removed.
// The SD/HD distinction lives in the Definition field, not the key.
func MatchKey(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.TrimSuffix(s, " hd")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// detectDefinition classifies a raw display name as SD or HD from its
// trailing marker, for sources that do not carry an explicit flag.
func detectDefinition(name string) Definition {
	if strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), " hd") {
		return DefinitionHD
	}
	return DefinitionSD
}
