package channels

import "testing"

func TestMatchKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "BBC One", "bbcone"},
		{"hd suffix stripped", "BBC One HD", "bbcone"},
		{"case insensitive", "BBC ONE", "bbcone"},
		{"punctuation removed", "E4 +1", "e41"},
		{"punctuation variants collapse", "E4+1", "e41"},
		{"ampersand removed", "Sky Arts & Culture", "skyartsculture"},
		{"internal hd kept", "HDTV News", "hdtvnews"},
		{"leading and trailing space", "  ITV2  ", "itv2"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchKey(tt.input); got != tt.want {
				t.Errorf("MatchKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMatchKeyJoinsSourceSpellings(t *testing.T) {
	// The two upstreams spell the same channel differently.
	pairs := [][2]string{
		{"BBC One HD", "BBC ONE HD"},
		{"Channel 4", "CHANNEL 4"},
		{"E4 +1", "E4+1"},
	}
	for _, p := range pairs {
		if MatchKey(p[0]) != MatchKey(p[1]) {
			t.Errorf("MatchKey(%q) != MatchKey(%q)", p[0], p[1])
		}
	}
}

func TestDetectDefinition(t *testing.T) {
	if got := detectDefinition("BBC One HD"); got != DefinitionHD {
		t.Errorf("detectDefinition(BBC One HD) = %v, want HD", got)
	}
	if got := detectDefinition("BBC One"); got != DefinitionSD {
		t.Errorf("detectDefinition(BBC One) = %v, want SD", got)
	}
	if got := detectDefinition("HDTV News"); got != DefinitionSD {
		t.Errorf("detectDefinition(HDTV News) = %v, want SD", got)
	}
}
