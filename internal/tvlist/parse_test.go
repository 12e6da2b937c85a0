package tvlist

import (
	"errors"
	"testing"

	"github.com/hartleigh/tivod/internal/channels"
)

// listingPage mirrors the structure of the real listing site: a colour
// key table under the Key heading, then channel tables under the
// Channel List heading with colour-coded platform cells.
const listingPage = `<html><body>
<h2><span id="Key">Key</span></h2>
<table>
<tr><td bgcolor="#ccffcc">SD</td><td>Standard definition</td></tr>
<tr><td bgcolor="#ffcccc">HD</td><td>High definition</td></tr>
<tr><td bgcolor="#ccccff">UHD</td><td>Ultra high definition</td></tr>
</table>
<h2><span id="Channel_List">Channel List</span></h2>
<table class="wikitable">
<tr><th>Channel</th><th>Region</th><th>TV 360</th><th>TV V6</th></tr>
<tr><td>BBC One</td><td></td><td bgcolor="#ccffcc">101</td><td bgcolor="#ccffcc">101</td></tr>
<tr><td>BBC One HD</td><td></td><td bgcolor="#ffcccc">101</td><td bgcolor="#ffcccc">108</td></tr>
<tr><td colspan="4">Entertainment</td></tr>
<tr><td>London Live</td><td>London</td><td bgcolor="#ccffcc">117</td><td bgcolor="#ccffcc">117</td></tr>
<tr><td>Notts TV</td><td>excl. London</td><td bgcolor="#ccffcc">159</td><td bgcolor="#ccffcc">159</td></tr>
<tr><td rowspan="2">Sky Cinema</td><td></td><td bgcolor="#ccffcc">401</td><td bgcolor="#ccffcc">401</td></tr>
<tr><td></td><td bgcolor="#ffcccc">401</td><td bgcolor="#ffcccc">431</td></tr>
<tr><td>Ultra Showcase</td><td></td><td bgcolor="#ccccff">999</td><td bgcolor="#ccccff">999</td></tr>
<tr><td>No Colour</td><td></td><td>555</td><td>555</td></tr>
</table>
<table class="wikitable">
<tr><th>Package</th><th>Price</th></tr>
<tr><td>Mixit</td><td>Free</td></tr>
</table>
</body></html>`

func TestParse(t *testing.T) {
	result, err := Parse([]byte(listingPage), "Eng-Lon")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []channels.RegionalChannel{
		{Number: 101, Name: "BBC One", Definition: channels.DefinitionSD},
		{Number: 108, Name: "BBC One HD", Definition: channels.DefinitionHD},
		{Number: 159, Name: "Notts TV", Definition: channels.DefinitionSD},
		{Number: 401, Name: "Sky Cinema", Definition: channels.DefinitionSD},
		{Number: 431, Name: "Sky Cinema", Definition: channels.DefinitionHD},
	}

	if len(result.Channels) != len(want) {
		t.Fatalf("got %d channels, want %d: %+v", len(result.Channels), len(want), result.Channels)
	}
	for i, w := range want {
		if result.Channels[i] != w {
			t.Errorf("channel[%d] = %+v, want %+v", i, result.Channels[i], w)
		}
	}

	// The UHD row and the uncoloured row are skipped, not fatal.
	if result.SkippedRows != 3 {
		t.Errorf("SkippedRows = %d, want 3", result.SkippedRows)
	}
}

func TestParseRegionFiltering(t *testing.T) {
	result, err := Parse([]byte(listingPage), "Eng+Lon")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var gotLondon, gotNotts bool
	for _, c := range result.Channels {
		switch c.Name {
		case "London Live":
			gotLondon = true
		case "Notts TV":
			gotNotts = true
		}
	}
	if !gotLondon {
		t.Error("Eng+Lon should include the London row")
	}
	if gotNotts {
		t.Error("Eng+Lon should exclude the excl. London row")
	}
}

func TestParseUnknownRegion(t *testing.T) {
	if _, err := Parse([]byte(listingPage), "Cornwall"); !errors.Is(err, ErrUnknownRegion) {
		t.Errorf("Parse() error = %v, want ErrUnknownRegion", err)
	}
}

func TestParseNoChannels(t *testing.T) {
	pages := map[string]string{
		"empty document":  "<html><body></body></html>",
		"missing anchor":  `<html><body><table class="wikitable"><tr><th>TV V6</th></tr></table></body></html>`,
		"no usable rows":  `<html><body><span id="Channel_List"></span><table><tr><th>Package</th></tr><tr><td>Mixit</td></tr></table></body></html>`,
		"tables but no key": `<html><body><span id="Channel_List"></span><table>
			<tr><th>Channel</th><th>Region</th><th>TV V6</th></tr>
			<tr><td>BBC One</td><td></td><td bgcolor="#ccffcc">101</td></tr>
			</table></body></html>`,
	}
	for name, page := range pages {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(page), "Eng-Lon"); !errors.Is(err, ErrParse) {
				t.Errorf("Parse() error = %v, want ErrParse", err)
			}
		})
	}
}

func TestKnownRegion(t *testing.T) {
	for _, region := range []string{"Eng+Lon", "Eng-Lon", "NI", "Scot", "Wales"} {
		if !KnownRegion(region) {
			t.Errorf("KnownRegion(%q) = false", region)
		}
	}
	if KnownRegion("Cornwall") {
		t.Error("KnownRegion(Cornwall) = true")
	}
}
