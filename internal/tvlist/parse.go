package tvlist

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hartleigh/tivod/internal/channels"
)

// Page anchors and column names used by the listing site.
const (
	anchorKey         = "Key"
	anchorChannelList = "Channel_List"
	colChannel        = "channel"
	colRegion         = "region"
	colPlatform       = "tv v6"
)

// definitionKeywords are the key-table entries the parser understands.
// Only sd and hd map onto directory definitions; the rest are noted and
// skipped.
var definitionKeywords = map[string]channels.Definition{
	"sd": channels.DefinitionSD,
	"hd": channels.DefinitionHD,
}

// keyTableKeywords is the full set of keywords that may appear in the
// colour key, including ones the directory does not model.
var keyTableKeywords = map[string]bool{
	"sd": true, "hd": true, "uhd": true, "+1": true,
}

// regionTokens maps a configured region to the lowercase tokens that can
// appear in a row's region column. A row with an empty region column
// applies everywhere.
var regionTokens = map[string][]string{
	"Eng+Lon": {"eng", "london"},
	"Eng-Lon": {"eng", "excl. london"},
	"NI":      {"ni"},
	"Scot":    {"scot"},
	"Wales":   {"wales"},
}

// ParseResult carries the parsed table plus parse diagnostics.
type ParseResult struct {
	Channels []channels.RegionalChannel

	// SkippedRows counts rows that were present but unusable: no
	// recognisable colour, an unparsable number, or a definition the
	// directory does not model.
	SkippedRows int
}

// Parse extracts the regional channel table for one region from the
// listing page HTML.
//
// Unrecognised tables and rows are skipped, not fatal; Parse fails with
// ErrParse only when zero entries are recovered, so a layout change
// cannot silently produce an empty directory.
func Parse(source []byte, region string) (*ParseResult, error) {
	tokens, ok := regionTokens[region]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}

	doc, err := html.Parse(strings.NewReader(string(source)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	// Flatten to document order once; the colour key and the channel
	// tables are both located relative to heading anchors.
	nodes := flatten(doc)

	colours := parseColourKey(nodes)

	result := &ParseResult{}
	for _, table := range tablesAfter(nodes, anchorChannelList) {
		parseChannelTable(table, colours, tokens, result)
	}

	if len(result.Channels) == 0 {
		return nil, ErrParse
	}
	return result, nil
}

// parseColourKey reads the key table that declares which background
// colour marks which definition. Returns colour -> keyword.
func parseColourKey(nodes []*html.Node) map[string]string {
	colours := make(map[string]string)
	for _, table := range tablesAfter(nodes, anchorKey) {
		for _, row := range findAll(table, "tr") {
			tds := findAll(row, "td")
			if len(tds) == 0 {
				continue
			}
			keyword := strings.ToLower(strings.TrimSpace(text(tds[0])))
			if !keyTableKeywords[keyword] {
				continue
			}
			if colour := strings.ToLower(attr(tds[0], "bgcolor")); colour != "" {
				colours[colour] = keyword
			}
		}
		// Only the first table after the anchor is the key.
		break
	}
	return colours
}

// tableCell is one td with the attributes the parser cares about.
type tableCell struct {
	text    string
	bgcolor string
	rowspan int
	colspan int
}

func newTableCell(n *html.Node) tableCell {
	c := tableCell{
		text:    strings.TrimSpace(text(n)),
		bgcolor: strings.ToLower(attr(n, "bgcolor")),
		rowspan: 1,
	}
	if v, err := strconv.Atoi(attr(n, "rowspan")); err == nil {
		c.rowspan = v
	}
	if v, err := strconv.Atoi(attr(n, "colspan")); err == nil {
		c.colspan = v
	}
	return c
}

// parseChannelTable walks one wiki table, accumulating entries for rows
// that carry a platform number in a recognised colour and sit inside the
// requested region.
func parseChannelTable(table *html.Node, colours map[string]string, tokens []string, result *ParseResult) {
	var headings []string
	for _, th := range findAll(table, "th") {
		headings = append(headings, strings.ToLower(strings.TrimSpace(text(th))))
	}
	if !containsString(headings, colPlatform) {
		// Not a channel table (package pricing, notes, etc).
		return
	}

	rows := findAll(table, "tr")
	if len(rows) < 2 {
		return
	}

	// Cells spanning multiple rows carry their value down, so remember
	// the previous row's values per column.
	rowSpans := make([]int, len(headings))
	prev := make([]tableCell, len(headings))

	for _, row := range rows[1:] {
		tds := findAll(row, "td")
		if len(tds) == 0 {
			continue
		}
		first := newTableCell(tds[0])
		if first.colspan > 1 {
			// Divider row between channel groups.
			continue
		}

		cells := make([]tableCell, len(headings))
		cursor := 0
		for col := range headings {
			if rowSpans[col] > 1 {
				cells[col] = prev[col]
				rowSpans[col]--
				continue
			}
			if cursor >= len(tds) {
				break
			}
			cells[col] = newTableCell(tds[cursor])
			rowSpans[col] = cells[col].rowspan
			cursor++
		}
		copy(prev, cells)

		entry, ok := rowToChannel(headings, cells, colours, tokens)
		if !ok {
			result.SkippedRows++
			continue
		}
		result.Channels = append(result.Channels, entry)
	}
}

// rowToChannel converts one table row into a regional channel entry.
func rowToChannel(headings []string, cells []tableCell, colours map[string]string, tokens []string) (channels.RegionalChannel, bool) {
	var name, regionCol string
	var platform tableCell

	for i, heading := range headings {
		if i >= len(cells) {
			break
		}
		switch heading {
		case colChannel:
			name = cells[i].text
		case colRegion:
			regionCol = cells[i].text
		case colPlatform:
			platform = cells[i]
		}
	}

	if name == "" || !regionMatches(regionCol, tokens) {
		return channels.RegionalChannel{}, false
	}

	keyword, ok := colours[platform.bgcolor]
	if !ok {
		return channels.RegionalChannel{}, false
	}
	definition, ok := definitionKeywords[keyword]
	if !ok {
		return channels.RegionalChannel{}, false
	}

	number, err := strconv.Atoi(platform.text)
	if err != nil || number <= 0 {
		return channels.RegionalChannel{}, false
	}

	return channels.RegionalChannel{
		Number:     number,
		Name:       name,
		Definition: definition,
	}, true
}

// regionMatches reports whether a row's region column includes the
// requested region. An empty column means the row applies everywhere.
func regionMatches(regionCol string, tokens []string) bool {
	regionCol = strings.TrimSpace(regionCol)
	if regionCol == "" {
		return true
	}
	for _, part := range strings.Split(strings.ToLower(regionCol), ",") {
		part = strings.TrimSpace(part)
		for _, token := range tokens {
			if part == token {
				return true
			}
		}
	}
	return false
}

// KnownRegion reports whether the region has a known token mapping.
func KnownRegion(region string) bool {
	_, ok := regionTokens[region]
	return ok
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
