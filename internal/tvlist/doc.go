// Package tvlist scrapes the third-party channel listing site for the
// regional channel numbering that the platform guide API does not carry.
//
// The site publishes the listing as wiki tables. Channel numbers are
// colour-coded by definition; the colours are declared in a key table on
// the same page, so the parser reads the key first and classifies cells
// by background colour. Rows outside the configured region are skipped.
package tvlist
