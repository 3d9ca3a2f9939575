/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Paper size classification for DNS-SD
 */

package main

// PaperSize represents the paper dimensions, in IPP units (1/100 mm)
type PaperSize struct {
	Width, Height int // Paper width and height
}

// Standard paper sizes, US and ISO:
//
//	Legal    8.5 x 14"   215.9 x 355.6 mm
//	Tabloid  11 x 17"    279.4 x 431.8 mm
//	C        17 x 22"    431.8 x 558.8 mm
//	A4       210 x 297 mm
//	A3       297 x 420 mm
//	A2       420 x 594 mm
//
// Note, the Bonjour Printing Specification gives wrong inch
// dimensions for the US sizes (9x14, 13x19 and 18x24)
var (
	PaperLegal   = PaperSize{21590, 35560}
	PaperA4      = PaperSize{21000, 29700}
	PaperTabloid = PaperSize{27940, 43180}
	PaperA3      = PaperSize{29700, 42000}
	PaperC       = PaperSize{43180, 55880}
	PaperA2      = PaperSize{42000, 59400}
)

// paperClasses define the paper size classes of the "PaperMax"
// TXT record key, largest class first. Each class is named after
// the pair of sizes, US and ISO, that bound it
var paperClasses = []struct {
	name    string
	us, iso PaperSize
}{
	{"isoC-A2", PaperC, PaperA2},
	{"tabloid-A3", PaperTabloid, PaperA3},
	{"legal-A4", PaperLegal, PaperA4},
}

// Less reports whether p fits into p2 and is not the same size,
// i.e., p doesn't exceed p2 in either dimension and is smaller
// in at least one of them
func (p PaperSize) Less(p2 PaperSize) bool {
	return p.Width <= p2.Width && p.Height <= p2.Height &&
		(p.Width < p2.Width || p.Height < p2.Height)
}

// Classify tells the class of the paper size:
//
//	">isoC-A2"   larger than C or A2
//	"isoC-A2"    C or A2
//	"tabloid-A3" Tabloid or A3
//	"legal-A4"   Legal or A4
//	"<legal-A4"  smaller than Legal and A4
func (p PaperSize) Classify() string {
	// Sizes that outgrow the largest class make a class of their own
	top := paperClasses[0]
	if top.us.Less(p) || top.iso.Less(p) {
		return ">" + top.name
	}

	// Otherwise, the class is the largest one the size
	// is not strictly below
	for _, class := range paperClasses {
		if !p.Less(class.us) || !p.Less(class.iso) {
			return class.name
		}
	}

	return "<" + paperClasses[len(paperClasses)-1].name
}
