package fabric

import "encoding/xml"

// xmlFabric is the root element of a fabric description document
// (spec §4.B, §6). Its grammar mirrors the CGRA-family fabric XML format:
// a flat list of tiles, each carrying the connection-box and switch-box
// wiring local to that tile.
type xmlFabric struct {
	XMLName xml.Name  `xml:"fabric"`
	Tiles   []xmlTile `xml:"tile"`
}

type xmlTile struct {
	Row    int      `xml:"row,attr"`
	Col    int      `xml:"col,attr"`
	Type   string   `xml:"type,attr"` // "memory_tile" is Mem; any other value is PE
	Tracks string   `xml:"tracks,attr"`
	CBs    []xmlCB  `xml:"cb"`
	SBs    []xmlSB  `xml:"sb"`
}

type xmlCB struct {
	Bus   string   `xml:"bus,attr"`
	Muxes []xmlMux `xml:"mux"`
}

type xmlSB struct {
	Bus   string   `xml:"bus,attr"`
	Row   int      `xml:"row,attr"` // memory-tile SB row offset; 0 for PE tiles
	Muxes []xmlMux `xml:"mux"`
	FTs   []xmlFT  `xml:"ft"`
}

type xmlMux struct {
	Snk  string   `xml:"snk,attr"`
	Reg  string   `xml:"reg,attr"` // "1" marks a legal pipeline-register slot
	Srcs []string `xml:"src"`
}

type xmlFT struct {
	Snk string `xml:"snk,attr"`
	Src string `xml:"src"`
}
