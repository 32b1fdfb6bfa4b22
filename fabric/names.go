package fabric

import (
	"strconv"
	"strings"

	"github.com/sarchlab/cgrapnr/cgra"
)

func parseSide(tok string) (cgra.Side, bool) {
	switch strings.ToUpper(tok) {
	case "N":
		return cgra.N, true
	case "S":
		return cgra.S, true
	case "E":
		return cgra.E, true
	case "W":
		return cgra.W, true
	default:
		return 0, false
	}
}

func parseDir(tok string) (cgra.Direction, bool) {
	switch tok {
	case "in":
		return cgra.In, true
	case "out":
		return cgra.Out, true
	default:
		return 0, false
	}
}

// parseWireName parses the SB-wire grammar "<in|out>_BUS<w>_<side>_<track>"
// used on PE switch boxes (spec §6).
func parseWireName(name string) (dir cgra.Direction, side cgra.Side, track int, ok bool) {
	toks := strings.Split(name, "_")
	if len(toks) != 4 {
		return 0, 0, 0, false
	}
	dir, ok = parseDir(toks[0])
	if !ok || !strings.HasPrefix(toks[1], "BUS") {
		return 0, 0, 0, false
	}
	side, ok = parseSide(toks[2])
	if !ok {
		return 0, 0, 0, false
	}
	track, err := strconv.Atoi(toks[3])
	if err != nil {
		return 0, 0, 0, false
	}
	return dir, side, track, true
}

// parseMemWireName parses the memory-wire grammar
// "in_<side>_BUS<w>_<track>" / "out_<side>_BUS<w>_<track>" (spec §6).
func parseMemWireName(name string) (dir cgra.Direction, side cgra.Side, track int, ok bool) {
	toks := strings.Split(name, "_")
	if len(toks) != 4 {
		return 0, 0, 0, false
	}
	dir, ok = parseDir(toks[0])
	if !ok {
		return 0, 0, 0, false
	}
	side, ok = parseSide(toks[1])
	if !ok || !strings.HasPrefix(toks[2], "BUS") {
		return 0, 0, 0, false
	}
	track, err := strconv.Atoi(toks[3])
	if err != nil {
		return 0, 0, 0, false
	}
	return dir, side, track, true
}

// regTrackFromSnk extracts the track number from a register-slot mux's snk
// attribute (the SB-wire grammar's trailing track field).
func regTrackFromSnk(snk string) (int, bool) {
	_, _, track, ok := parseWireName(snk)
	return track, ok
}

// isPEOutputSrc reports whether a <src> text node refers to the tile's own
// PE output port, identified by the "pe_out_res" port name convention
// (spec §6: "PE output is a single logical port named pe_out_res").
func isPEOutputSrc(name string) bool {
	return strings.HasPrefix(name, "pe_out_res")
}

const busPrefix = "BUS"

// busWidthToken strips the "BUS" prefix off a tracks-attribute token such
// as "BUS16:4", returning ("16", 4).
func busWidthToken(tok string) (width string, count int, ok bool) {
	parts := strings.SplitN(tok, ":", 2)
	if len(parts) != 2 || !strings.HasPrefix(parts[0], busPrefix) {
		return "", 0, false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, false
	}
	return parts[0][len(busPrefix):], n, true
}
