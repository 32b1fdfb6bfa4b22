// Command pnr is the thin CLI collaborator spec.md §6 names: place-design,
// route-design, write-bitstream, print. It is a minimal driver over the
// session package, not part of the core (spec.md §1 lists the CLI as an
// out-of-scope external collaborator).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cgrapnr/design"
	"github.com/sarchlab/cgrapnr/fabric"
	"github.com/sarchlab/cgrapnr/session"
	"github.com/sarchlab/cgrapnr/state"
)

func main() {
	atexit.Register(func() {})
	atexit.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: pnr <place-design|route-design|write-bitstream|print> [flags]")
		return 2
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "place-design":
		return runPlaceDesign(rest, stdout, stderr)
	case "route-design":
		return runRouteDesign(rest, stdout, stderr)
	case "write-bitstream":
		return runWriteBitstream(rest, stdout, stderr)
	case "print":
		return runPrint(rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "pnr: unknown subcommand %q\n", sub)
		return 2
	}
}

// commonFlags holds the fabric/design/bus-width/config flags every
// subcommand needs.
type commonFlags struct {
	fabricPath string
	designPath string
	configPath string
	busWidth   int
}

func bindCommonFlags(fs *flag.FlagSet) *commonFlags {
	cf := &commonFlags{}
	fs.StringVar(&cf.fabricPath, "fabric", "", "path to the fabric XML description")
	fs.StringVar(&cf.designPath, "design", "", "path to the design graph YAML")
	fs.StringVar(&cf.configPath, "config", "", "path to a session config YAML (optional)")
	fs.IntVar(&cf.busWidth, "bus-width", 16, "bus-width layer to route on")
	return cf
}

func loadSession(cf *commonFlags) (*fabric.Fabric, *design.Design, *session.Session, error) {
	xmlBytes, err := os.ReadFile(cf.fabricPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading fabric XML: %w", err)
	}
	f, err := fabric.NewBuilder().WithXML(xmlBytes).Build()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building fabric: %w", err)
	}

	designFile, err := os.Open(cf.designPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening design YAML: %w", err)
	}
	defer designFile.Close()
	d, err := design.LoadYAML(designFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading design: %w", err)
	}

	cfg := session.DefaultConfig()
	if cf.configPath != "" {
		configFile, err := os.Open(cf.configPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening config: %w", err)
		}
		defer configFile.Close()
		cfg, err = session.LoadConfig(configFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loading config: %w", err)
		}
	}

	s, err := session.New(f, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("constructing session: %w", err)
	}
	return f, d, s, nil
}

func runPlaceDesign(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("place-design", flag.ContinueOnError)
	cf := bindCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	_, d, s, err := loadSession(cf)
	if err != nil {
		fmt.Fprintln(stderr, "pnr:", err)
		return 1
	}

	ps, relaxed, err := s.Place(context.Background(), d)
	if err != nil {
		fmt.Fprintln(stderr, "pnr: place-design:", err)
		return 1
	}
	mode := "strict"
	if relaxed {
		mode = "relaxed"
	}
	fmt.Fprintf(stdout, "placed %d modules (%s)\n", len(ps.Modules()), mode)
	return 0
}

func runRouteDesign(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("route-design", flag.ContinueOnError)
	cf := bindCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	_, d, s, err := loadSession(cf)
	if err != nil {
		fmt.Fprintln(stderr, "pnr:", err)
		return 1
	}

	result, err := s.Run(context.Background(), d, cf.busWidth)
	if err != nil {
		fmt.Fprintln(stderr, "pnr: route-design:", err)
		return 1
	}
	fmt.Fprintf(stdout, "routed %d nets (status %s)\n", len(result.Routing.Nets()), result.Status)
	return 0
}

func runWriteBitstream(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("write-bitstream", flag.ContinueOnError)
	cf := bindCommonFlags(fs)
	outPath := fs.String("out", "", "output path for the bitstream text (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	_, d, s, err := loadSession(cf)
	if err != nil {
		fmt.Fprintln(stderr, "pnr:", err)
		return 1
	}

	result, err := s.Run(context.Background(), d, cf.busWidth)
	if err != nil {
		fmt.Fprintln(stderr, "pnr: write-bitstream:", err)
		return 1
	}

	out := stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(stderr, "pnr: write-bitstream:", err)
			return 1
		}
		defer f.Close()
		out = f
	}
	if err := s.WriteBitstream(out, d, cf.busWidth, result.Routing); err != nil {
		fmt.Fprintln(stderr, "pnr: write-bitstream:", err)
		return 1
	}
	return 0
}

func runPrint(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("print", flag.ContinueOnError)
	cf := bindCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	f, d, s, err := loadSession(cf)
	if err != nil {
		fmt.Fprintln(stderr, "pnr:", err)
		return 1
	}

	result, err := s.Run(context.Background(), d, cf.busWidth)
	if err != nil {
		fmt.Fprintln(stderr, "pnr: print:", err)
		return 1
	}

	printPlacement(stdout, d, result.Placement)
	fmt.Fprintln(stdout)
	printRouting(stdout, f, d, cf.busWidth, result.Routing)
	return 0
}

func printPlacement(w *os.File, d *design.Design, ps *state.PlacementState) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Placement")
	t.AppendHeader(table.Row{"Module", "Resource", "X", "Y", "Track", "Side", "Color"})
	for _, m := range d.Modules {
		pos, ok := ps.Lookup(m)
		if !ok {
			continue
		}
		t.AppendRow(table.Row{m.Name, m.Resource.Name(), pos.X, pos.Y, pos.Track, pos.Side.Name(), pos.Color})
	}
	t.Render()
}

func printRouting(w *os.File, f *fabric.Fabric, d *design.Design, busWidth int, rs *state.RoutingState) {
	layer := f.Layer(busWidth)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Routing")
	t.AppendHeader(table.Row{"Net", "Bus Width", "Hops", "Path"})
	for _, n := range d.Nets {
		path, ok := rs.Path(n)
		if !ok {
			continue
		}
		debug := rs.DebugPath(n, layer)
		t.AppendRow(table.Row{
			fmt.Sprintf("%s.%s->%s.%s", n.Src.Name, n.SrcPort, n.Dst.Name, n.DstPort),
			path.BusWidth, len(path.Tracks), debug,
		})
	}
	t.Render()
}
