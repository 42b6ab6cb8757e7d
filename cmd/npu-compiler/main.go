package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/gpustack/npu-compiler-core/pkg/buffer"
	"github.com/gpustack/npu-compiler-core/pkg/bufmgr"
	"github.com/gpustack/npu-compiler-core/pkg/compiler"
	"github.com/gpustack/npu-compiler-core/pkg/debugctx"
	"github.com/gpustack/npu-compiler-core/pkg/hwcaps"
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/parts"
	"github.com/gpustack/npu-compiler-core/pkg/tensor"
	"github.com/gpustack/npu-compiler-core/util/httpx"
	"github.com/gpustack/npu-compiler-core/util/json"
	"github.com/gpustack/npu-compiler-core/util/osx"
	"github.com/gpustack/npu-compiler-core/util/signalx"
)

var Version = "v0.0.0"

var (
	graphPath string
	outPath   = "command_stream.bin"
	debug     bool
	debugDir  = "./npu-compiler-debug"
	uploadURL string
	threads   int
)

func main() {
	name := filepath.Base(os.Args[0])
	app := &cli.App{
		Name:                   name,
		Usage:                  "Compile a graph-of-parts description into an Ethos-N-style command stream.",
		UsageText:              name + " <command> [command options]",
		Version:                Version,
		UseShortOptionHandling: true,
		HideVersion:            true,
		HideHelp:               true,
		Reader:                 os.Stdin,
		Writer:                 os.Stdout,
		ErrWriter:              os.Stderr,
		OnUsageError: func(c *cli.Context, _ error, _ bool) error {
			return cli.ShowAppHelp(c)
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:               "help",
				Aliases:            []string{"h"},
				Usage:              "Print the usage.",
				DisableDefaultText: true,
			},
			&cli.BoolFlag{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "Print the version.",
				DisableDefaultText: true,
			},
			&cli.BoolFlag{
				Destination: &debug,
				Value:       debug,
				Name:        "debug",
				Usage:       "Enable debugging, dumps a part-graph .dot file and a buffer-lifetime table.",
			},
			&cli.StringFlag{
				Destination: &debugDir,
				Value:       debugDir,
				Name:        "debug-dir",
				Usage:       "Directory debug dumps are written to, when --debug is set.",
			},
			&cli.IntFlag{
				Destination: &threads,
				Value:       0,
				Name:        "threads",
				Usage:       "Overrides ETHOSN_SUPPORT_LIBRARY_NUM_THREADS for this run (0 keeps the current environment/default).",
			},
		},
		Before: func(c *cli.Context) error {
			if threads > 0 {
				return os.Setenv("ETHOSN_SUPPORT_LIBRARY_NUM_THREADS", strconv.Itoa(threads))
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "compile",
				Usage: "Compile a graph-of-parts description into a command stream and buffer layout.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Destination: &graphPath,
						Value:       graphPath,
						Name:        "graph",
						Aliases:     []string{"g"},
						Usage:       "Path to a JSON graph-of-parts description to compile.",
						Required:    true,
					},
					&cli.StringFlag{
						Destination: &outPath,
						Value:       outPath,
						Name:        "out",
						Aliases:     []string{"o"},
						Usage:       "Path to write the compiled command stream to.",
					},
					&cli.StringFlag{
						Destination: &uploadURL,
						Value:       uploadURL,
						Name:        "upload-url",
						Usage:       "Optional dashboard URL debug dumps are POSTed to, in addition to --debug-dir.",
					},
				},
				Action: runCompile,
			},
			{
				Name:  "inspect-weights",
				Usage: "Compile a graph-of-parts description and list its constant-DMA buffer sizes, without writing a command stream.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Destination: &graphPath,
						Value:       graphPath,
						Name:        "graph",
						Aliases:     []string{"g"},
						Usage:       "Path to a JSON graph-of-parts description to compile.",
						Required:    true,
					},
				},
				Action: runInspectWeights,
			},
			{
				Name:  "dump-graph",
				Usage: "Parse a graph-of-parts description and write a Graphviz .dot rendering of it, without compiling.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Destination: &graphPath,
						Value:       graphPath,
						Name:        "graph",
						Aliases:     []string{"g"},
						Usage:       "Path to a JSON graph-of-parts description to dump.",
						Required:    true,
					},
				},
				Action: runDumpGraph,
			},
		},
	}

	if err := app.RunContext(signalx.Handler(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// frontEndGraph is the JSON shape --graph accepts: a minimal front-end
// description sufficient to exercise the pipeline end to end, in lieu of
// the full Operation-visitor front-end named as a collaborator in spec §6.
type frontEndGraph struct {
	Parts []frontEndPart `json:"parts"`
	Edges []frontEndEdge `json:"edges"`
}

type frontEndPart struct {
	ID          int       `json:"id"`
	OutputShape [4]uint32 `json:"output_shape"`
	HasInput    bool      `json:"has_input"`
	InputSlot   bool      `json:"input_slot"`
	OutputSlot  bool      `json:"output_slot"`
}

type frontEndEdge struct {
	SrcPart int `json:"src_part"`
	SrcSlot int `json:"src_slot"`
	DstPart int `json:"dst_part"`
	DstSlot int `json:"dst_slot"`
}

func loadGraph(path string) (*parts.GraphOfParts, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph description: %w", err)
	}

	var fe frontEndGraph
	if err := json.Unmarshal(raw, &fe); err != nil {
		return nil, fmt.Errorf("parsing graph description: %w", err)
	}

	g := parts.New()
	for _, p := range fe.Parts {
		shape := tensor.Shape{N: p.OutputShape[0], H: p.OutputShape[1], W: p.OutputShape[2], C: p.OutputShape[3]}
		out := buffer.Buffer{Location: buffer.Dram, Format: buffer.NHWC, TensorShape: shape, SizeBytes: uint32(shape.NumElements())}

		pg := opgraph.New()
		plan := &opgraph.Plan{
			ID:             0,
			Graph:          pg,
			InputMappings:  map[opgraph.BufferID]opgraph.SlotID{},
			OutputMappings: map[opgraph.BufferID]opgraph.SlotID{},
		}
		var inBuf opgraph.BufferID
		if p.HasInput {
			inBuf = pg.AddBuffer(out)
			plan.InputMappings[inBuf] = 0
		}
		outBuf := pg.AddBuffer(out)
		if p.HasInput {
			pg.AddOp(opgraph.Op{Kind: opgraph.KindDma, Inputs: []opgraph.BufferID{inBuf}, Output: outBuf})
		}
		plan.OutputMappings[outBuf] = 0

		part := &parts.Part{ID: parts.PartID(p.ID), Plans: []*opgraph.Plan{plan}}
		if p.InputSlot {
			part.InputSlots = []opgraph.SlotID{0}
		}
		if p.OutputSlot {
			part.OutputSlots = []opgraph.SlotID{0}
		}
		g.AddPart(part)
	}

	for _, e := range fe.Edges {
		g.Connect(parts.PartID(e.SrcPart), opgraph.SlotID(e.SrcSlot), parts.PartID(e.DstPart), opgraph.SlotID(e.DstSlot))
	}

	return g, nil
}

func runCompile(c *cli.Context) error {
	g, err := loadGraph(graphPath)
	if err != nil {
		return err
	}

	opts := compiler.Options{
		Caps:  hwcaps.Default(),
		Debug: debugctx.New(debugDir, debug),
	}

	result, err := compiler.Compile(g, opts)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}

	if err := osx.WriteFile(outPath, result.CommandStream, 0o644); err != nil {
		return fmt.Errorf("writing command stream: %w", err)
	}

	fmt.Printf("wrote %d bytes of command stream to %s\n", len(result.CommandStream), outPath)
	fmt.Printf("estimated total cycles: %d\n", result.Perf.TotalCycles)

	printBufferLayout(result.Buffers)

	if uploadURL != "" {
		if err := uploadDebugDump(c.Context, result.Buffers); err != nil {
			return fmt.Errorf("uploading debug dump: %w", err)
		}
	}

	return nil
}

// runInspectWeights compiles g and lists each constant-DMA buffer's ID and
// allocated size, without writing the command stream. Encoded weight sizes
// are not reported: the "Encoded Bytes" column always reads n/a.
func runInspectWeights(c *cli.Context) error {
	g, err := loadGraph(graphPath)
	if err != nil {
		return err
	}

	opts := compiler.Options{Caps: hwcaps.Default()}
	result, err := compiler.Compile(g, opts)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}

	tb := tablewriter.NewWriter(os.Stdout)
	tb.SetHeader([]string{"Buffer ID", "Raw Bytes", "Encoded Bytes"})
	tb.SetAutoFormatHeaders(false)
	for _, l := range result.Buffers.ConstantDma {
		tb.Append([]string{fmt.Sprintf("%d", l.ID), fmt.Sprintf("%d", l.Size), "n/a"})
	}
	tb.Render()

	fmt.Printf("estimated total cycles: %d\n", result.Perf.TotalCycles)
	return nil
}

// runDumpGraph parses the front-end description and writes a Graphviz
// .dot rendering of it, without running the combiner/materializer.
func runDumpGraph(c *cli.Context) error {
	g, err := loadGraph(graphPath)
	if err != nil {
		return err
	}

	dc := debugctx.New(debugDir, true)
	if err := dc.DumpPartGraphDot("parts", g); err != nil {
		return fmt.Errorf("dumping part graph: %w", err)
	}

	fmt.Printf("wrote %s/parts.dot\n", debugDir)
	return nil
}

// uploadDebugDump POSTs a buffer-layout report to --upload-url, the optional
// remote artifact upload path: internal dashboards want the layout table
// without having to scrape --debug-dir off the build host.
func uploadDebugDump(ctx context.Context, buffers bufmgr.Result) error {
	var sb strings.Builder
	fmt.Fprintln(&sb, "region\tid\toffset\tsize")
	report := func(region string, layouts []bufmgr.Layout) {
		for _, l := range layouts {
			fmt.Fprintf(&sb, "%s\t%d\t%d\t%d\n", region, l.ID, l.Offset, l.Size)
		}
	}
	report("input", buffers.Inputs)
	report("output", buffers.Outputs)
	report("constant_dma", buffers.ConstantDma)
	report("constant_control_unit", buffers.ConstantControlUnit)
	report("intermediate", buffers.Intermediates)

	cli := httpx.Client(debug)
	return httpx.UploadDebugDump(ctx, cli, uploadURL, "buffers.txt", []byte(sb.String()))
}

func printBufferLayout(res bufmgr.Result) {
	tb := tablewriter.NewWriter(os.Stdout)
	tb.SetHeader([]string{"Region", "Buffer ID", "Offset", "Size"})
	tb.SetAutoFormatHeaders(false)

	add := func(region string, layouts []bufmgr.Layout) {
		for _, l := range layouts {
			tb.Append([]string{region, fmt.Sprintf("%d", l.ID), fmt.Sprintf("%d", l.Offset), fmt.Sprintf("%d", l.Size)})
		}
	}
	add("Input", res.Inputs)
	add("Output", res.Outputs)
	add("ConstantDma", res.ConstantDma)
	add("ConstantControlUnit", res.ConstantControlUnit)
	add("Intermediate", res.Intermediates)

	tb.Render()
}
