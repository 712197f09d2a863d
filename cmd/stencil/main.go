package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/rendis/stencil/internal/builtins"
	"github.com/rendis/stencil/internal/diagram"
	"github.com/rendis/stencil/internal/engine"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/tree"
	"github.com/rendis/stencil/internal/validation"
	"github.com/rendis/stencil/pkg/mcp"
	"github.com/rendis/stencil/pkg/schema"
)

const usage = `usage: stencil <command> [flags]

commands:
  render <files>  render template documents in order (- reads stdin)
  diagram <file>  draw the template's segments and expression trees
  extensions      list registered filters, functions and tests
  mcp             serve the MCP tools over stdio
  version         print the version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var code int
	switch os.Args[1] {
	case "render":
		code = runRender(ctx, os.Args[2:], os.Stdin, os.Stdout, os.Stderr)
	case "diagram":
		code = runDiagram(ctx, os.Args[2:], os.Stdin, os.Stdout, os.Stderr)
	case "extensions":
		code = runExtensions(os.Args[2:], os.Stdout, os.Stderr)
	case "mcp":
		code = runMCP(ctx, os.Args[2:], os.Stderr)
	case "version":
		printVersion(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		code = 2
	}
	stop()
	os.Exit(code)
}

// stack is the wired engine plus the document loader sharing its registry.
type stack struct {
	engine    *engine.Engine
	documents *validation.DocumentValidator
}

func newStack(cfg Config, stderr io.Writer) (*stack, error) {
	logger := newLogger(stderr, cfg.LogLevel)
	engCfg, err := cfg.engineConfig(logger)
	if err != nil {
		return nil, err
	}

	jsv, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	reg, err := builtins.NewRegistry(jsv)
	if err != nil {
		return nil, err
	}
	docs, err := validation.NewDocumentValidator(reg)
	if err != nil {
		return nil, err
	}
	logger.Debug("registry ready", "extensions", reg.Count())
	return &stack{engine: engine.New(reg, engCfg), documents: docs}, nil
}

func runRender(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := loadConfig()
	cfg.bindFlags(fs)
	dataPath := fs.String("data", "", "JSON or YAML file merged over the document data")
	parallel := fs.Int("parallel", runtime.NumCPU(), "max documents rendered at once")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "render: expected at least one document path")
		return 2
	}

	st, err := newStack(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var data map[string]any
	if *dataPath != "" {
		if data, err = readData(*dataPath); err != nil {
			printError(stderr, err)
			return 1
		}
	}

	jobs := make([]engine.BatchJob, 0, fs.NArg())
	for _, path := range fs.Args() {
		doc, err := loadDocumentFile(st.documents, path, stdin)
		if err != nil {
			fmt.Fprintf(stderr, "%s: ", path)
			printError(stderr, err)
			return 1
		}
		if len(data) > 0 {
			if doc.Data == nil {
				doc.Data = make(map[string]any, len(data))
			}
			maps.Copy(doc.Data, data)
		}
		jobs = append(jobs, engine.BatchJob{Document: doc})
	}

	// Outputs are written in argument order once every render is done.
	results, _ := st.engine.RenderBatch(ctx, jobs, *parallel)
	code := 0
	for i, res := range results {
		if res.Err != nil {
			if len(results) > 1 {
				fmt.Fprintf(stderr, "%s: ", fs.Arg(i))
			}
			printError(stderr, res.Err)
			code = 1
			continue
		}
		if _, err := io.WriteString(stdout, res.Output); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	return code
}

func loadDocumentFile(docs *validation.DocumentValidator, path string, stdin io.Reader) (*schema.RenderDocument, error) {
	if path == "-" {
		return docs.Load(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return docs.Load(f)
}

// readData decodes a JSON or YAML object. YAML is a superset of JSON, so one
// decoder serves both.
func readData(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "data file %s: %v", path, err).WithCause(err)
	}
	return data, nil
}

func runDiagram(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("diagram", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := loadConfig()
	cfg.bindFlags(fs)
	format := fs.String("format", "ascii", "output format: ascii, mermaid, png or svg")
	outPath := fs.String("o", "", "write the diagram to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "diagram: expected exactly one document path")
		return 2
	}

	st, err := newStack(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	doc, err := loadDocumentFile(st.documents, fs.Arg(0), stdin)
	if err != nil {
		printError(stderr, err)
		return 1
	}
	tmpl, err := tree.Decode(doc)
	if err != nil {
		printError(stderr, err)
		return 1
	}
	data := doc.Data
	if data == nil {
		data = map[string]any{}
	}
	model, err := diagram.Build(tmpl, data)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var out []byte
	switch *format {
	case "ascii":
		out = []byte(diagram.RenderASCII(model))
	case "mermaid":
		out = []byte(diagram.RenderMermaid(model))
	case "png", "svg":
		out, err = diagram.RenderImage(ctx, model, diagram.ImageFormat(*format))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	default:
		fmt.Fprintf(stderr, "diagram: unknown format %q\n", *format)
		return 2
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, out, 0o644); err != nil {
			fmt.Fprintf(stderr, "Error: cannot write %s: %v\n", *outPath, err)
			return 1
		}
		return 0
	}
	if _, err := stdout.Write(out); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runExtensions(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extensions", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := loadConfig()
	cfg.bindFlags(fs)
	kind := fs.String("kind", "", "only list one kind: filter, function or test")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	switch registry.Kind(*kind) {
	case "", registry.KindFilter, registry.KindFunction, registry.KindTest:
	default:
		fmt.Fprintf(stderr, "extensions: unknown kind %q\n", *kind)
		return 2
	}

	st, err := newStack(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tPARAMS\tDESCRIPTION")
	for _, info := range st.engine.Registry().List(registry.Kind(*kind)) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Kind, info.Name, strings.Join(info.Params, ","), info.Description)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runMCP(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := loadConfig()
	cfg.bindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	st, err := newStack(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	srv := mcp.NewStencilServer(mcp.StencilServerDeps{
		Engine:    st.engine,
		Documents: st.documents,
		Version:   version,
		Logger:    newLogger(stderr, cfg.LogLevel),
	})
	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// printError writes err to w. Engine errors already lead with their [CODE].
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}
