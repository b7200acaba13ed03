package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/binzume/umeshconv/converter"
	"github.com/binzume/umeshconv/scene"
	"github.com/binzume/umeshconv/umesh"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	input  string
	output string

	config          string
	vertex          string
	colors          string
	textures        string
	maxTexture      int
	strictNames     bool
	allowUnreadable bool
	root            string
	clips           stringList
	info            bool
	assets          string
	scene           string

	set map[string]bool
}

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	log.SetOutput(stderr)
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = convert(ctx, opts, stdout)
	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprintln(stderr, err)
		return exitUsage
	} else if err != nil {
		log.Print(err)
		return exitError
	}
	return exitOK
}

func parseOptions(args []string, stderr io.Writer) (*options, error) {
	opts := &options{set: map[string]bool{}}
	fs := flag.NewFlagSet("umeshconv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: umeshconv [flags] input.glb|input.unity|input.unitypackage|input.umb [output.umb]\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.config, "config", "", "export config file (.json, .yaml)")
	fs.StringVar(&opts.vertex, "vertex", "", "vertex attributes (e.g. position,normal,uv1)")
	fs.StringVar(&opts.colors, "colors", "", "material color properties")
	fs.StringVar(&opts.textures, "textures", "", "material texture properties")
	fs.IntVar(&opts.maxTexture, "maxtex", 0, "max texture size. 0:unlimited")
	fs.BoolVar(&opts.strictNames, "strict-names", false, "fail on non-ASCII names")
	fs.BoolVar(&opts.allowUnreadable, "allow-unreadable", false, "export non-readable textures")
	fs.StringVar(&opts.root, "root", "", "root node of skinned export (default: first animator)")
	fs.Var(&opts.clips, "clip", "additional .anim file (Unity)")
	fs.BoolVar(&opts.info, "info", false, "print the content of a umesh file")
	fs.StringVar(&opts.assets, "assets", "", "Assets directory of a .unity scene")
	fs.StringVar(&opts.scene, "scene", "", "scene asset path in a .unitypackage")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	switch fs.NArg() {
	case 1:
		opts.input = fs.Arg(0)
	case 2:
		opts.input, opts.output = fs.Arg(0), fs.Arg(1)
	default:
		fs.Usage()
		return nil, fmt.Errorf("umeshconv: expected input [output]")
	}
	return opts, nil
}

func splitList(s string) []string {
	var list []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	return list
}

// exportOptions loads the config file and applies the flags given on the command line.
func (o *options) exportOptions() (converter.ExportOptions, error) {
	opts := converter.DefaultExportOptions()
	if o.config != "" {
		var err error
		if opts, err = converter.LoadExportOptions(o.config); err != nil {
			return opts, err
		}
	}
	if o.set["vertex"] {
		f, err := umesh.ParseVertexFormat(o.vertex)
		if err != nil {
			return opts, &usageError{err.Error()}
		}
		opts.Vertex = f.Layout()
	}
	if o.set["colors"] {
		opts.ColorProperties = splitList(o.colors)
	}
	if o.set["textures"] {
		opts.TextureProperties = splitList(o.textures)
	}
	if o.set["maxtex"] {
		if o.maxTexture < 0 {
			return opts, &usageError{"umeshconv: -maxtex must not be negative"}
		}
		opts.MaxTextureSize = o.maxTexture
	}
	if o.set["strict-names"] {
		opts.StrictNames = o.strictNames
	}
	if o.set["allow-unreadable"] {
		opts.AllowUnreadableTextures = o.allowUnreadable
	}
	return opts, nil
}

func defaultOutputFile(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + umesh.KindStaticBinary.Extension()
}

func convert(ctx context.Context, o *options, stdout io.Writer) error {
	inputKind := umesh.KindFromPath(o.input)
	if inputKind != umesh.KindUnknown {
		if o.info || o.output == "" {
			return printInfo(stdout, o.input)
		}
		return reencode(ctx, o.input, o.output)
	}
	if o.info {
		return &usageError{"umeshconv: -info needs a umesh file"}
	}

	output := o.output
	if output == "" {
		output = defaultOutputFile(o.input)
	}
	outputKind := umesh.KindFromPath(output)
	if outputKind == umesh.KindUnknown || outputKind.IsClip() {
		return &usageError{fmt.Sprintf("umeshconv: unsupported output %s", output)}
	}
	exportOpts, err := o.exportOptions()
	if err != nil {
		return err
	}

	s, err := o.loadScene()
	if err != nil {
		return err
	}

	log.Print("out: ", output)
	exporter := converter.NewExporter(exportOpts, converter.FixedDestination(output))
	exporter.Progress = converter.LogProgress
	var written []string
	if outputKind.IsSkinned() {
		root := findRoot(s, o.root)
		if root == nil {
			return fmt.Errorf("%w: no root node for skinned export", converter.ErrUnsupportedInput)
		}
		written, err = exporter.ExportSkinned(ctx, root, converter.EncodingOf(outputKind))
	} else {
		written, err = exporter.ExportScene(ctx, s, converter.EncodingOf(outputKind))
	}
	for _, path := range written {
		fmt.Fprintln(stdout, path)
	}
	return err
}

func (o *options) loadScene() (*scene.Scene, error) {
	switch ext := strings.ToLower(filepath.Ext(o.input)); ext {
	case ".gltf", ".glb", ".vrm":
		return converter.LoadGLTF(o.input)
	case ".unity":
		assets := o.assets
		if assets == "" {
			assets = findAssetsDir(o.input)
		}
		if assets == "" {
			return nil, &usageError{"umeshconv: -assets is required for " + o.input}
		}
		return converter.LoadUnityScene(assets, o.input, o.clips)
	case ".unitypackage":
		return converter.LoadUnityScene(o.input, o.scene, o.clips)
	default:
		return nil, &usageError{fmt.Sprintf("umeshconv: unsupported input type: %s", ext)}
	}
}

// findAssetsDir returns the nearest ancestor directory named "Assets".
func findAssetsDir(path string) string {
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return ""
	}
	for {
		if filepath.Base(dir) == "Assets" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// findRoot returns the node named name, or the first node with an animator.
func findRoot(s *scene.Scene, name string) *scene.Node {
	if name != "" {
		return s.FindByName(name)
	}
	var root *scene.Node
	s.Walk(func(n *scene.Node) bool {
		if n.Animator != nil {
			root = n
		}
		return root == nil
	})
	return root
}

func reencode(ctx context.Context, input, output string) error {
	doc, err := umesh.Load(input)
	if err != nil {
		return err
	}
	kind := umesh.KindFromPath(output)
	if kind == umesh.KindUnknown || kind.Text() != umesh.KindFromPath(input).Text() {
		return &usageError{fmt.Sprintf("umeshconv: cannot convert %s to %s", input, output)}
	}
	return converter.WriteDocument(ctx, output, kind, doc)
}
