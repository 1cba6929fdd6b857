// modelinfo is a CLI utility for inspecting model files without a GPU.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/Faultbox/ember/internal/engine/importer"
	"github.com/Faultbox/ember/internal/engine/model"
	"github.com/Faultbox/ember/internal/engine/texture"
	"github.com/Faultbox/ember/internal/logger"
	"github.com/Faultbox/ember/pkg/formats"
)

// errUsage makes run print the usage text and exit with status 2.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	command := args[0]
	args = args[1:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args, stdout)
	case "meshes":
		err = cmdMeshes(args, stdout)
	case "materials", "mats":
		err = cmdMaterials(args, stdout)
	case "textures", "tex":
		err = cmdTextures(args, stdout)
	case "check":
		err = cmdCheck(args, stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 2
	}

	switch {
	case errors.Is(err, flag.ErrHelp):
		printUsage(stdout)
		return 0
	case errors.Is(err, errUsage):
		printUsage(stderr)
		return 2
	case err != nil:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `modelinfo - 3D model inspection utility

Usage:
  modelinfo <command> [options] <model>

Commands:
  info <model>            Show mesh, material and triangle totals
  meshes <model>          List meshes with vertex counts and bounds
  materials <model>       List materials and their texture references
  textures <model>        Check that every referenced texture decodes
  check <model>...        Import each model and report failures

Options (all commands):
  -gen-normals            Generate normals for meshes without them
  -calc-tangents          Calculate tangents and bitangents
  -v                      Log importer progress to stderr

Examples:
  modelinfo info scene.gltf
  modelinfo meshes -gen-normals teapot.obj
  modelinfo check assets/*.glb`)
}

// load parses the shared flags and imports the first positional argument.
func load(name string, args []string) (*model.LoadedModelInfo, string, error) {
	fs, im := newFlagSet(name)
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	if fs.NArg() < 1 {
		return nil, "", errUsage
	}
	path := fs.Arg(0)
	info, err := im().LoadModel(path)
	return info, path, err
}

// newFlagSet registers the shared flags. The returned func builds an
// importer from them after Parse.
func newFlagSet(name string) (*flag.FlagSet, func() *importer.Importer) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	genNormals := fs.Bool("gen-normals", false, "Generate normals")
	calcTangents := fs.Bool("calc-tangents", false, "Calculate tangents")
	verbose := fs.Bool("v", false, "Verbose logging")

	return fs, func() *importer.Importer {
		if *verbose {
			_ = logger.Init("debug", "")
		}
		return importer.New(importer.Options{
			GenNormals:       *genNormals,
			CalcTangentSpace: *calcTangents,
			Logger:           logger.Named("importer"),
		})
	}
}

func cmdInfo(args []string, w io.Writer) error {
	info, path, err := load("info", args)
	if err != nil {
		return err
	}

	format, _ := formats.Detect(path)
	b := info.Bounds()
	size := b.Size()

	fmt.Fprintf(w, "Model:     %s\n", path)
	fmt.Fprintf(w, "Format:    %s\n", format)
	fmt.Fprintf(w, "Meshes:    %d\n", len(info.Meshes))
	fmt.Fprintf(w, "Materials: %d\n", len(info.Materials))
	fmt.Fprintf(w, "Vertices:  %d\n", info.VertexCount())
	fmt.Fprintf(w, "Triangles: %d\n", info.TriangleCount())
	if !info.Empty() {
		fmt.Fprintf(w, "Bounds:    min(%.3f, %.3f, %.3f) max(%.3f, %.3f, %.3f)\n",
			b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2])
		fmt.Fprintf(w, "Size:      %.3f x %.3f x %.3f\n", size[0], size[1], size[2])
	}
	return nil
}

func cmdMeshes(args []string, w io.Writer) error {
	info, _, err := load("meshes", args)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-4s %-24s %-8s %10s %10s  %s\n", "#", "NAME", "MATERIAL", "VERTICES", "TRIANGLES", "SIZE")
	for i, m := range info.Meshes {
		mat := "-"
		if mm := info.Material(m.MaterialIndex); mm != nil {
			mat = fmt.Sprint(m.MaterialIndex)
		}
		size := m.Bounds.Size()
		fmt.Fprintf(w, "%-4d %-24s %-8s %10d %10d  %.3fx%.3fx%.3f\n",
			i, truncate(m.Name, 24), mat, len(m.Vertices()), m.TriangleCount(), size[0], size[1], size[2])
	}
	return nil
}

func cmdMaterials(args []string, w io.Writer) error {
	info, _, err := load("materials", args)
	if err != nil {
		return err
	}

	for i, mat := range info.Materials {
		fmt.Fprintf(w, "[%d] %s\n", i, mat.Name)
		for _, p := range mat.Properties() {
			fmt.Fprintf(w, "    %-20s %s\n", p.Name, p.Value)
		}
		for _, ref := range mat.TextureRefs() {
			fmt.Fprintf(w, "    %-20s %s\n", ref.Type, ref.Path)
		}
	}
	return nil
}

func cmdTextures(args []string, w io.Writer) error {
	info, _, err := load("textures", args)
	if err != nil {
		return err
	}

	missing := 0
	seen := make(map[string]bool)
	for _, mat := range info.Materials {
		for _, ref := range mat.TextureRefs() {
			if seen[ref.Path] {
				continue
			}
			seen[ref.Path] = true

			img, err := texture.DecodeFile(ref.Path)
			if err != nil {
				missing++
				fmt.Fprintf(w, "FAIL  %-10s %s: %v\n", ref.Type, ref.Path, err)
				continue
			}
			b := img.Bounds()
			fmt.Fprintf(w, "OK    %-10s %s (%dx%d)\n", ref.Type, ref.Path, b.Dx(), b.Dy())
		}
	}

	fmt.Fprintf(w, "\n%d textures, %d failed\n", len(seen), missing)
	if missing > 0 {
		return fmt.Errorf("%d textures could not be decoded", missing)
	}
	return nil
}

func cmdCheck(args []string, w io.Writer) error {
	fs, im := newFlagSet("check")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errUsage
	}

	imp := im()
	failed := 0
	for _, path := range fs.Args() {
		info, err := imp.LoadModel(path)
		if err != nil {
			failed++
			fmt.Fprintf(w, "FAIL  %s: %v\n", path, err)
			continue
		}
		if problems := verify(info); len(problems) > 0 {
			failed++
			fmt.Fprintf(w, "FAIL  %s: %d problems\n", path, len(problems))
			for _, p := range problems {
				fmt.Fprintf(w, "      %s\n", p)
			}
			continue
		}
		fmt.Fprintf(w, "OK    %s (%d meshes, %d triangles)\n", path, len(info.Meshes), info.TriangleCount())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d models failed", failed, fs.NArg())
	}
	return nil
}

// verify reports every mesh that breaks the imported-model invariants: a
// triangle list whose indices address existing vertices, and a material
// index that is NoMaterial or inside the material list.
func verify(info *model.LoadedModelInfo) []string {
	var problems []string
	for i, m := range info.Meshes {
		n := len(m.Indices())
		if n%3 != 0 {
			problems = append(problems, fmt.Sprintf("mesh %d %q: %d indices is not a triangle list", i, m.Name, n))
		}
		verts := uint32(len(m.Vertices()))
		for j, idx := range m.Indices() {
			if idx >= verts {
				problems = append(problems, fmt.Sprintf("mesh %d %q: index %d at %d out of range (%d vertices)", i, m.Name, idx, j, verts))
				break
			}
		}
		if mi := m.MaterialIndex; mi != model.NoMaterial && (mi < 0 || mi >= len(info.Materials)) {
			problems = append(problems, fmt.Sprintf("mesh %d %q: material %d out of range (%d materials)", i, m.Name, mi, len(info.Materials)))
		}
	}
	return problems
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
