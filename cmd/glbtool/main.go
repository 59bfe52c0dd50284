// glbtool generates and checks binary glTF (GLB) files.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openlaptop/viewer/internal/glb"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "generate", "gen":
		cmdGenerate(args)
	case "validate":
		cmdValidate(args)
	case "inspect":
		cmdInspect(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`glbtool - binary glTF utility

Usage:
  glbtool <command> [options]

Commands:
  generate [-o path]        Write the sample cube model
  validate [-json] <file>   Check the GLB header and container structure
  inspect <file>            Show mesh, vertex and triangle counts

Examples:
  glbtool generate -o public/models/sample-virgo.glb
  glbtool validate public/models/sample-virgo.glb
  glbtool inspect public/models/sample-virgo.glb`)
}

func cmdGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	out := fs.String("o", filepath.Join("public", "models", "sample-virgo.glb"), "Output path")
	fs.Parse(args)

	mesh := glb.SampleCube()
	data, err := glb.Encode(mesh)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s (%d bytes, %d vertices, %d triangles)\n",
		*out, len(data), mesh.VertexCount(), mesh.TriangleCount())
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: glbtool validate [-json] <file>")
		os.Exit(1)
	}

	data := readFile(fs.Arg(0))
	result := glb.Validate(data)
	strictErr := glb.ValidateStrict(data)

	if *asJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	} else {
		fmt.Printf("File:    %s\n", fs.Arg(0))
		fmt.Printf("Exists:  %v\n", result.Exists)
		fmt.Printf("Valid:   %v\n", result.IsValid)
		fmt.Printf("Size:    %d bytes\n", result.Size)
		if result.Error != nil {
			fmt.Printf("Error:   %s\n", *result.Error)
		}
		if strictErr != nil {
			fmt.Printf("Strict:  %v\n", strictErr)
		} else {
			fmt.Println("Strict:  ok")
		}
	}

	if !result.IsValid || strictErr != nil {
		os.Exit(1)
	}
}

func cmdInspect(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: glbtool inspect <file>")
		os.Exit(1)
	}

	summary, err := glb.Inspect(readFile(args[0]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("File:       %s\n", args[0])
	fmt.Printf("glTF:       %s\n", summary.AssetVersion)
	if summary.Generator != "" {
		fmt.Printf("Generator:  %s\n", summary.Generator)
	}
	fmt.Printf("Meshes:     %d\n", summary.Meshes)
	fmt.Printf("Primitives: %d\n", summary.Primitives)
	fmt.Printf("Vertices:   %d\n", summary.Vertices)
	fmt.Printf("Triangles:  %d\n", summary.Triangles)
	fmt.Printf("Bounds:     [%g %g %g] .. [%g %g %g]\n",
		summary.Min[0], summary.Min[1], summary.Min[2],
		summary.Max[0], summary.Max[1], summary.Max[2])
}

func readFile(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return data
}
