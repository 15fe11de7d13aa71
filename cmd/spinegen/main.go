// spinegen generates synthetic lumbar spine meshes from the statistical shape model.
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/Faultbox/spinegen/internal/batch"
	"github.com/Faultbox/spinegen/internal/config"
	"github.com/Faultbox/spinegen/internal/logger"
	"github.com/Faultbox/spinegen/pkg/formats"
	"github.com/Faultbox/spinegen/pkg/ssm"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "shape":
		cmdShape(args)
	case "animate", "anim":
		cmdAnimate(args)
	case "info":
		cmdInfo(args)
	case "variables", "vars":
		cmdVariables()
	case "inspect":
		cmdInspect(args)
	case "init-config":
		cmdInitConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`spinegen - lumbar spine statistical shape model generator

Usage:
  spinegen <command> [options]

Commands:
  shape -var NAME -y VALUE [-o file.stl]   Generate one mesh
  animate -var NAME [-n SAMPLES]           Generate a min-max-min animation
  info [NAME]                              Show model tables and statistics
  variables                                List modelled variables
  inspect <file.stl>                       Show mesh statistics
  init-config [path]                       Write a default config file

Common options:
  -config FILE    Config file (default ./spinegen.yaml)
  -model DIR      Shape model directory
  -out DIR        Output directory
  -format FMT     binary or ascii STL
  -workers N      Concurrent animation frames
  -debug          Debug logging

Examples:
  spinegen shape -model ./SSM -var Female -y 0
  spinegen animate -model ./SSM -out ./animation -var meanFacetAngle
  spinegen info -model ./SSM meanDiscHeight`)
}

func fail(format string, args ...any) {
	logger.Sync()
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setup loads configuration and initializes logging for a parsed command.
func setup(flags *config.Flags) *config.Config {
	cfg, err := config.Load(flags)
	if err != nil {
		fail("Config error: %v", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fail("Logger error: %v", err)
	}
	logger.Sugar.Debugf("Config: %+v", cfg)
	return cfg
}

func parseVariable(name string) ssm.Variable {
	if name == "" {
		fail("Missing -var (see 'spinegen variables')")
	}
	v, err := ssm.ParseVariable(name)
	if err != nil {
		fail("Error: %v", err)
	}
	return v
}

func cmdShape(args []string) {
	fs := flag.NewFlagSet("shape", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	varName := fs.String("var", "", "Variable name")
	y := fs.Float64("y", 0, "Target value of the variable")
	output := fs.String("o", "", "Output file (default <out>/<var>_<y>.stl)")
	fs.Parse(args)

	v := parseVariable(*varName)
	cfg := setup(flags)
	defer logger.Sync()

	d, err := batch.New(cfg, logger.Log)
	if err != nil {
		fail("Error: %v", err)
	}

	path, err := d.Shape(v, *y, *output)
	if err != nil {
		logger.Error("shape generation failed", zap.Error(err))
		fail("Error: %v", err)
	}
	fmt.Println(path)
}

func cmdAnimate(args []string) {
	fs := flag.NewFlagSet("animate", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	varName := fs.String("var", "", "Variable name")
	fs.Parse(args)

	v := parseVariable(*varName)
	cfg := setup(flags)
	defer logger.Sync()

	d, err := batch.New(cfg, logger.Log)
	if err != nil {
		fail("Error: %v", err)
	}

	res, err := d.Animate(v, "")
	if err != nil {
		fail("Error: %v", err)
	}
	for _, p := range res.Paths {
		fmt.Println(p)
	}
	fmt.Fprintf(os.Stderr, "\n(%d frames written)\n", len(res.Paths))
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg := setup(flags)
	defer logger.Sync()

	d, err := batch.New(cfg, logger.Log)
	if err != nil {
		fail("Error: %v", err)
	}
	store := d.Store()
	faces, err := store.Faces()
	if err != nil {
		fail("Error: %v", err)
	}
	mean, err := store.MeanVertices()
	if err != nil {
		fail("Error: %v", err)
	}

	fmt.Printf("Model:    %s\n", store.Dir())
	fmt.Printf("Vertices: %d\n", len(mean)/3)
	fmt.Printf("Faces:    %d\n", len(faces))
	fmt.Println()

	vars := store.Available()
	if fs.NArg() > 0 {
		vars = []ssm.Variable{parseVariable(fs.Arg(0))}
	}
	if len(vars) == 0 {
		fmt.Fprintln(os.Stderr, "No variable tables found")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIABLE\tMEAN\tMIN\tMAX\tLATENT DIMS")
	for _, v := range vars {
		model, err := store.Load(v)
		if err != nil {
			fmt.Fprintf(tw, "%s\terror: %v\t\t\t\n", v, err)
			continue
		}
		st := model.Stats
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t%d\n", v, st.Mean, st.Min, st.Max, len(model.LoadingsY))
	}
	tw.Flush()
}

func cmdVariables() {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIABLE\tKIND\tOBSERVED RANGE\tDESCRIPTION")
	for _, info := range ssm.Variables() {
		rng := fmt.Sprintf("%g - %g", info.ObservedMin, info.ObservedMax)
		if info.Unit != "" {
			rng += " " + info.Unit
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Variable, info.Kind, rng, info.Description)
	}
	tw.Flush()
}

func cmdInspect(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: spinegen inspect <file.stl>")
		os.Exit(1)
	}

	s, err := formats.LoadSTL(args[0])
	if err != nil {
		fail("Error: %v", err)
	}
	m := s.Mesh()
	box := m.BoundingBox()
	size := box.Size()

	fmt.Printf("File:      %s\n", args[0])
	fmt.Printf("Format:    %s\n", s.Format)
	fmt.Printf("Header:    %s\n", s.Header)
	fmt.Printf("Triangles: %d\n", m.Len())
	fmt.Printf("Bounds:    (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n",
		box.Min.X, box.Min.Y, box.Min.Z, box.Max.X, box.Max.Y, box.Max.Z)
	fmt.Printf("Size:      %.3f x %.3f x %.3f\n", size.X, size.Y, size.Z)
	fmt.Printf("Area:      %.3f\n", m.SurfaceArea())
}

func cmdInitConfig(args []string) {
	path := "spinegen.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		fail("Refusing to overwrite existing %s", path)
	}
	if err := config.Default().SaveTo(path); err != nil {
		fail("Error writing config: %v", err)
	}
	fmt.Printf("Wrote %s\n", path)
}
