// avatara exports rigged characters to Avatara MODEL and ANIMATION files and
// inspects existing ones.
package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/avatara-export/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "model", "mdl":
		err = cmdModel(args, os.Stdout)
	case "anim", "ani":
		err = cmdAnim(args, os.Stdout)
	case "info":
		err = cmdInfo(args, os.Stdout)
	case "dump":
		err = cmdDump(args, os.Stdout)
	case "bones":
		err = cmdBones(args, os.Stdout)
	case "models":
		err = cmdModels(args, os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		logger.Sync()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `avatara - Avatara character exporter

Usage:
  avatara <command> [options]

Commands:
  model [flags]        Export mesh, skin and rest skeleton to a MODEL file
  anim [flags]         Export sampled bone poses to an ANIMATION file
  bones [flags]        Print the bone hierarchy of the scene's armatures
  info <file>          Show the header of a MODEL or ANIMATION file
  dump <file>          Print every record of a MODEL or ANIMATION file
  models <grf> [glob]  List the RSM models in a GRF archive

Export flags:
  -config <file>       Config file (default ./avatara.yaml)
  -scene <file>        Scene file (.yaml, .gltf, .glb, .rsm)
  -grf <a.grf,b.grf>   Read the .rsm scene from GRF archives, last wins
  -mesh, -armature, -root, -animation
  -start, -end, -step  Inclusive frame range
  -frames 1,5,9        Explicit frame list
  -ms 40               Milliseconds per frame
  -o <file>            Output file
  -debug, -log <file>  Logging

Examples:
  avatara model -scene hero.glb -mesh Body -armature Rig -o hero.mdl
  avatara anim -scene hero.glb -armature Rig -start 1 -end 24 -o walk.ani
  avatara anim -grf data.grf -scene data/model/windmill.rsm -armature windmill -end 50 -o mill.ani
  avatara info walk.ani`)
}
