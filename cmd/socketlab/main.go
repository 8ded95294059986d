// Command socketlab generates printable prosthetic socket shells from limb
// scans, either from the command line or as an HTTP service.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/akrolimb/socketlab/pkg/config"
	"github.com/akrolimb/socketlab/pkg/geom"
	"github.com/akrolimb/socketlab/pkg/job"
	"github.com/akrolimb/socketlab/pkg/limb"
	"github.com/akrolimb/socketlab/pkg/server"
	"github.com/akrolimb/socketlab/pkg/socket"
)

var log = logrus.WithField("component", "cli")

func main() {
	root := &cobra.Command{
		Use:           "socketlab",
		Short:         "prosthetic socket shell generator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(makeSocketCmd(), exampleCmd(), serveCmd())
	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func makeSocketCmd() *cobra.Command {
	var (
		limbPath      string
		outDir        string
		clearanceMM   float64
		wallMM        float64
		trimZMM       float64
		voxelMM       float64
		marksJSON     string
		recipePath    string
		assumeUnits   string
		scaleFactor   float64
		normalizePose bool
	)
	cmd := &cobra.Command{
		Use:   "make-socket",
		Short: "generate a socket shell from a limb scan",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limbPath == "" {
				return fmt.Errorf("--limb is required")
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create outdir: %w", err)
			}

			plan := socket.DefaultPlan()
			plan.ClearanceMM = clearanceMM
			plan.WallMM = wallMM
			if cmd.Flags().Changed("voxel-mm") {
				plan.VoxelMM = &voxelMM
			}
			if cmd.Flags().Changed("trim-z-mm") {
				plan.TrimZMM = &trimZMM
			}
			if marksJSON != "" {
				data, err := os.ReadFile(marksJSON)
				if err != nil {
					return fmt.Errorf("read marks: %w", err)
				}
				marks, err := socket.ParseMarks(data)
				if err != nil {
					return err
				}
				plan.Marks = marks
			}

			req := job.Request{
				LimbPath:      limbPath,
				Plan:          &plan,
				AssumeUnits:   assumeUnits,
				ScaleFactor:   scaleFactor,
				NormalizePose: normalizePose,
			}
			if recipePath != "" {
				src, err := os.ReadFile(recipePath)
				if err != nil {
					return fmt.Errorf("read recipe: %w", err)
				}
				req.Recipe = string(src)
			}

			result, err := job.Run(req, outDir, nil)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"outdir": outDir,
				"faces":  result.Stats.Faces,
			}).Info("socket generated")
			return nil
		},
	}
	cmd.Flags().StringVar(&limbPath, "limb", "", "input limb scan, binary STL (required)")
	cmd.Flags().StringVar(&outDir, "outdir", "out", "output directory")
	cmd.Flags().Float64Var(&clearanceMM, "base-clearance-mm", socket.DefaultClearanceMM, "clearance between limb and inner wall, mm")
	cmd.Flags().Float64Var(&wallMM, "wall-mm", socket.DefaultWallMM, "wall thickness, mm")
	cmd.Flags().Float64Var(&trimZMM, "trim-z-mm", 0, "cut the shell above this Z, mm")
	cmd.Flags().Float64Var(&voxelMM, "voxel-mm", 0, "voxel pitch override, mm")
	cmd.Flags().StringVar(&marksJSON, "marks-json", "", "path to a mark list JSON file")
	cmd.Flags().StringVar(&recipePath, "recipe", "", "path to a recipe file, overrides parameter flags")
	cmd.Flags().StringVar(&assumeUnits, "assume-units", "", "input units: mm, cm or m (default: heuristic)")
	cmd.Flags().Float64Var(&scaleFactor, "scale-factor", 0, "explicit vertex scale factor, overrides --assume-units")
	cmd.Flags().BoolVar(&normalizePose, "normalize-pose", false, "align the scan's principal axis with +Z")
	return cmd
}

func exampleCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "example",
		Short: "generate a synthetic limb scan and its socket",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create outdir: %w", err)
			}
			m, err := limb.Example()
			if err != nil {
				return fmt.Errorf("example limb: %w", err)
			}
			limbPath := filepath.Join(outDir, "limb.stl")
			if err := geom.SaveSTL(limbPath, m); err != nil {
				return err
			}
			result, err := job.Run(job.Request{LimbPath: limbPath}, outDir, nil)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"outdir": outDir,
				"faces":  result.Stats.Faces,
			}).Info("example generated")
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "outdir", "out", "output directory")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP service",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.ConfigureLogging()
			if err := os.MkdirAll(cfg.DataRoot, 0o755); err != nil {
				return fmt.Errorf("create data root: %w", err)
			}
			return server.New(cfg).ListenAndServe()
		},
	}
}
