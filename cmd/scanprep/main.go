// Package main is the entry point for scanprep, a command line tool
// that repairs, cleans and decimates scanned meshes and exports them
// to the supported interchange formats.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	scanmesh "github.com/flywave/go-scanmesh"
	"github.com/flywave/go-scanmesh/internal/config"
	"github.com/flywave/go-scanmesh/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	input := config.InputPath()
	if input == "" {
		fmt.Fprintln(os.Stderr, "usage: scanprep [flags] <mesh file>")
		os.Exit(2)
	}

	if err := run(cfg, input); err != nil {
		logger.Error("scanprep failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, input string) error {
	formats, bad := cfg.Formats()
	for _, name := range bad {
		logger.Warn("unknown export format skipped", zap.String("format", name))
	}
	if len(formats) == 0 {
		return errors.New("no valid export formats configured")
	}

	mesh, err := scanmesh.ReadMeshFile(input)
	if err != nil {
		return err
	}
	logStats("input mesh", mesh)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipe := scanmesh.NewPipeline(cfg.ProcessingOptions())
	pipe.Logger = logger.Log
	pipe.Observer = func(ev scanmesh.ProgressEvent) {
		logger.Info("processing",
			zap.String("step", ev.Step.String()),
			zap.Int("percent", int(ev.Progress*100)))
	}

	result, err := pipe.Run(ctx, mesh)
	if err != nil {
		return err
	}
	if !result.Completed {
		logger.Warn("processing interrupted, exporting partial result",
			zap.String("lastStep", result.LastStep.String()))
	}
	for _, w := range result.Warnings {
		logger.Warn("processing warning", zap.String("warning", w))
	}
	logStats("processed mesh", result.Mesh)

	baseName := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	exporter := scanmesh.NewExporter(cfg.ExportOptions())
	exporter.Logger = logger.Log

	results, err := exporter.ExportAll(result.Mesh, formats, cfg.Export.OutputDir, baseName)
	for _, res := range results {
		for _, f := range res.Files {
			fmt.Printf("%s\t%d bytes\n", f.Path, f.ByteSize)
		}
	}
	return err
}

func logStats(label string, m *scanmesh.Mesh) {
	stats, err := scanmesh.Analyze(m)
	if err != nil {
		logger.Warn("mesh analysis failed", zap.String("mesh", label), zap.Error(err))
		return
	}
	logger.Info(label,
		zap.Int("vertices", stats.VertexCount),
		zap.Int("faces", stats.FaceCount),
		zap.Float64("surfaceArea", stats.SurfaceArea),
		zap.Float64("meanEdge", stats.MeanEdgeLength),
		zap.Int("boundaryEdges", stats.BoundaryEdges),
		zap.Int("degenerateFaces", stats.DegenerateFaces))
}
