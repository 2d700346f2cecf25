// Package benchmark implements the inference benchmark command.
package benchmark

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/roomlens/roomlens-go/internal/conf"
	"github.com/roomlens/roomlens-go/internal/detector"
)

// Command returns the benchmark command: repeated inference on one image to
// measure model throughput on the current hardware.
func Command(settings *conf.Settings) *cobra.Command {
	var runs int

	cmd := &cobra.Command{
		Use:   "benchmark [image path]",
		Short: "Benchmark detection inference speed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd.Context(), settings, args[0], runs)
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 10, "Number of inference runs")
	return cmd
}

func runBenchmark(ctx context.Context, settings *conf.Settings, imagePath string, runs int) error {
	if runs < 1 {
		runs = 1
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("cannot read image %s: %w", imagePath, err)
	}

	pipeline := detector.New(settings.Detector)
	defer pipeline.Close()

	loadStart := time.Now()
	if err := pipeline.Load(ctx); err != nil {
		return fmt.Errorf("model load failed: %w", err)
	}
	fmt.Printf("model loaded in %v\n", time.Since(loadStart).Round(time.Millisecond))

	// Bypass the analyzer cache: every run must hit the engine.
	analyzer := detector.NewAnalyzer(pipeline, nil, time.Nanosecond, nil)

	durations := make([]time.Duration, 0, runs)
	for i := 0; i < runs; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		analyzer.Invalidate(imagePath)
		result, err := analyzer.Analyze(ctx, detector.ImageSource{ID: imagePath, Data: data})
		if err != nil {
			return fmt.Errorf("run %d failed: %w", i+1, err)
		}
		durations = append(durations, result.InferenceTime)
		fmt.Printf("  run %2d: %v (%d detections)\n",
			i+1, result.InferenceTime.Round(time.Millisecond), len(result.Detections))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	fmt.Printf("runs=%d min=%v median=%v mean=%v max=%v\n",
		runs,
		durations[0].Round(time.Millisecond),
		durations[len(durations)/2].Round(time.Millisecond),
		(total / time.Duration(runs)).Round(time.Millisecond),
		durations[len(durations)-1].Round(time.Millisecond))
	return nil
}
