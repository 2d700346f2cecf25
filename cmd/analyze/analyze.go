// Package analyze implements the one-shot image analysis command.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roomlens/roomlens-go/internal/conf"
	"github.com/roomlens/roomlens-go/internal/detector"
	"github.com/roomlens/roomlens-go/internal/geometry"
	"github.com/roomlens/roomlens-go/internal/hotspot"
	"github.com/roomlens/roomlens-go/internal/taxonomy"
)

// Command returns the analyze command: load the model, run detection on one
// image and print the resolved hotspots.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		containerWidth  float64
		containerHeight float64
		mirrored        bool
		asJSON          bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [image path or URL]",
		Short: "Detect furniture hotspots in a single room photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd.Context(), settings, args[0],
				geometry.Size{Width: containerWidth, Height: containerHeight},
				mirrored, asJSON)
		},
	}

	cmd.Flags().Float64Var(&containerWidth, "container-width", 390, "Display container width in pixels")
	cmd.Flags().Float64Var(&containerHeight, "container-height", 660, "Display container height in pixels")
	cmd.Flags().BoolVar(&mirrored, "mirrored", false, "Treat the display as horizontally flipped")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print hotspots as JSON")

	return cmd
}

func runAnalysis(ctx context.Context, settings *conf.Settings, source string, container geometry.Size, mirrored, asJSON bool) error {
	pipeline := detector.New(settings.Detector,
		detector.WithProgress(func(percent int) {
			fmt.Fprintf(os.Stderr, "\rloading model... %d%%", percent)
			if percent >= 100 {
				fmt.Fprintln(os.Stderr)
			}
		}))
	defer pipeline.Close()

	if err := pipeline.Load(ctx); err != nil {
		return fmt.Errorf("model load failed: %w", err)
	}

	ttl := time.Duration(settings.Detector.CacheTTLMin) * time.Minute
	analyzer := detector.NewAnalyzer(pipeline, nil, ttl, nil)

	src := detector.ImageSource{ID: source}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		src.URL = source
	} else {
		data, err := os.ReadFile(source)
		if err != nil {
			return fmt.Errorf("cannot read image %s: %w", source, err)
		}
		src.Data = data
	}

	result, err := analyzer.Analyze(ctx, src)
	if err != nil {
		return err
	}

	var catalog *taxonomy.Catalog
	if settings.Taxonomy.Endpoint != "" {
		catalog, err = taxonomy.NewClient(settings.Taxonomy).FetchCatalog(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: taxonomy unavailable, hotspots will be unmapped: %v\n", err)
		}
	}

	resolver := hotspot.NewResolver(settings.Hotspot)
	hotspots := resolver.Resolve(result.Detections, hotspot.Request{
		ImageSize:     result.ImageSize,
		ContainerSize: container,
		Mirrored:      mirrored,
		Catalog:       catalog,
	})

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hotspots)
	}

	fmt.Printf("image %.0fx%.0f, %d detections, inference %v\n",
		result.ImageSize.Width, result.ImageSize.Height,
		len(result.Detections), result.InferenceTime.Round(time.Millisecond))
	for _, h := range hotspots {
		category := "unmapped"
		if h.Category != nil {
			category = fmt.Sprintf("%s (category %d)", h.Category.Code, h.Category.CategoryID)
		}
		label := h.Label
		if h.KoLabel != "" {
			label = fmt.Sprintf("%s %s", h.Label, h.KoLabel)
		}
		fmt.Printf("  #%d %-28s conf %.2f  at (%.0f, %.0f)  -> %s\n",
			h.ID, label, h.EffectiveConfidence, h.CX, h.CY, category)
	}
	return nil
}
