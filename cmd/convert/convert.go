// Package convert implements batch document conversion from the command
// line.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/gearmap/gearmap-go/internal/conf"
	"github.com/gearmap/gearmap-go/internal/convert"
	"github.com/gearmap/gearmap-go/internal/iconstore"
	"github.com/gearmap/gearmap-go/internal/mapping"
	"github.com/gearmap/gearmap-go/internal/render"
)

// Command creates the convert subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		direction string
		outputDir string
		jobs      int
	)

	cmd := &cobra.Command{
		Use:   "convert [input.pdf ...]",
		Short: "Convert bid map documents",
		Long:  "Convert the markup annotations of one or more bid map PDFs into deployment map icons.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if direction == "" {
				direction = settings.Conversion.DefaultDirection
			}
			return runBatch(cmd.Context(), settings, args, mapping.Direction(direction), outputDir, jobs)
		},
	}

	cmd.Flags().StringVar(&direction, "direction", viper.GetString("conversion.defaultdirection"), "Mapping direction")
	cmd.Flags().StringVar(&outputDir, "output", "", "Directory for converted files (default: next to the input)")
	cmd.Flags().IntVar(&jobs, "jobs", 4, "Number of documents converted in parallel")

	return cmd
}

// fileResult pairs one input file with its outcome so results print in
// input order regardless of which worker finished first.
type fileResult struct {
	input  string
	output string
	stats  *convert.Result
	err    error
}

// runBatch converts the given files with a bounded worker pool.
func runBatch(ctx context.Context, settings *conf.Settings, inputs []string,
	direction mapping.Direction, outputDir string, jobs int) error {

	table, err := mapping.Load()
	if err != nil {
		return fmt.Errorf("mapping table failed to load: %w", err)
	}

	store := iconstore.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("icon store failed to open: %w", err)
	}
	defer store.Close()

	engine := convert.New(store, table, render.New(settings), nil)

	if jobs < 1 {
		jobs = 1
	}
	results := make([]fileResult, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			results[i] = convertFile(ctx, engine, input, direction, outputDir)
			return nil
		})
	}
	// Workers record failures per file instead of aborting the batch.
	_ = g.Wait()

	failed := 0
	for i := range results {
		r := &results[i]
		if r.err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", r.input, r.err)
			continue
		}
		fmt.Printf("%s -> %s (%d processed, %d converted, %d skipped", r.input, r.output,
			r.stats.Processed, r.stats.Converted, r.stats.Skipped)
		if len(r.stats.SkippedSubjects) > 0 {
			fmt.Printf("; unmapped: %s", strings.Join(r.stats.SkippedSubjects, ", "))
		}
		fmt.Println(")")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(inputs))
	}
	return nil
}

// convertFile converts one document and writes the output next to the input
// or into outputDir.
func convertFile(ctx context.Context, engine *convert.Engine, input string,
	direction mapping.Direction, outputDir string) fileResult {

	result := fileResult{input: input}

	data, err := os.ReadFile(input)
	if err != nil {
		result.err = err
		return result
	}

	out, stats, err := engine.Convert(ctx, data, filepath.Base(input), direction)
	if err != nil {
		result.err = err
		return result
	}

	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(input)
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		result.err = err
		return result
	}

	outPath := filepath.Join(dir, stats.ConvertedName)
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		result.err = err
		return result
	}

	result.output = outPath
	result.stats = stats
	return result
}
