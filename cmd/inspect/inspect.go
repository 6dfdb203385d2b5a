// Package inspect prints the annotation inventory of a document without
// converting it.
package inspect

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gearmap/gearmap-go/internal/conf"
	"github.com/gearmap/gearmap-go/internal/extract"
	"github.com/gearmap/gearmap-go/internal/mapping"
	"github.com/gearmap/gearmap-go/internal/pdf"
)

// Command creates the inspect subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [input.pdf]",
		Short: "Inspect a document's annotations",
		Long:  "List pages, markup annotations and their subjects, and report which subjects the mapping table covers.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0], settings)
		},
	}
}

func runInspect(input string, settings *conf.Settings) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	reader, err := pdf.NewReaderFromBytes(data)
	if err != nil {
		return fmt.Errorf("document cannot be read: %w", err)
	}

	pages, err := reader.Pages()
	if err != nil {
		return err
	}
	annotations, err := extract.Extract(reader)
	if err != nil {
		return err
	}

	table, err := mapping.Load()
	if err != nil {
		return err
	}
	direction := mapping.Direction(settings.Conversion.DefaultDirection)
	if direction == "" {
		direction = mapping.BidToDeployment
	}

	fmt.Printf("%s: %d pages, %d markup annotations\n", input, len(pages), len(annotations))

	// Subject inventory, grouped and counted
	counts := make(map[string]int)
	subjectless := 0
	for i := range annotations {
		if annotations[i].Subject == "" {
			subjectless++
			continue
		}
		counts[annotations[i].Subject]++
	}

	subjects := make([]string, 0, len(counts))
	for subject := range counts {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	for _, subject := range subjects {
		target, ok := table.Resolve(direction, subject)
		status := "unmapped"
		if ok {
			status = "-> " + target
		}
		fmt.Printf("  %-16s x%-3d %s\n", subject, counts[subject], status)
	}
	if subjectless > 0 {
		fmt.Printf("  (no subject)     x%d\n", subjectless)
	}

	return nil
}
