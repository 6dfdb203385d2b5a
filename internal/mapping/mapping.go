// Package mapping provides the directional subject lookup used to translate
// the icon vocabulary of a bid map into the vocabulary of a deployment map.
// The table is built once from an embedded asset and is immutable afterwards.
package mapping

import (
	"embed"
	"io/fs"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/gearmap/gearmap-go/internal/errors"
)

//go:embed data/mappings.yaml
var mappingFiles embed.FS

// Direction selects which vocabulary a subject is translated from and to.
type Direction string

const (
	// BidToDeployment translates bid map subjects into deployment map
	// subjects. This direction must be present in the embedded table.
	BidToDeployment Direction = "bid_to_deployment"

	// DeploymentToBid is the declared reverse direction. The embedded
	// table does not ship it yet, so Supported reports false for it.
	DeploymentToBid Direction = "deployment_to_bid"
)

// Table is an immutable directional subject index.
type Table struct {
	directions map[Direction]map[string]string
	order      []Direction
}

type mappingFile struct {
	Directions map[string][]mappingEntry `yaml:"directions"`
}

type mappingEntry struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

var (
	tableInstance *Table
	tableErr      error
	tableOnce     sync.Once
)

// Load parses the embedded mapping asset once and returns the shared table.
// The same table and error are returned on every call.
func Load() (*Table, error) {
	tableOnce.Do(func() {
		data, err := fs.ReadFile(mappingFiles, "data/mappings.yaml")
		if err != nil {
			tableErr = errors.New(err).
				Component("mapping").
				Category(errors.CategoryMappingTable).
				Build()
			return
		}
		tableInstance, tableErr = parse(data)
	})
	return tableInstance, tableErr
}

// parse builds a table from YAML mapping data, validating that every
// (direction, source subject) pair is unique.
func parse(data []byte) (*Table, error) {
	var raw mappingFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(err).
			Component("mapping").
			Category(errors.CategoryMappingTable).
			Context("operation", "parse_mapping_table").
			Build()
	}

	t := &Table{directions: make(map[Direction]map[string]string, len(raw.Directions))}
	for name, entries := range raw.Directions {
		dir := Direction(name)
		index := make(map[string]string, len(entries))
		for _, e := range entries {
			if e.From == "" || e.To == "" {
				return nil, errors.Newf("incomplete mapping entry %q -> %q in direction %q", e.From, e.To, name).
					Component("mapping").
					Category(errors.CategoryMappingTable).
					Build()
			}
			if _, dup := index[e.From]; dup {
				return nil, errors.Newf("duplicate mapping for subject %q in direction %q", e.From, name).
					Component("mapping").
					Category(errors.CategoryMappingTable).
					Build()
			}
			index[e.From] = e.To
		}
		t.directions[dir] = index
		t.order = append(t.order, dir)
	}

	if _, ok := t.directions[BidToDeployment]; !ok {
		return nil, errors.Newf("required direction %q missing from mapping table", BidToDeployment).
			Component("mapping").
			Category(errors.CategoryMappingTable).
			Build()
	}

	sort.Slice(t.order, func(i, j int) bool { return t.order[i] < t.order[j] })
	return t, nil
}

// Resolve translates subject along direction. The second return value is
// false when the pair is not in the table; resolution never fails.
func (t *Table) Resolve(direction Direction, subject string) (string, bool) {
	index, ok := t.directions[direction]
	if !ok {
		return "", false
	}
	target, ok := index[subject]
	return target, ok
}

// Supported reports whether the direction is present in the table.
func (t *Table) Supported(direction Direction) bool {
	_, ok := t.directions[direction]
	return ok
}

// Directions returns the supported directions in sorted order.
func (t *Table) Directions() []Direction {
	out := make([]Direction, len(t.order))
	copy(out, t.order)
	return out
}

// DirectionStats describes one direction of the table.
type DirectionStats struct {
	// Sources is the number of source subjects in the direction.
	Sources int `json:"sources"`

	// Targets is the number of distinct target subjects.
	Targets int `json:"targets"`
}

// TableStats summarizes the loaded table for the health endpoint.
type TableStats struct {
	Entries    int                          `json:"entries"`
	Directions map[Direction]DirectionStats `json:"directions"`
}

// Stats returns entry counts for the whole table and per direction.
func (t *Table) Stats() TableStats {
	stats := TableStats{
		Directions: make(map[Direction]DirectionStats, len(t.directions)),
	}
	for dir, index := range t.directions {
		targets := make(map[string]struct{}, len(index))
		for _, to := range index {
			targets[to] = struct{}{}
		}
		stats.Entries += len(index)
		stats.Directions[dir] = DirectionStats{
			Sources: len(index),
			Targets: len(targets),
		}
	}
	return stats
}
