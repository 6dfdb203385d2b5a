//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// NoMapIterationInDocumentOutput flags direct map iteration in the packages
// that serialize PDF output. Identical input must produce identical bytes,
// and Go's map iteration order is randomized; these packages iterate over
// sorted key slices instead.
//
// Old pattern:
//
//	for name, obj := range resources { write(name, obj) }
//
// Expected pattern:
//
//	for _, name := range sortedNames(resources) { write(name, resources[name]) }
func NoMapIterationInDocumentOutput(m dsl.Matcher) {
	m.Match(
		`for $k, $v := range $mp { $*body }`,
		`for $k := range $mp { $*body }`,
	).
		Where(m["mp"].Type.Underlying().Is(`map[$_]$_`) &&
			m.File().PkgPath.Matches(`internal/(pdf|render)$`)).
		Report("document serialization must be byte-deterministic: iterate over sorted keys, not the map itself")
}
