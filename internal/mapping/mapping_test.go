package mapping

import (
	"testing"

	"github.com/gearmap/gearmap-go/internal/errors"
)

func TestLoadEmbeddedTable(t *testing.T) {
	tbl, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !tbl.Supported(BidToDeployment) {
		t.Error("bid_to_deployment must be supported")
	}
	if tbl.Supported(DeploymentToBid) {
		t.Error("deployment_to_bid is declared but must not be shipped yet")
	}

	target, ok := tbl.Resolve(BidToDeployment, "CAM-B")
	if !ok || target != "CAM-D" {
		t.Errorf("Resolve(CAM-B) = %q, %v", target, ok)
	}
	if _, ok := tbl.Resolve(BidToDeployment, "UNKNOWN-B"); ok {
		t.Error("unknown subject must not resolve")
	}
	if _, ok := tbl.Resolve(DeploymentToBid, "CAM-D"); ok {
		t.Error("unsupported direction must not resolve")
	}

	dirs := tbl.Directions()
	if len(dirs) != 1 || dirs[0] != BidToDeployment {
		t.Errorf("Directions() = %v", dirs)
	}
}

func TestLoadReturnsSharedTable(t *testing.T) {
	a, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	b, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if a != b {
		t.Error("Load must return the same table instance")
	}
}

func TestEmbeddedTableStats(t *testing.T) {
	tbl, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	stats := tbl.Stats()
	if stats.Entries == 0 {
		t.Fatal("embedded table is empty")
	}
	ds, ok := stats.Directions[BidToDeployment]
	if !ok {
		t.Fatal("stats missing bid_to_deployment")
	}
	if ds.Sources != stats.Entries {
		t.Errorf("sources = %d, entries = %d", ds.Sources, stats.Entries)
	}
	if ds.Targets == 0 || ds.Targets > ds.Sources {
		t.Errorf("targets = %d out of range", ds.Targets)
	}
}

func TestParseRejectsDuplicateSource(t *testing.T) {
	t.Parallel()

	data := []byte(`
directions:
  bid_to_deployment:
    - { from: CAM-B, to: CAM-D }
    - { from: CAM-B, to: DOME-D }
`)
	_, err := parse(data)
	if err == nil {
		t.Fatal("expected duplicate source error")
	}
	if !errors.IsCategory(err, errors.CategoryMappingTable) {
		t.Errorf("category = %v, want mapping table", err)
	}
}

func TestParseRejectsIncompleteEntry(t *testing.T) {
	t.Parallel()

	data := []byte(`
directions:
  bid_to_deployment:
    - { from: CAM-B }
`)
	if _, err := parse(data); err == nil {
		t.Fatal("expected incomplete entry error")
	}
}

func TestParseRequiresBidToDeployment(t *testing.T) {
	t.Parallel()

	data := []byte(`
directions:
  deployment_to_bid:
    - { from: CAM-D, to: CAM-B }
`)
	_, err := parse(data)
	if err == nil {
		t.Fatal("expected missing direction error")
	}
	if !errors.IsCategory(err, errors.CategoryMappingTable) {
		t.Errorf("category = %v, want mapping table", err)
	}
}

func TestParseCountsDistinctTargets(t *testing.T) {
	t.Parallel()

	data := []byte(`
directions:
  bid_to_deployment:
    - { from: CAM-A-B, to: CAM-D }
    - { from: CAM-C-B, to: CAM-D }
    - { from: DOME-B, to: DOME-D }
`)
	tbl, err := parse(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	ds := tbl.Stats().Directions[BidToDeployment]
	if ds.Sources != 3 {
		t.Errorf("sources = %d, want 3", ds.Sources)
	}
	if ds.Targets != 2 {
		t.Errorf("targets = %d, want 2", ds.Targets)
	}
}
