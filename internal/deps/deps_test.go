package deps_test

import (
	"testing"

	"mixdown/internal/deps"
	"mixdown/internal/testsupport"
)

func TestCheckBinariesReportsMissing(t *testing.T) {
	results := deps.CheckBinaries([]deps.Requirement{
		{Name: "ghost", Command: "definitely-not-a-real-binary-name"},
	})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if results[0].Detail == "" {
		t.Fatal("expected detail for missing binary")
	}
}

func TestCheckBinariesFindsStubbed(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	results := deps.CheckBinaries(deps.For(cfg))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, status := range results {
		if !status.Available {
			t.Fatalf("expected %s to be available: %s", status.Name, status.Detail)
		}
	}
}

func TestCheckBinariesUnconfigured(t *testing.T) {
	results := deps.CheckBinaries([]deps.Requirement{{Name: "empty"}})
	if results[0].Available || results[0].Detail != "command not configured" {
		t.Fatalf("unexpected status: %+v", results[0])
	}
}
