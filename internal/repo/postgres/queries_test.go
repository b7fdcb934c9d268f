package postgres

import (
	"strings"
	"testing"

	"github.com/promptops-labs/promptops-go/internal/domain"
	"github.com/promptops-labs/promptops-go/internal/repo"
)

func TestBuildArtifactListQueryDefaults(t *testing.T) {
	query, args := buildArtifactListQuery(repo.ArtifactFilter{})
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
	if strings.Contains(query, "WHERE") {
		t.Fatalf("unfiltered query must have no WHERE clause, got %s", query)
	}
	if !strings.Contains(query, "ORDER BY created_at DESC") {
		t.Fatalf("expected newest-first ordering, got %s", query)
	}
}

func TestBuildArtifactListQueryStatusAndPaging(t *testing.T) {
	query, args := buildArtifactListQuery(repo.ArtifactFilter{
		Status: domain.ArtifactStatusDeployed,
		Limit:  10,
		Offset: 20,
	})
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %v", args)
	}
	if args[0] != "deployed" {
		t.Fatalf("expected status as first arg, got %v", args[0])
	}
	if !strings.Contains(query, "status = $1") {
		t.Fatalf("expected status predicate, got %s", query)
	}
	if !strings.Contains(query, "LIMIT $2") || !strings.Contains(query, "OFFSET $3") {
		t.Fatalf("expected paging placeholders, got %s", query)
	}
}

func TestBuildVersionListQueryRequiresArtifactID(t *testing.T) {
	if _, _, err := buildVersionListQuery(repo.VersionFilter{}); err == nil {
		t.Fatalf("expected error for missing artifact id")
	}
}

func TestBuildVersionListQueryPaging(t *testing.T) {
	query, args, err := buildVersionListQuery(repo.VersionFilter{ArtifactID: "art-1", Limit: 5, Offset: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 3 || args[0] != "art-1" {
		t.Fatalf("unexpected args %v", args)
	}
	if !strings.Contains(query, "ORDER BY created_at DESC") {
		t.Fatalf("expected newest-first ordering, got %s", query)
	}
	if !strings.Contains(query, "LIMIT $2") || !strings.Contains(query, "OFFSET $3") {
		t.Fatalf("expected paging placeholders, got %s", query)
	}
}

func TestBuildBenchmarkListQueryFilters(t *testing.T) {
	query, args := buildBenchmarkListQuery(repo.BenchmarkFilter{
		ArtifactID: "art-1",
		SuiteID:    "smoke",
		Limit:      1,
	})
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %v", args)
	}
	if !strings.Contains(query, "artifact_id = $1") || !strings.Contains(query, "suite_id = $2") {
		t.Fatalf("expected filter predicates, got %s", query)
	}
	if !strings.Contains(query, "ORDER BY executed_at DESC") {
		t.Fatalf("expected newest-first ordering, got %s", query)
	}
}

func TestPrefixedVersionColumns(t *testing.T) {
	cols := prefixedVersionColumns("v")
	if !strings.HasPrefix(cols, "v.version_id") {
		t.Fatalf("unexpected prefix: %s", cols)
	}
	if strings.Contains(cols, ", version_string") {
		t.Fatalf("expected every column aliased, got %s", cols)
	}
}
