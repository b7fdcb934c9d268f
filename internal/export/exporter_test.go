package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/promptops-labs/promptops-go/internal/domain"
	"github.com/promptops-labs/promptops-go/internal/repo"
)

type fakeVersions struct {
	versions []domain.Version
}

func (f *fakeVersions) AppendVersion(context.Context, domain.Version, string) error {
	return errors.New("not implemented")
}

func (f *fakeVersions) GetHead(context.Context, string) (domain.Version, error) {
	return domain.Version{}, repo.ErrNotFound
}

func (f *fakeVersions) GetVersion(context.Context, string, string) (domain.Version, error) {
	return domain.Version{}, repo.ErrNotFound
}

func (f *fakeVersions) ListVersions(context.Context, repo.VersionFilter) ([]domain.Version, error) {
	return f.versions, nil
}

type fakeResults struct {
	results []domain.BenchmarkResult
}

func (f *fakeResults) CreateResult(context.Context, domain.BenchmarkResult) error {
	return errors.New("not implemented")
}

func (f *fakeResults) ListResults(context.Context, repo.BenchmarkFilter) ([]domain.BenchmarkResult, error) {
	return f.results, nil
}

func (f *fakeResults) LatestResult(context.Context, string) (domain.BenchmarkResult, error) {
	return domain.BenchmarkResult{}, repo.ErrNotFound
}

type fakeUploader struct {
	bucket string
	key    string
	body   []byte
	size   int64
	opts   minio.PutObjectOptions
}

func (f *fakeUploader) PutObject(_ context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.bucket = bucket
	f.key = key
	f.body = body
	f.size = size
	f.opts = opts
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func testHistory() ([]domain.Version, []domain.BenchmarkResult) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// Repositories return newest first.
	versions := []domain.Version{
		{ID: "ver-2", ArtifactID: "art-1", VersionString: "1.0.1", Content: "B", ContentHash: "h2", DiffFromParent: "--- a/1.0.0\n+++ b/1.0.1\n", CreatedAt: base.Add(time.Hour)},
		{ID: "ver-1", ArtifactID: "art-1", VersionString: "1.0.0", Content: "A", ContentHash: "h1", CreatedAt: base},
	}
	results := []domain.BenchmarkResult{
		{ID: "r1", ArtifactID: "art-1", VersionID: "ver-2", VersionString: "1.0.1", SuiteID: "default", OverallScore: 90, GatePassed: true, ExecutedAt: base.Add(2 * time.Hour)},
	}
	return versions, results
}

func TestExportHistoryBundle(t *testing.T) {
	versions, results := testHistory()
	uploader := &fakeUploader{}
	exporter := NewExporter(&fakeVersions{versions: versions}, &fakeResults{results: results}, uploader, "registry-exports", slog.New(slog.DiscardHandler))
	exporter.now = func() time.Time { return time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) }

	info, err := exporter.ExportHistory(context.Background(), "art-1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if info.VersionCount != 2 || info.ResultCount != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", info.VersionCount, info.ResultCount)
	}
	if uploader.bucket != "registry-exports" {
		t.Fatalf("bucket = %s", uploader.bucket)
	}
	if info.ObjectKey != "exports/art-1/20250602T000000Z.ndjson" {
		t.Fatalf("object key = %s", info.ObjectKey)
	}
	if uploader.opts.ContentType != bundleContentType {
		t.Fatalf("content type = %s", uploader.opts.ContentType)
	}

	sum := sha256.Sum256(uploader.body)
	if hex.EncodeToString(sum[:]) != info.SHA256 {
		t.Fatalf("reported sha does not match uploaded bytes")
	}
	if info.SizeBytes != int64(len(uploader.body)) {
		t.Fatalf("size = %d, body = %d", info.SizeBytes, len(uploader.body))
	}

	lines := strings.Split(strings.TrimSuffix(string(uploader.body), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	// Oldest version first, so the bundle replays in order.
	if first["type"] != "version" || first["version_string"] != "1.0.0" {
		t.Fatalf("first record = %v", first)
	}
	var last map[string]any
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatalf("decode last line: %v", err)
	}
	if last["type"] != "benchmark_result" || last["result_id"] != "r1" {
		t.Fatalf("last record = %v", last)
	}
}

func TestExportHistoryUnknownArtifact(t *testing.T) {
	exporter := NewExporter(&fakeVersions{}, &fakeResults{}, &fakeUploader{}, "registry-exports", slog.New(slog.DiscardHandler))
	_, err := exporter.ExportHistory(context.Background(), "missing")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWriteBundleEmptyResults(t *testing.T) {
	versions, _ := testHistory()
	var buf bytes.Buffer
	versionCount, resultCount, err := writeBundle(&buf, versions, nil)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if versionCount != 2 || resultCount != 0 {
		t.Fatalf("counts = %d/%d", versionCount, resultCount)
	}
}
