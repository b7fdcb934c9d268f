// Package export writes artifact history bundles to object storage as
// newline-delimited JSON. A bundle carries every version and benchmark
// result of one artifact, oldest first, so it can be replayed or
// audited offline.
package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/promptops-labs/promptops-go/internal/domain"
	"github.com/promptops-labs/promptops-go/internal/repo"
)

const bundleContentType = "application/x-ndjson"

// objectUploader is the slice of *minio.Client the exporter needs.
type objectUploader interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type BundleInfo struct {
	ObjectKey    string
	SHA256       string
	SizeBytes    int64
	VersionCount int
	ResultCount  int
}

type Exporter struct {
	versions repo.VersionRepository
	results  repo.BenchmarkRepository
	uploader objectUploader
	bucket   string
	logger   *slog.Logger
	now      func() time.Time
}

func NewExporter(versions repo.VersionRepository, results repo.BenchmarkRepository, uploader objectUploader, bucket string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		versions: versions,
		results:  results,
		uploader: uploader,
		bucket:   bucket,
		logger:   logger,
		now:      time.Now,
	}
}

// ExportHistory bundles the artifact's full history and uploads it.
func (e *Exporter) ExportHistory(ctx context.Context, artifactID string) (BundleInfo, error) {
	artifactID = strings.TrimSpace(artifactID)
	if artifactID == "" {
		return BundleInfo{}, errors.New("artifact id is required")
	}

	versions, err := e.versions.ListVersions(ctx, repo.VersionFilter{ArtifactID: artifactID})
	if err != nil {
		return BundleInfo{}, err
	}
	if len(versions) == 0 {
		return BundleInfo{}, repo.ErrNotFound
	}
	results, err := e.results.ListResults(ctx, repo.BenchmarkFilter{ArtifactID: artifactID})
	if err != nil {
		return BundleInfo{}, err
	}

	var buf bytes.Buffer
	versionCount, resultCount, err := writeBundle(&buf, versions, results)
	if err != nil {
		return BundleInfo{}, err
	}

	sum := sha256.Sum256(buf.Bytes())
	info := BundleInfo{
		ObjectKey:    bundleObjectKey(artifactID, e.now().UTC()),
		SHA256:       hex.EncodeToString(sum[:]),
		SizeBytes:    int64(buf.Len()),
		VersionCount: versionCount,
		ResultCount:  resultCount,
	}

	_, err = e.uploader.PutObject(ctx, e.bucket, info.ObjectKey, bytes.NewReader(buf.Bytes()), info.SizeBytes, minio.PutObjectOptions{
		ContentType: bundleContentType,
		UserMetadata: map[string]string{
			"artifact-id":    artifactID,
			"bundle-sha256":  info.SHA256,
			"version-count":  fmt.Sprintf("%d", versionCount),
		},
	})
	if err != nil {
		return BundleInfo{}, fmt.Errorf("upload bundle: %w", err)
	}

	e.logger.InfoContext(ctx, "history bundle exported",
		"artifact_id", artifactID,
		"object_key", info.ObjectKey,
		"size_bytes", info.SizeBytes,
		"versions", versionCount,
		"results", resultCount,
	)
	return info, nil
}

type versionRecord struct {
	Type           string    `json:"type"`
	VersionID      string    `json:"version_id"`
	ArtifactID     string    `json:"artifact_id"`
	VersionString  string    `json:"version_string"`
	Content        string    `json:"content"`
	ContentHash    string    `json:"content_hash"`
	DiffFromParent string    `json:"diff_from_parent,omitempty"`
	ChangeSummary  string    `json:"change_summary,omitempty"`
	AuthorID       string    `json:"author_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type resultRecord struct {
	Type            string             `json:"type"`
	ResultID        string             `json:"result_id"`
	VersionID       string             `json:"version_id"`
	ArtifactID      string             `json:"artifact_id"`
	VersionString   string             `json:"version_string"`
	SuiteID         string             `json:"suite_id"`
	DimensionScores map[string]float64 `json:"dimension_scores"`
	OverallScore    float64            `json:"overall_score"`
	BaselineScore   *float64           `json:"baseline_score,omitempty"`
	Delta           *float64           `json:"delta,omitempty"`
	GatePassed      bool               `json:"gate_passed"`
	ExecutedAt      time.Time          `json:"executed_at"`
	ExecutedBy      string             `json:"executed_by,omitempty"`
}

// writeBundle emits version records then result records, both oldest
// first. Inputs arrive newest first from the repositories.
func writeBundle(w io.Writer, versions []domain.Version, results []domain.BenchmarkResult) (int, int, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)

	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]
		if err := enc.Encode(versionRecord{
			Type:           "version",
			VersionID:      v.ID,
			ArtifactID:     v.ArtifactID,
			VersionString:  v.VersionString,
			Content:        v.Content,
			ContentHash:    v.ContentHash,
			DiffFromParent: v.DiffFromParent,
			ChangeSummary:  v.ChangeSummary,
			AuthorID:       v.AuthorID,
			CreatedAt:      v.CreatedAt.UTC(),
		}); err != nil {
			return 0, 0, fmt.Errorf("encode version record: %w", err)
		}
	}
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		if err := enc.Encode(resultRecord{
			Type:            "benchmark_result",
			ResultID:        r.ID,
			VersionID:       r.VersionID,
			ArtifactID:      r.ArtifactID,
			VersionString:   r.VersionString,
			SuiteID:         r.SuiteID,
			DimensionScores: r.DimensionScores,
			OverallScore:    r.OverallScore,
			BaselineScore:   r.BaselineScore,
			Delta:           r.Delta,
			GatePassed:      r.GatePassed,
			ExecutedAt:      r.ExecutedAt.UTC(),
			ExecutedBy:      r.ExecutedBy,
		}); err != nil {
			return 0, 0, fmt.Errorf("encode result record: %w", err)
		}
	}
	return len(versions), len(results), nil
}

func bundleObjectKey(artifactID string, at time.Time) string {
	return fmt.Sprintf("exports/%s/%s.ndjson", artifactID, at.Format("20060102T150405Z"))
}
