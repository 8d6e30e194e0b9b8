package download_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vixomaix/reel-to-recipe-api/internal/config"
	"github.com/vixomaix/reel-to-recipe-api/internal/executors/download"
	"github.com/vixomaix/reel-to-recipe-api/internal/pipeline"
	"github.com/vixomaix/reel-to-recipe-api/internal/platform"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// writeStub drops an executable shell script into dir so the executor can be
// exercised without the real yt-dlp/ffprobe binaries.
func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func tiktokJob() *models.Job {
	return &models.Job{
		ID:        uuid.New(),
		SourceURL: "https://www.tiktok.com/@cook/video/1",
		Platform:  platform.TikTok,
	}
}

func TestExecute_FetchesViaYTDLP(t *testing.T) {
	dir := t.TempDir()
	cfg := config.MediaConfig{
		// yt-dlp receives "-o <dest> <url>"; the stub just creates dest.
		YTDLPBin:   writeStub(t, dir, "yt-dlp", `touch "$6"`),
		FFprobeBin: writeStub(t, dir, "ffprobe", `echo 37.5`),
	}
	ex := download.New(cfg, dir, slog.Default())
	job := tiktokJob()

	out, err := ex.Execute(context.Background(), job)
	require.NoError(t, err)
	require.NotNil(t, out.Artifacts.Download)

	art := out.Artifacts.Download
	assert.Equal(t, filepath.Join(dir, job.ID.String(), "video.mp4"), art.VideoPath)
	assert.InDelta(t, 37.5, art.DurationSeconds, 1e-9)
	assert.FileExists(t, art.VideoPath)
}

func TestExecute_IdempotentWhenArtifactFileExists(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(videoPath, []byte("mp4"), 0o644))

	// No binaries configured: any fetch or probe attempt would fail loudly.
	ex := download.New(config.MediaConfig{}, dir, slog.Default())
	job := tiktokJob()
	job.Artifacts.Download = &models.DownloadArtifact{
		VideoPath:       videoPath,
		DurationSeconds: 12,
	}

	out, err := ex.Execute(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, job.Artifacts.Download, out.Artifacts.Download)
}

func TestExecute_UnsupportedPlatform(t *testing.T) {
	ex := download.New(config.MediaConfig{}, t.TempDir(), slog.Default())
	job := tiktokJob()
	job.Platform = platform.Unknown

	_, err := ex.Execute(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, models.ErrKindInvalidInput, pipeline.Classify(err))
}

func TestExecute_YTDLPErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   models.ErrorKind
	}{
		{"unsupported url", "ERROR: Unsupported URL: https://example.com", models.ErrKindInvalidInput},
		{"gone", "ERROR: HTTP Error 404: Not Found", models.ErrKindInvalidInput},
		{"rate limited", "ERROR: HTTP Error 429: Too Many Requests", models.ErrKindResourceExhausted},
		{"network flake", "ERROR: Connection reset by peer", models.ErrKindTransientIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := config.MediaConfig{
				YTDLPBin: writeStub(t, dir, "yt-dlp", `echo "`+tt.output+`"; exit 1`),
			}
			ex := download.New(cfg, dir, slog.Default())

			_, err := ex.Execute(context.Background(), tiktokJob())
			require.Error(t, err)
			assert.Equal(t, tt.want, pipeline.Classify(err))
		})
	}
}

func TestExecute_ProbeFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	cfg := config.MediaConfig{
		YTDLPBin:   writeStub(t, dir, "yt-dlp", `touch "$6"`),
		FFprobeBin: writeStub(t, dir, "ffprobe", `exit 1`),
	}
	ex := download.New(cfg, dir, slog.Default())

	out, err := ex.Execute(context.Background(), tiktokJob())
	require.NoError(t, err)
	require.NotNil(t, out.Artifacts.Download)
	assert.Zero(t, out.Artifacts.Download.DurationSeconds)
}
