package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/vixomaix/reel-to-recipe-api/internal/config"
	"github.com/vixomaix/reel-to-recipe-api/internal/pipeline"
	"github.com/vixomaix/reel-to-recipe-api/internal/platform"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// Executor fetches the source video onto local disk. YouTube Shorts go
// through the native client; Instagram and TikTok shell out to yt-dlp, which
// tracks both platforms' obfuscation churn far better than we ever could.
type Executor struct {
	cfg    config.MediaConfig
	dir    string
	yt     *youtube.Client
	logger *slog.Logger
}

func New(cfg config.MediaConfig, dataDir string, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{cfg: cfg, dir: dataDir, yt: &youtube.Client{}, logger: logger}
}

func (e *Executor) Stage() models.Stage { return models.StageDownload }

func (e *Executor) Execute(ctx context.Context, job *models.Job) (*pipeline.Outcome, error) {
	// Redelivery after a crash between download and commit: the file is on
	// disk but the artifact never landed. Re-probe rather than re-fetch.
	dest := e.videoPath(job)
	if art := job.Artifacts.Download; art != nil {
		if _, err := os.Stat(art.VideoPath); err == nil {
			return &pipeline.Outcome{Artifacts: models.Artifacts{Download: art}}, nil
		}
	}
	if _, err := os.Stat(dest); err == nil {
		return e.outcome(ctx, job, dest, "")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, pipeline.Errf(models.ErrKindTransientIO, "create job dir: %w", err)
	}

	var title string
	var err error
	switch job.Platform {
	case platform.YouTubeShorts:
		title, err = e.fetchYouTube(ctx, job.SourceURL, dest)
	case platform.Instagram, platform.TikTok:
		err = e.fetchYTDLP(ctx, job.SourceURL, dest)
	default:
		return nil, pipeline.Errf(models.ErrKindInvalidInput, "unsupported platform %q", job.Platform)
	}
	if err != nil {
		return nil, err
	}

	return e.outcome(ctx, job, dest, title)
}

func (e *Executor) videoPath(job *models.Job) string {
	return filepath.Join(e.dir, job.ID.String(), "video.mp4")
}

func (e *Executor) outcome(ctx context.Context, job *models.Job, dest, title string) (*pipeline.Outcome, error) {
	duration, err := e.probeDuration(ctx, dest)
	if err != nil {
		e.logger.Warn("duration probe failed", "job_id", job.ID, "error", err)
	}
	return &pipeline.Outcome{Artifacts: models.Artifacts{Download: &models.DownloadArtifact{
		VideoPath:       dest,
		Title:           title,
		DurationSeconds: duration,
	}}}, nil
}

func (e *Executor) fetchYouTube(ctx context.Context, sourceURL, dest string) (string, error) {
	video, err := e.yt.GetVideoContext(ctx, sourceURL)
	if err != nil {
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "invalid") {
			return "", pipeline.Errf(models.ErrKindInvalidInput, "resolve video: %w", err)
		}
		return "", pipeline.Errf(models.ErrKindTransientIO, "resolve video: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return "", pipeline.Errf(models.ErrKindInvalidInput, "no downloadable format for %s", sourceURL)
	}
	formats.Sort()

	stream, _, err := e.yt.GetStreamContext(ctx, video, &formats[0])
	if err != nil {
		return "", pipeline.Errf(models.ErrKindTransientIO, "open stream: %w", err)
	}
	defer stream.Close()

	f, err := os.Create(dest)
	if err != nil {
		return "", pipeline.Errf(models.ErrKindTransientIO, "create %s: %w", dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, stream); err != nil {
		os.Remove(dest)
		return "", pipeline.Errf(models.ErrKindTransientIO, "download stream: %w", err)
	}
	return video.Title, nil
}

func (e *Executor) fetchYTDLP(ctx context.Context, sourceURL, dest string) error {
	cmd := exec.CommandContext(ctx, e.cfg.YTDLPBin,
		"--no-playlist",
		"--no-progress",
		"-f", "mp4/best",
		"-o", dest,
		sourceURL,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if strings.Contains(msg, "Unsupported URL") || strings.Contains(msg, "HTTP Error 404") {
			return pipeline.Errf(models.ErrKindInvalidInput, "yt-dlp: %s", msg)
		}
		if strings.Contains(msg, "HTTP Error 429") {
			return pipeline.Errf(models.ErrKindResourceExhausted, "yt-dlp rate limited: %s", msg)
		}
		return pipeline.Errf(models.ErrKindTransientIO, "yt-dlp: %s: %v", msg, err)
	}
	return nil
}

func (e *Executor) probeDuration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.cfg.FFprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}
