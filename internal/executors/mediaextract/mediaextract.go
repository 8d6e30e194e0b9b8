package mediaextract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vixomaix/reel-to-recipe-api/internal/config"
	"github.com/vixomaix/reel-to-recipe-api/internal/pipeline"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// Executor samples frames and audio out of the downloaded video, then runs
// OCR and speech-to-text over them. Text recovery is best-effort: a recipe
// video with no legible overlay and no narration still moves on to the AI
// stage with whatever text it has, and the AI stage decides whether that is
// enough.
type Executor struct {
	cfg    config.MediaConfig
	logger *slog.Logger
}

func New(cfg config.MediaConfig, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{cfg: cfg, logger: logger}
}

func (e *Executor) Stage() models.Stage { return models.StageMediaExtract }

func (e *Executor) Execute(ctx context.Context, job *models.Job) (*pipeline.Outcome, error) {
	if art := job.Artifacts.Media; art != nil {
		return &pipeline.Outcome{Artifacts: models.Artifacts{Media: art}}, nil
	}

	dl := job.Artifacts.Download
	if dl == nil || dl.VideoPath == "" {
		return nil, pipeline.Errf(models.ErrKindInvalidInput, "no download artifact for job %s", job.ID)
	}
	if _, err := os.Stat(dl.VideoPath); err != nil {
		return nil, pipeline.Errf(models.ErrKindTransientIO, "video file missing: %w", err)
	}

	workDir := filepath.Dir(dl.VideoPath)

	frames, err := e.sampleFrames(ctx, dl, workDir)
	if err != nil {
		return nil, err
	}

	for i := range frames {
		text, err := e.runOCR(ctx, frames[i].FramePath)
		if err != nil {
			e.logger.Warn("ocr failed, continuing without frame text",
				"job_id", job.ID, "frame", frames[i].FramePath, "error", err)
			continue
		}
		frames[i].OCRText = text
	}

	audioPath, err := e.extractAudio(ctx, dl.VideoPath, workDir)
	if err != nil {
		// Plenty of reels have no audio track at all.
		e.logger.Warn("audio extraction failed, continuing without transcript",
			"job_id", job.ID, "error", err)
		audioPath = ""
	}

	var transcript string
	if audioPath != "" {
		transcript, err = e.transcribe(ctx, audioPath, job.PreferredLanguage, workDir)
		if err != nil {
			e.logger.Warn("transcription failed, continuing without transcript",
				"job_id", job.ID, "error", err)
			transcript = ""
		}
	}

	media := &models.MediaArtifact{
		Frames:     frames,
		AudioPath:  audioPath,
		OCRText:    joinFrameText(frames),
		Transcript: transcript,
	}
	return &pipeline.Outcome{Artifacts: models.Artifacts{Media: media}}, nil
}

// sampleFrames pulls evenly spaced frames across the clip. Short-form
// cooking videos flash ingredient lists for a second or two, so even spacing
// beats keyframe detection for catching overlay text.
func (e *Executor) sampleFrames(ctx context.Context, dl *models.DownloadArtifact, workDir string) ([]models.FrameArtifact, error) {
	count := e.cfg.FrameCount
	if count <= 0 {
		count = 12
	}
	duration := dl.DurationSeconds
	if duration <= 0 {
		duration = 60
	}
	step := duration / float64(count+1)

	framesDir := filepath.Join(workDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return nil, pipeline.Errf(models.ErrKindTransientIO, "create frames dir: %w", err)
	}

	frames := make([]models.FrameArtifact, 0, count)
	for i := 1; i <= count; i++ {
		ts := step * float64(i)
		framePath := filepath.Join(framesDir, fmt.Sprintf("frame_%03d.jpg", i))
		cmd := exec.CommandContext(ctx, e.cfg.FFmpegBin,
			"-ss", fmt.Sprintf("%.2f", ts),
			"-i", dl.VideoPath,
			"-frames:v", "1",
			"-q:v", "2",
			"-y",
			framePath,
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			return nil, pipeline.Errf(models.ErrKindTransientIO,
				"ffmpeg frame at %.2fs: %s: %v", ts, strings.TrimSpace(string(out)), err)
		}
		frames = append(frames, models.FrameArtifact{
			TimestampSeconds: ts,
			FramePath:        framePath,
		})
	}
	return frames, nil
}

func (e *Executor) extractAudio(ctx context.Context, videoPath, workDir string) (string, error) {
	audioPath := filepath.Join(workDir, "audio.wav")
	cmd := exec.CommandContext(ctx, e.cfg.FFmpegBin,
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		audioPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg audio: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return audioPath, nil
}

func (e *Executor) runOCR(ctx context.Context, framePath string) (string, error) {
	// "stdout" makes tesseract print recognized text instead of writing a file.
	cmd := exec.CommandContext(ctx, e.cfg.TesseractBin, framePath, "stdout")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (e *Executor) transcribe(ctx context.Context, audioPath, language, workDir string) (string, error) {
	args := []string{
		audioPath,
		"--model", "base",
		"--output_format", "txt",
		"--output_dir", workDir,
	}
	if language != "" {
		args = append(args, "--language", language)
	}
	cmd := exec.CommandContext(ctx, e.cfg.WhisperBin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("whisper: %s: %w", strings.TrimSpace(string(out)), err)
	}

	txtPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".txt"
	raw, err := os.ReadFile(txtPath)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func joinFrameText(frames []models.FrameArtifact) string {
	var parts []string
	for _, f := range frames {
		if f.OCRText != "" {
			parts = append(parts, f.OCRText)
		}
	}
	return strings.Join(parts, "\n")
}
