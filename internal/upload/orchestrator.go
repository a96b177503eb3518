// Package upload drives the four-step admin upload flow: create a resumable
// session on the stream provider, transfer the file in chunks, wait for (or
// skip) transcode completion, then persist catalog metadata. There is no
// compensating transaction: a failure after the transfer leaves an orphaned
// provider asset for the reconciliation sweep or an operator to resolve.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/velvethub/backend/internal/stream"
)

// ProcessingPolicy selects how the orchestrator hands off to transcoding.
type ProcessingPolicy int

const (
	// WaitForReady polls the provider until the asset is ready (bounded),
	// persisting real duration and playback data.
	WaitForReady ProcessingPolicy = iota
	// SkipPolling persists immediately with duration 0 and synthesized URLs,
	// leaving duration to the reconciliation sweep.
	SkipPolling
)

// SessionCreator initiates resumable upload sessions on the provider.
type SessionCreator interface {
	CreateDirectUpload(ctx context.Context, size int64, filename string) (stream.DirectUpload, error)
}

// StatusChecker resolves transcode state and provider URL patterns.
type StatusChecker interface {
	GetVideo(ctx context.Context, uid string) (stream.VideoStatus, error)
	PlaybackURL(uid string) string
	ThumbnailURL(uid string) string
}

// CatalogSubmitter persists the final metadata record.
type CatalogSubmitter interface {
	SubmitVideo(ctx context.Context, meta VideoMeta) error
}

// FilePart is one image attachment for the metadata submission.
type FilePart struct {
	Name    string
	Content io.Reader
}

// Input is everything the admin supplies for one upload.
type Input struct {
	Video     io.ReaderAt
	VideoSize int64
	Filename  string

	Title       string
	Thumbnail   FilePart
	Slider      FilePart
	CategoryIDs []string
}

// VideoMeta is the catalog submission assembled after the transfer.
type VideoMeta struct {
	Title           string
	StreamUID       string
	PlaybackURL     string
	ThumbnailURL    string
	DurationSeconds int
	CategoryIDs     []string
	Thumbnail       FilePart
	Slider          FilePart
}

// Result summarises a completed upload.
type Result struct {
	UID             string
	PlaybackURL     string
	DurationSeconds int
	// StillProcessing is set when the bounded poll gave up before the
	// provider reported ready; the asset may complete out of band and the
	// catalog row keeps duration 0 until reconciled.
	StillProcessing bool
}

// ValidationError reports a missing required field before any network call.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Orchestrator wires the upload steps together.
type Orchestrator struct {
	Sessions SessionCreator
	Status   StatusChecker
	Catalog  CatalogSubmitter

	Transferrer Transferrer
	Policy      ProcessingPolicy

	PollInterval    time.Duration
	MaxPollAttempts int

	Logger *slog.Logger
}

// Run executes the full flow. Progress for the chunked transfer is reported
// through the Transferrer's Progress callback.
func (o *Orchestrator) Run(ctx context.Context, in Input) (Result, error) {
	if err := validate(in); err != nil {
		return Result{}, err
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Step 1: session init. Terminal on failure, no retry.
	du, err := o.Sessions.CreateDirectUpload(ctx, in.VideoSize, in.Filename)
	if err != nil {
		return Result{}, fmt.Errorf("create upload session: %w", err)
	}
	logger.Info("upload session created", "uid", du.UID, "size", in.VideoSize)

	// Step 2: chunked transfer straight to the provider.
	if err := o.Transferrer.Transfer(ctx, du.UploadURL, in.Video, in.VideoSize); err != nil {
		return Result{}, fmt.Errorf("transfer asset %s: %w", du.UID, err)
	}
	logger.Info("transfer complete", "uid", du.UID)

	// Step 3: processing handoff.
	duration := 0
	stillProcessing := false
	if o.Policy == WaitForReady {
		status, err := o.waitForReady(ctx, du.UID)
		switch {
		case err != nil && errors.Is(err, ctx.Err()):
			return Result{}, err
		case err != nil:
			logger.Warn("asset not ready within poll budget", "uid", du.UID, "error", err)
			stillProcessing = true
		default:
			duration = status.DurationSeconds
		}
	}

	meta := VideoMeta{
		Title:           in.Title,
		StreamUID:       du.UID,
		PlaybackURL:     o.Status.PlaybackURL(du.UID),
		ThumbnailURL:    o.Status.ThumbnailURL(du.UID),
		DurationSeconds: duration,
		CategoryIDs:     in.CategoryIDs,
		Thumbnail:       in.Thumbnail,
		Slider:          in.Slider,
	}

	// Step 4: metadata persistence. A failure here strands the provider
	// asset; there is no compensating delete.
	if err := o.Catalog.SubmitVideo(ctx, meta); err != nil {
		return Result{}, fmt.Errorf("persist metadata for %s: %w", du.UID, err)
	}

	logger.Info("upload persisted", "uid", du.UID, "duration", duration, "stillProcessing", stillProcessing)

	return Result{
		UID:             du.UID,
		PlaybackURL:     meta.PlaybackURL,
		DurationSeconds: duration,
		StillProcessing: stillProcessing,
	}, nil
}

var errPollBudgetExhausted = errors.New("poll attempts exhausted")

func (o *Orchestrator) waitForReady(ctx context.Context, uid string) (stream.VideoStatus, error) {
	interval := o.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	attempts := o.MaxPollAttempts
	if attempts <= 0 {
		attempts = 60
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < attempts; i++ {
		status, err := o.Status.GetVideo(ctx, uid)
		if err == nil && status.Ready && status.DurationSeconds > 0 {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return stream.VideoStatus{}, ctx.Err()
		case <-ticker.C:
		}
	}

	return stream.VideoStatus{}, errPollBudgetExhausted
}

func validate(in Input) error {
	switch {
	case in.Video == nil || in.VideoSize <= 0:
		return &ValidationError{Field: "video file"}
	case strings.TrimSpace(in.Title) == "":
		return &ValidationError{Field: "title"}
	case in.Thumbnail.Content == nil:
		return &ValidationError{Field: "thumbnail image"}
	case in.Slider.Content == nil:
		return &ValidationError{Field: "slider image"}
	case len(in.CategoryIDs) == 0:
		return &ValidationError{Field: "categories"}
	}
	return nil
}
