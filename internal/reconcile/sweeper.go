// Package reconcile sweeps catalog rows whose duration was never resolved
// and fetches the authoritative value from the stream provider. It is the
// compensating action for the upload flow's skip-polling handoff.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/velvethub/backend/internal/repositories"
	"github.com/velvethub/backend/internal/stream"
)

// StatusProvider resolves transcode state for one asset.
type StatusProvider interface {
	GetVideo(ctx context.Context, uid string) (stream.VideoStatus, error)
}

// Summary aggregates one sweep's per-row outcomes. Details list video titles
// under their classification.
type Summary struct {
	Total            int      `json:"total"`
	Updated          int      `json:"updated"`
	StillProcessing  int      `json:"stillProcessing"`
	Failed           int      `json:"failed"`
	UpdatedTitles    []string `json:"updatedTitles"`
	ProcessingTitles []string `json:"processingTitles"`
	FailedTitles     []string `json:"failedTitles"`
}

// Sweeper runs the duration reconciliation batch.
type Sweeper struct {
	Videos repositories.DurationUpdater
	Status StatusProvider
	Logger *slog.Logger

	// Delay spaces out provider queries to stay under rate limits.
	Delay time.Duration
}

// Sweep processes every row with an unresolved duration. One row's failure
// never aborts the sweep; outcomes are classified per row and aggregated.
func (s *Sweeper) Sweep(ctx context.Context) (Summary, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	videos, err := s.Videos.ListUnresolvedDuration(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Total: len(videos)}
	if len(videos) == 0 {
		return summary, nil
	}

	for i, video := range videos {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		status, err := s.Status.GetVideo(ctx, video.StreamUID)
		switch {
		case err != nil:
			logger.Warn("status query failed", "uid", video.StreamUID, "title", video.Title, "error", err)
			summary.Failed++
			summary.FailedTitles = append(summary.FailedTitles, video.Title)
		case !status.Ready || status.DurationSeconds == 0:
			summary.StillProcessing++
			summary.ProcessingTitles = append(summary.ProcessingTitles, video.Title)
		default:
			if err := s.Videos.UpdateDuration(ctx, video.ID, status.DurationSeconds); err != nil {
				logger.Error("duration update failed", "videoId", video.ID, "title", video.Title, "error", err)
				summary.Failed++
				summary.FailedTitles = append(summary.FailedTitles, video.Title)
				break
			}
			logger.Info("duration reconciled", "videoId", video.ID, "title", video.Title, "seconds", status.DurationSeconds)
			summary.Updated++
			summary.UpdatedTitles = append(summary.UpdatedTitles, video.Title)
		}

		if s.Delay > 0 && i < len(videos)-1 {
			timer := time.NewTimer(s.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return summary, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return summary, nil
}
