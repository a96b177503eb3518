package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultChunkSize matches the transfer library defaults the browser client
// used: large fixed chunks, one in flight at a time.
const DefaultChunkSize int64 = 50 * 1024 * 1024

// DefaultRetryDelays is the increasing delay sequence applied to transient
// chunk failures before the transfer fails terminally.
var DefaultRetryDelays = []time.Duration{
	0,
	3 * time.Second,
	5 * time.Second,
	10 * time.Second,
	20 * time.Second,
}

// ErrTransferFailed indicates the chunked transfer exhausted its retries.
// Bytes already acknowledged by the provider are not rolled back.
var ErrTransferFailed = errors.New("chunked transfer failed after retries")

// ProgressFunc receives bytes-acknowledged and bytes-total after every
// acknowledged chunk. Reported progress is monotonically non-decreasing and
// reaches exactly total on success.
type ProgressFunc func(sent, total int64)

// Transferrer streams a file to a resumable upload target in fixed-size
// chunks, recovering the acknowledged offset from the server after transient
// failures.
type Transferrer struct {
	HTTPClient  *http.Client
	ChunkSize   int64
	RetryDelays []time.Duration
	Progress    ProgressFunc
}

// Transfer uploads size bytes from src to uploadURL. The retry budget applies
// per chunk attempt and resets after every acknowledged chunk.
func (t *Transferrer) Transfer(ctx context.Context, uploadURL string, src io.ReaderAt, size int64) error {
	if size <= 0 {
		return fmt.Errorf("invalid transfer size %d", size)
	}

	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	chunkSize := t.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	delays := t.RetryDelays
	if len(delays) == 0 {
		delays = DefaultRetryDelays
	}

	var offset int64
	t.report(offset, size)

	attempt := 0
	for offset < size {
		if err := waitDelay(ctx, delays, attempt); err != nil {
			return err
		}

		newOffset, err := t.patchChunk(ctx, client, uploadURL, src, offset, size, chunkSize)
		if err != nil {
			attempt++
			if attempt >= len(delays) {
				return fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}

			// Resync with the server so progress never moves backwards; if
			// the probe itself fails the stored offset stands.
			if acked, headErr := t.headOffset(ctx, client, uploadURL); headErr == nil && acked > offset {
				offset = acked
				t.report(offset, size)
			}
			continue
		}

		attempt = 0
		if newOffset < offset {
			return fmt.Errorf("server reported offset %d below %d", newOffset, offset)
		}
		offset = newOffset
		t.report(offset, size)
	}

	return nil
}

func (t *Transferrer) patchChunk(ctx context.Context, client *http.Client, uploadURL string, src io.ReaderAt, offset, size, chunkSize int64) (int64, error) {
	length := chunkSize
	if remaining := size - offset; remaining < length {
		length = remaining
	}

	body := io.NewSectionReader(src, offset, length)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, uploadURL, body)
	if err != nil {
		return 0, fmt.Errorf("create chunk request: %w", err)
	}
	req.Header.Set("Tus-Resumable", "1.0.0")
	req.Header.Set("Upload-Offset", strconv.FormatInt(offset, 10))
	req.Header.Set("Content-Type", "application/offset+octet-stream")
	req.ContentLength = length

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send chunk at %d: %w", offset, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusNoContent {
		return 0, fmt.Errorf("chunk at %d rejected with status %d", offset, resp.StatusCode)
	}

	acked, err := strconv.ParseInt(resp.Header.Get("Upload-Offset"), 10, 64)
	if err != nil {
		// Some servers omit the header on the final chunk; assume the whole
		// chunk was stored.
		return offset + length, nil
	}
	return acked, nil
}

func (t *Transferrer) headOffset(ctx context.Context, client *http.Client, uploadURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, uploadURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Tus-Resumable", "1.0.0")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return 0, fmt.Errorf("offset probe returned status %d", resp.StatusCode)
	}

	return strconv.ParseInt(resp.Header.Get("Upload-Offset"), 10, 64)
}

func (t *Transferrer) report(sent, total int64) {
	if t.Progress != nil {
		t.Progress(sent, total)
	}
}

func waitDelay(ctx context.Context, delays []time.Duration, attempt int) error {
	if attempt >= len(delays) {
		attempt = len(delays) - 1
	}
	d := delays[attempt]
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
