package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Options controls one read of the daemon log file.
type Options struct {
	// Offset is the byte position to resume from. A negative offset reads
	// the last Limit lines instead.
	Offset int64
	// Limit bounds the number of lines returned for a negative Offset.
	Limit int
	// Follow blocks up to Wait for new lines when none are ready.
	Follow bool
	Wait   time.Duration
}

// Chunk is the outcome of one read: the lines found plus the offset to
// resume from on the next call.
type Chunk struct {
	Lines  []string
	Offset int64
}

// Read returns log lines per the options. A missing file yields an empty
// chunk at offset zero.
func Read(ctx context.Context, path string, opts Options) (Chunk, error) {
	chunk := Chunk{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			chunk.Offset = 0
			return chunk, nil
		}
		return chunk, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return chunk, fmt.Errorf("log path %q is a directory", path)
	}

	if opts.Wait < 0 {
		opts.Wait = 0
	}

	if opts.Offset < 0 {
		lines, offset, err := readLastLines(path, opts.Limit)
		if err != nil {
			return chunk, err
		}
		chunk.Lines = lines
		chunk.Offset = offset
		if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
			return waitForLines(ctx, path, offset, opts.Wait)
		}
		return chunk, nil
	}

	offset := opts.Offset
	if offset > info.Size() {
		offset = info.Size()
	}
	lines, newOffset, err := readForward(path, offset)
	if err != nil {
		return chunk, err
	}
	chunk.Lines = lines
	chunk.Offset = newOffset

	if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
		return waitForLines(ctx, path, newOffset, opts.Wait)
	}
	return chunk, nil
}

// readLastLines scans the whole file through a ring buffer of size limit
// and returns the final lines plus the end-of-file offset.
func readLastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if limit <= 0 {
		return nil, info.Size(), nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	ring := make([]string, limit)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}

	return lines, info.Size(), nil
}

func readForward(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	newOffset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}

	return lines, newOffset, nil
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration) (Chunk, error) {
	deadline := time.Now().Add(wait)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	chunk := Chunk{Offset: offset}
	for {
		lines, newOffset, err := readForward(path, offset)
		if err != nil {
			return chunk, err
		}
		if len(lines) > 0 {
			chunk.Lines = lines
			chunk.Offset = newOffset
			return chunk, nil
		}
		if time.Now().After(deadline) {
			chunk.Offset = newOffset
			return chunk, nil
		}

		select {
		case <-ctx.Done():
			chunk.Offset = newOffset
			return chunk, ctx.Err()
		case <-ticker.C:
		}
	}
}
