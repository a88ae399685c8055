package history

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/jom-io/gorig/utils/logger"
	"go.uber.org/zap"
)

// Watch calls fn for every matching report appended to the log files after
// it starts, until ctx is done. New files created by log rotation are
// picked up as well.
func Watch(ctx context.Context, opts Options, fn func(Entry)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}
	defer watcher.Close()

	files, err := ListLogFiles(opts)
	if err != nil {
		return err
	}
	offsets := make(map[string]int64, len(files))
	dirs := map[string]struct{}{logDir(opts.RootDir): {}}
	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			offsets[f] = info.Size()
		}
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for d := range dirs {
		if err := watcher.Add(d); err != nil {
			return fmt.Errorf("unable to watch %s: %w", d, err)
		}
	}

	b := opts.bounds()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".jsonl") || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			next, lines, err := readAppended(event.Name, offsets[event.Name])
			if err != nil {
				logger.Warn(ctx, "Watch skipped log file", zap.String("path", event.Name), zap.Error(err))
				continue
			}
			offsets[event.Name] = next
			for _, l := range lines {
				if e, ok := parseLine(event.Name, l.n, l.text); ok && opts.match(e.Report, b) {
					fn(e)
				}
			}
		}
	}
}

type appendedLine struct {
	n    int64
	text string
}

// readAppended returns the complete lines written after offset and the offset
// to resume from. A trailing partial line is left for the next call.
func readAppended(path string, offset int64) (int64, []appendedLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return offset, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return offset, nil, err
	}
	if info.Size() < offset {
		// truncated or replaced
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset, nil, err
	}
	data, err := io.ReadAll(io.LimitReader(f, info.Size()-offset))
	if err != nil {
		return offset, nil, err
	}

	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return offset, nil, nil
	}
	var lines []appendedLine
	for i, l := range strings.Split(string(data[:end]), "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, appendedLine{n: int64(i + 1), text: l})
	}
	return offset + int64(end) + 1, lines, nil
}
