package history

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/jom-io/gorig-crawlstat/src/stat/reqstat"
	"github.com/jom-io/gorig/utils/errors"
	"github.com/jom-io/gorig/utils/logger"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	// message the spider logs every report under
	reportMsg   = "Send stats"
	maxLineSize = 1024 * 1024
	defaultSize = 10
)

func logDir(root string) string {
	if root == "" {
		root = "."
	}
	return filepath.Join(root, ".logs")
}

// ListLogFiles returns the .jsonl files under the log dir, limited to the
// given categories when any are set.
func ListLogFiles(opts Options) ([]string, error) {
	dir := logDir(opts.RootDir)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("log dir not found: %s", dir)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn(context.Background(), "skip file", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			if path != dir && len(opts.Categories) > 0 && !slices.Contains(opts.Categories, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// Search returns the newest matching reports, at most opts.Size of them.
func Search(opts Options) ([]Entry, *errors.Error) {
	if opts.Size <= 0 {
		opts.Size = defaultSize
	}
	files, err := ListLogFiles(opts)
	if err != nil {
		return nil, errors.Verify(err.Error())
	}

	b := opts.bounds()
	var result []Entry
	for _, path := range files {
		entries, err := scanFile(path, 0, opts, b)
		if err != nil {
			logger.Warn(context.Background(), "Search skipped log file", zap.String("path", path), zap.Error(err))
			continue
		}
		result = append(result, entries...)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Report.TimePeriod.End > result[j].Report.TimePeriod.End
	})
	if len(result) > opts.Size {
		result = result[:opts.Size]
	}
	return result, nil
}

// scanFile reads path from offset and returns the matching reports. Line
// numbers are relative to offset.
func scanFile(path string, offset int64, opts Options, b bounds) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if offset > 0 {
		if _, err := f.Seek(offset, 0); err != nil {
			return nil, err
		}
	}

	var result []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	var n int64
	for scanner.Scan() {
		n++
		if e, ok := parseLine(path, n, scanner.Text()); ok && opts.match(e.Report, b) {
			result = append(result, e)
		}
	}
	return result, scanner.Err()
}

func parseLine(path string, n int64, line string) (Entry, bool) {
	// cheap check before parsing the whole record
	if !strings.Contains(line, reportMsg) {
		return Entry{}, false
	}
	rec := gjson.Parse(line)
	if rec.Get("msg").String() != reportMsg {
		return Entry{}, false
	}
	report, err := reqstat.DecodeReport(rec.Get("report").String())
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Path:   path,
		Line:   n,
		Cycle:  rec.Get("cycle").String(),
		Report: report,
	}, true
}
