package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/bucketgrid/internal/dataset"
	"github.com/vk/bucketgrid/internal/fsutil"
)

const sampleExt = ".jsonl"

// splitFiles expands the configured sample paths into split files. A
// directory contributes every .jsonl file below it in lexical order.
func splitFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("sample path %q: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		files, err := fsutil.FindFilesByExtension(p, sampleExt)
		if err != nil {
			return nil, fmt.Errorf("sample path %q: %w", p, err)
		}
		out = append(out, files...)
	}
	return out, nil
}

// splitName is the file name without its extension.
func splitName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// readSplit decodes one JSON object per non-empty line.
func readSplit(path string) (*dataset.Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var samples []dataset.Sample
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var s dataset.Sample
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		samples = append(samples, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dataset.New(splitName(path), samples), nil
}
