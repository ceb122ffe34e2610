package utils

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
)

// ReadPatternFile reads a gitignore-style pattern file. A missing file
// yields no patterns and no error.
func ReadPatternFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParsePatterns(f)
}

// ParsePatterns returns the trimmed lines of r, skipping blanks and # comments.
func ParsePatterns(r io.Reader) ([]string, error) {
	var patterns []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}
