package local

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

var urlColumns = []string{"profile_url", "url"}

// ReadProfileURLs reads profile URLs, in order, from either a plain list (one URL
// per line, blank lines and '#' comments skipped) or a CSV whose header has a
// "profile_url" or "url" column.
func ReadProfileURLs(r io.Reader) ([]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read urls: %w", err)
	}
	if isCSV(firstLine(b)) {
		return readURLColumn(bytes.NewReader(b))
	}

	var urls []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read urls: %w", err)
	}
	return urls, nil
}

// ParseProfileURLs splits inline input (flag values) on commas and whitespace.
func ParseProfileURLs(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
	})
}

func firstLine(b []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			return line
		}
	}
	return ""
}

func isCSV(header string) bool {
	for _, col := range strings.Split(header, ",") {
		col = strings.Trim(strings.TrimSpace(col), `"`)
		for _, want := range urlColumns {
			if strings.EqualFold(col, want) {
				return true
			}
		}
	}
	return false
}

func readURLColumn(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := -1
	for _, want := range urlColumns {
		for i, col := range header {
			if strings.EqualFold(strings.TrimSpace(col), want) {
				idx = i
				break
			}
		}
		if idx >= 0 {
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("missing required column %q", urlColumns[0])
	}

	var urls []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if idx >= len(rec) {
			return nil, fmt.Errorf("row has %d columns, want at least %d", len(rec), idx+1)
		}
		if u := strings.TrimSpace(rec[idx]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}
