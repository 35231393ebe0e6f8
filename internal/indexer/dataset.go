package indexer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Article is one dataset row before cleaning.
type Article struct {
	ID          string
	Title       string
	Body        string
	URL         string
	PublishedAt *time.Time
}

// Column aliases accepted in the dataset header, matched case-insensitively.
var columnAliases = map[string][]string{
	"id":        {"news_id", "id", "article_id"},
	"title":     {"title", "headline"},
	"body":      {"article_content", "body", "content", "text"},
	"url":       {"url", "link"},
	"published": {"date", "published_at", "timestamp"},
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// LoadCSVFile reads a dataset file. See LoadCSV.
func LoadCSVFile(path string) ([]Article, error) {
	return loadCSVFile(path, "")
}

func loadCSVFile(path, idPrefix string) ([]Article, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	return loadCSV(file, idPrefix)
}

// LoadCSV reads articles from a CSV stream with a header row. A body column is required.
// Rows without an id column, or with an empty id, get their 0-based row number as id.
func LoadCSV(r io.Reader) ([]Article, error) {
	return loadCSV(r, "")
}

// loadCSV prepends idPrefix to positional ids.
func loadCSV(r io.Reader, idPrefix string) ([]Article, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	cols := resolveColumns(header)
	if _, ok := cols["body"]; !ok {
		return nil, fmt.Errorf("dataset has no body column (one of %s)", strings.Join(columnAliases["body"], ", "))
	}

	var articles []Article
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset row %d: %w", row, err)
		}

		a := Article{
			ID:    field(record, cols, "id"),
			Title: field(record, cols, "title"),
			Body:  field(record, cols, "body"),
			URL:   field(record, cols, "url"),
		}
		if a.ID == "" {
			a.ID = idPrefix + strconv.Itoa(row)
		}
		if raw := field(record, cols, "published"); raw != "" {
			a.PublishedAt = parseDate(raw)
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func resolveColumns(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	cols := make(map[string]int, len(columnAliases))
	for key, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				cols[key] = i
				break
			}
		}
	}
	return cols
}

func field(record []string, cols map[string]int, key string) string {
	i, ok := cols[key]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseDate(raw string) *time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
