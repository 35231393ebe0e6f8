package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverCSV returns the CSV files under root in lexical order, relative to root.
// Hidden directories are skipped.
func DiscoverCSV(ctx context.Context, root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		files = append(files, filepath.ToSlash(relPath))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan dataset directory %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// LoadDataset reads a single CSV file, or every CSV file under a directory.
// For a directory, positional ids are prefixed with the file's relative path
// so rows from different files cannot collide.
func LoadDataset(ctx context.Context, path string) ([]Article, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	if !info.IsDir() {
		return LoadCSVFile(path)
	}

	files, err := DiscoverCSV(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CSV files found under %s", path)
	}

	var articles []Article
	for _, rel := range files {
		loaded, err := loadCSVFile(filepath.Join(path, filepath.FromSlash(rel)), rel+":")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rel, err)
		}
		articles = append(articles, loaded...)
	}
	return articles, nil
}
