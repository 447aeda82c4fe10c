package contextcollector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

// BasicCollector implements ContextCollector with a bounded directory scan.
type BasicCollector struct{}

func NewBasicCollector() *BasicCollector {
	return &BasicCollector{}
}

// Collect lists non-hidden entries of dir up to the configured depth. When there
// are more entries than max_files the listing collapses into a summary line.
func (c *BasicCollector) Collect(ctx context.Context, cfg domain.Config, dir string) (domain.DirectoryListing, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return domain.DirectoryListing{}, fmt.Errorf("working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return domain.DirectoryListing{}, fmt.Errorf("resolve %s: %w", dir, err)
	}

	maxFiles := cfg.Context.MaxFiles
	if maxFiles <= 0 {
		maxFiles = domain.DefaultContextMaxFiles
	}
	maxDepth := cfg.Context.MaxDepth
	if maxDepth <= 0 {
		maxDepth = domain.DefaultContextMaxDepth
	}

	files, err := listFiles(ctx, abs, "", maxDepth)
	if err != nil {
		return domain.DirectoryListing{}, err
	}

	listing := domain.DirectoryListing{WorkingDir: abs}
	if len(files) <= maxFiles {
		listing.Files = files
		return listing, nil
	}
	listing.Summary = summarize(files)
	return listing, nil
}

func listFiles(ctx context.Context, root, rel string, depth int) ([]domain.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(root, rel))
	if err != nil {
		if rel == "" {
			return nil, fmt.Errorf("read %s: %w", root, err)
		}
		return nil, nil
	}

	var files []domain.FileInfo
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := entry.Name()
		if rel != "" {
			path = filepath.ToSlash(filepath.Join(rel, entry.Name()))
		}
		fileType := toFileType(info)
		files = append(files, domain.FileInfo{
			Path: path,
			Size: info.Size(),
			Type: fileType,
		})
		if fileType == domain.FileTypeDir && depth > 1 {
			nested, err := listFiles(ctx, root, path, depth-1)
			if err != nil {
				return nil, err
			}
			files = append(files, nested...)
		}
	}
	return files, nil
}

func summarize(files []domain.FileInfo) string {
	dirs := 0
	for _, f := range files {
		if f.Type == domain.FileTypeDir {
			dirs++
		}
	}
	preview := make([]string, 0, domain.ContextSummaryPreview)
	for _, f := range files {
		if len(preview) == domain.ContextSummaryPreview {
			break
		}
		preview = append(preview, f.Path)
	}
	return fmt.Sprintf("Directory contains %d files and %d subdirectories. First entries: %s",
		len(files)-dirs, dirs, strings.Join(preview, ", "))
}

func toFileType(info os.FileInfo) domain.FileType {
	switch {
	case info.Mode().IsDir():
		return domain.FileTypeDir
	case info.Mode()&os.ModeSymlink != 0:
		return domain.FileTypeSymlink
	case info.Mode().IsRegular():
		return domain.FileTypeFile
	default:
		return domain.FileTypeUnknown
	}
}

var _ ports.ContextCollector = (*BasicCollector)(nil)
