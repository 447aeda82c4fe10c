package contextcollector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/doeshing/dexter/internal/domain"
)

func TestBasicCollectorIncludesFiles(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "file1.txt"), []byte("test"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmp, ".hidden"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(tmp, "photos"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := domain.Config{Context: domain.ContextSettings{MaxFiles: 5, MaxDepth: 1}}

	listing, err := NewBasicCollector().Collect(context.Background(), cfg, tmp)
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if listing.Summary != "" {
		t.Fatalf("expected a full listing, got summary %q", listing.Summary)
	}
	if len(listing.Files) != 2 {
		t.Fatalf("expected 2 visible entries, got %+v", listing.Files)
	}
	if listing.Files[0].Path != "file1.txt" || listing.Files[1].Type != domain.FileTypeDir {
		t.Fatalf("unexpected entries %+v", listing.Files)
	}
}

func TestBasicCollectorDescendsToMaxDepth(t *testing.T) {
	tmp := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmp, "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "a", "one.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := domain.Config{Context: domain.ContextSettings{MaxFiles: 10, MaxDepth: 2}}
	listing, err := NewBasicCollector().Collect(context.Background(), cfg, tmp)
	if err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, f := range listing.Files {
		paths = append(paths, f.Path)
	}
	if got := strings.Join(paths, ","); got != "a,a/b,a/one.txt" {
		t.Fatalf("unexpected paths %s", got)
	}
}

func TestBasicCollectorSummarizesLargeDirectories(t *testing.T) {
	tmp := t.TempDir()
	for i := 0; i < 8; i++ {
		if err := os.WriteFile(filepath.Join(tmp, fmt.Sprintf("f%02d.txt", i)), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(tmp, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := domain.Config{Context: domain.ContextSettings{MaxFiles: 3, MaxDepth: 1}}
	listing, err := NewBasicCollector().Collect(context.Background(), cfg, tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(listing.Files) != 0 {
		t.Fatalf("expected files to be replaced by a summary, got %d", len(listing.Files))
	}
	want := "Directory contains 8 files and 1 subdirectories. First entries: f00.txt, f01.txt, f02.txt, f03.txt, f04.txt"
	if listing.Summary != want {
		t.Fatalf("summary = %q", listing.Summary)
	}
}

func TestBasicCollectorMissingDirectory(t *testing.T) {
	_, err := NewBasicCollector().Collect(context.Background(), domain.Config{}, filepath.Join(t.TempDir(), "gone"))
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}
