package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

// DefaultPattern selects every Markdown file below a subdirectory
const DefaultPattern = "**/*.md"

// Source describes which files of a corpus are documents
type Source struct {
	Root    string   // Corpus root directory
	Subdirs []string // Empty means Root itself
	Pattern string   // doublestar pattern relative to each subdir
}

// SkippedFile is a discovered file that could not be read
type SkippedFile struct {
	Source string
	Err    error
}

func (s Source) pattern() string {
	if s.Pattern == "" {
		return DefaultPattern
	}
	return s.Pattern
}

func (s Source) subdirs() []string {
	if len(s.Subdirs) == 0 {
		return []string{"."}
	}
	return s.Subdirs
}

// Discover lists the documents of the corpus as root-relative slash paths.
// Missing subdirectories are skipped. The combined list is deduplicated and
// sorted component by component, independent of the subdirectory order.
func (s Source) Discover() ([]string, error) {
	pattern := s.pattern()
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid corpus pattern %q", pattern)
	}

	var sources []string
	seen := make(map[string]bool)

	for _, sub := range s.subdirs() {
		sub = path.Clean(filepath.ToSlash(sub))
		dir := filepath.Join(s.Root, filepath.FromSlash(sub))

		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}

		fsys := os.DirFS(dir)
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s in %s: %w", pattern, dir, err)
		}

		for _, m := range matches {
			fi, err := fs.Stat(fsys, m)
			if err != nil || !fi.Mode().IsRegular() {
				continue
			}
			f := path.Join(sub, m)
			if !seen[f] {
				seen[f] = true
				sources = append(sources, f)
			}
		}
	}

	sortByComponents(sources)
	return sources, nil
}

// Read loads one document by its root-relative source path
func (s Source) Read(source string) (types.Document, error) {
	data, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(source)))
	if err != nil {
		return types.Document{}, fmt.Errorf("read %s: %w", source, err)
	}
	return types.Document{
		Source: source,
		Text:   DecodeText(data),
	}, nil
}

// Load discovers and reads every document of the corpus.
// Unreadable files are returned in skipped instead of failing the load.
func (s Source) Load(ctx context.Context, logger *slog.Logger) (docs []types.Document, skipped []SkippedFile, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	sources, err := s.Discover()
	if err != nil {
		return nil, nil, err
	}

	docs = make([]types.Document, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		doc, err := s.Read(src)
		if err != nil {
			logger.Warn("Skipping unreadable document", "source", src, "error", err)
			skipped = append(skipped, SkippedFile{Source: src, Err: err})
			continue
		}
		docs = append(docs, doc)
	}

	return docs, skipped, nil
}

// DecodeText converts raw file bytes to text. Each byte that is not part of a
// valid UTF-8 sequence becomes U+FFFD, and \r\n and lone \r become \n.
func DecodeText(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))

	for i := 0; i < len(data); {
		c := data[i]
		if c == '\r' {
			b.WriteByte('\n')
			i++
			if i < len(data) && data[i] == '\n' {
				i++
			}
			continue
		}
		if c < utf8.RuneSelf {
			b.WriteByte(c)
			i++
			continue
		}

		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
		} else {
			b.Write(data[i : i+size])
		}
		i += size
	}

	return b.String()
}

func sortByComponents(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		return lessByComponents(paths[i], paths[j])
	})
}

// lessByComponents orders slash paths part by part, so "a/b" sorts before "a-b"
func lessByComponents(a, b string) bool {
	pa := strings.Split(a, "/")
	pb := strings.Split(b, "/")
	for k := 0; k < len(pa) && k < len(pb); k++ {
		if pa[k] != pb[k] {
			return pa[k] < pb[k]
		}
	}
	return len(pa) < len(pb)
}
