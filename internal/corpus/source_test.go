package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestSource_Discover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "manual/b.md", "b")
	writeFile(t, root, "manual/a/z.md", "z")
	writeFile(t, root, "manual/a-b.md", "ab")
	writeFile(t, root, "manual/notes.txt", "skip")
	writeFile(t, root, "libs/std/core.md", "core")
	writeFile(t, root, "outside.md", "not scanned")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "manual", "dir.md"), 0o755))

	src := Source{Root: root, Subdirs: []string{"manual", "missing", "libs/std"}}

	got, err := src.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"libs/std/core.md",
		"manual/a/z.md",
		"manual/a-b.md",
		"manual/b.md",
	}, got)
}

func TestSource_DiscoverSortsAcrossSubdirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "manual/source_zh_cn/a.md", "a")
	writeFile(t, root, "libs/std/b.md", "b")
	writeFile(t, root, "extra/c.md", "c")

	src := Source{Root: root, Subdirs: []string{"manual/source_zh_cn", "libs/std", "tools/source_zh_cn", "extra"}}

	got, err := src.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"extra/c.md",
		"libs/std/b.md",
		"manual/source_zh_cn/a.md",
	}, got)
}

func TestSource_DiscoverRootWhenNoSubdirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "top.md", "t")
	writeFile(t, root, "nested/deep.md", "d")

	got, err := Source{Root: root}.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"nested/deep.md", "top.md"}, got)
}

func TestSource_DiscoverCustomPattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/a.md", "a")
	writeFile(t, root, "docs/b.markdown", "b")
	writeFile(t, root, "docs/sub/c.md", "c")

	got, err := Source{Root: root, Subdirs: []string{"docs"}, Pattern: "*.{md,markdown}"}.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.md", "docs/b.markdown"}, got)
}

func TestSource_DiscoverInvalidPattern(t *testing.T) {
	_, err := Source{Root: t.TempDir(), Pattern: "[unclosed"}.Discover()
	assert.Error(t, err)
}

func TestSource_DiscoverOverlappingSubdirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/a.md", "a")

	got, err := Source{Root: root, Subdirs: []string{"docs", "docs/"}}.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.md"}, got)
}

func TestSource_Read(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/win.md", "# Title\r\nline one\r\n\r\nline two\rend")

	doc, err := Source{Root: root}.Read("docs/win.md")
	require.NoError(t, err)
	assert.Equal(t, "docs/win.md", doc.Source)
	assert.Equal(t, "# Title\nline one\n\nline two\nend", doc.Text)
}

func TestSource_ReadMissing(t *testing.T) {
	_, err := Source{Root: t.TempDir()}.Read("nope.md")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSource_Load(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/one.md", "# One\nfirst")
	writeFile(t, root, "docs/two.md", "# Two\nsecond")

	docs, skipped, err := Source{Root: root, Subdirs: []string{"docs"}}.Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, docs, 2)
	assert.Equal(t, "docs/one.md", docs[0].Source)
	assert.Equal(t, "# Two\nsecond", docs[1].Text)
}

func TestSource_LoadCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Source{Root: root}.Load(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"ascii", []byte("plain"), "plain"},
		{"cjk", []byte("仓颉"), "仓颉"},
		{"crlf", []byte("a\r\nb"), "a\nb"},
		{"lone cr", []byte("a\rb\r"), "a\nb\n"},
		{"cr cr lf", []byte("a\r\r\nb"), "a\n\nb"},
		{"invalid byte", []byte{'a', 0xff, 'b'}, "a�b"},
		{"truncated sequence", []byte{'a', 0xe4, 0xbb}, "a��"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeText(tt.in))
		})
	}
}

func TestLessByComponents(t *testing.T) {
	assert.True(t, lessByComponents("a/b", "a-b"))
	assert.True(t, lessByComponents("a", "a/b"))
	assert.False(t, lessByComponents("b/a", "a/z"))
	assert.False(t, lessByComponents("same", "same"))
}
