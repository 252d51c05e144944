package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/metcalfc/rsvp/internal/extract"
)

type countingExtractor struct {
	calls int
	inner *extract.Extractor
}

func (c *countingExtractor) Extract(ctx context.Context, doc extract.RawDocument) (extract.ExtractedText, error) {
	c.calls++
	return c.inner.Extract(ctx, doc)
}

type positions map[string]int

func (p positions) GetPosition(title string) int { return p[title] }

type failingStore struct{}

func (failingStore) Get(Key) (string, error) { return "", ErrNotFound }
func (failingStore) Put(Key, string) error   { return errors.New("disk full") }
func (failingStore) Close() error            { return nil }

func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	bs, err := OpenBoltStore(filepath.Join(dir, "cache", "texts.db"))
	if err != nil {
		t.Fatalf("OpenBoltStore: %v", err)
	}
	t.Cleanup(func() { bs.Close() })
	return map[string]Store{
		"files": NewDirStore(filepath.Join(dir, "texts")),
		"bolt":  bs,
	}
}

func TestKeyString(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{Key{"notes", "txt"}, "notes.txt"},
		{Key{"a.b", "pdf"}, "a.b.pdf"},
		{Key{"bare", ""}, "bare"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("%#v.String() = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestStoreFirstWriteWins(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := Key{"book", "txt"}
			if _, err := s.Get(key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(empty) err = %v, want ErrNotFound", err)
			}
			if err := s.Put(key, "one"); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := s.Put(key, "two"); err != nil {
				t.Fatalf("Put again: %v", err)
			}
			got, err := s.Get(key)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got != "one" {
				t.Errorf("Get = %q, want one", got)
			}
		})
	}
}

func TestStoreKeysIncludeFormat(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s.Put(Key{"report", "pdf"}, "from pdf")
			s.Put(Key{"report", "txt"}, "from txt")
			if got, _ := s.Get(Key{"report", "txt"}); got != "from txt" {
				t.Errorf("txt entry = %q", got)
			}
			if got, _ := s.Get(Key{"report", "pdf"}); got != "from pdf" {
				t.Errorf("pdf entry = %q", got)
			}
		})
	}
}

func TestDirStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s := NewDirStore(dir)
	if err := s.Put(Key{"moby", "epub"}, "Call me Ishmael."); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "moby.epub.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "Call me Ishmael." {
		t.Errorf("file content = %q", data)
	}
}

func TestBoltStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texts.db")
	s, err := OpenBoltStore(path)
	if err != nil {
		t.Fatalf("OpenBoltStore: %v", err)
	}
	s.Put(Key{"a", "txt"}, "alpha")
	s.Put(Key{"b", "md"}, "beta")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenBoltStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if n, err := s.Len(); err != nil || n != 2 {
		t.Errorf("Len() = %d, %v, want 2", n, err)
	}
	if got, _ := s.Get(Key{"b", "md"}); got != "beta" {
		t.Errorf("Get = %q, want beta", got)
	}
}

func TestLoadOrExtractIdempotent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			x := &countingExtractor{inner: extract.New(nil)}
			c := New(s, x, nil)
			doc := extract.RawDocument{Bytes: []byte("one two three"), Filename: "notes.txt"}
			hist := positions{}

			first, err := c.LoadOrExtract(context.Background(), doc, hist)
			if err != nil {
				t.Fatalf("first load: %v", err)
			}
			if first.Cached || first.Resume != 0 || first.Text != "one two three" {
				t.Errorf("first = %+v", first)
			}

			hist["notes"] = 2
			second, err := c.LoadOrExtract(context.Background(), doc, hist)
			if err != nil {
				t.Fatalf("second load: %v", err)
			}
			if !second.Cached || second.Text != first.Text || second.Resume != 2 {
				t.Errorf("second = %+v", second)
			}
			if x.calls != 1 {
				t.Errorf("extractor called %d times, want 1", x.calls)
			}
		})
	}
}

func TestLoadOrExtractResumeOnMiss(t *testing.T) {
	c := New(NewDirStore(t.TempDir()), extract.New(nil), nil)
	got, err := c.LoadOrExtract(context.Background(),
		extract.RawDocument{Bytes: []byte("a b c d"), Filename: "notes.md"},
		positions{"notes": 3})
	if err != nil {
		t.Fatalf("LoadOrExtract: %v", err)
	}
	if got.Cached || got.Resume != 3 {
		t.Errorf("got = %+v, want uncached resume 3", got)
	}
}

func TestLoadOrExtractUnsupportedSkipsLookup(t *testing.T) {
	x := &countingExtractor{inner: extract.New(nil)}
	s := NewDirStore(t.TempDir())
	s.Put(Key{"notes", "TXT"}, "stale")
	c := New(s, x, nil)

	_, err := c.LoadOrExtract(context.Background(),
		extract.RawDocument{Bytes: []byte("text"), Filename: "notes.TXT"}, nil)
	if !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	if x.calls != 0 {
		t.Errorf("extractor called %d times", x.calls)
	}
}

func TestLoadOrExtractFailureNotCached(t *testing.T) {
	s := NewDirStore(t.TempDir())
	c := New(s, extract.New(nil), nil)

	_, err := c.LoadOrExtract(context.Background(),
		extract.RawDocument{Bytes: []byte("   \n"), Filename: "blank.txt"}, nil)
	if !errors.Is(err, extract.ErrEmptyDocument) {
		t.Fatalf("err = %v, want ErrEmptyDocument", err)
	}
	if _, ok := c.Lookup(Key{"blank", "txt"}); ok {
		t.Error("failed extraction was cached")
	}
}

func TestLoadOrExtractWriteFailureWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := New(failingStore{}, extract.New(nil), zap.New(core))

	got, err := c.LoadOrExtract(context.Background(),
		extract.RawDocument{Bytes: []byte("still readable"), Filename: "doc.txt"}, nil)
	if err != nil {
		t.Fatalf("LoadOrExtract: %v", err)
	}
	if got.Text != "still readable" {
		t.Errorf("Text = %q", got.Text)
	}
	if !errors.Is(got.Warning, ErrCacheWrite) {
		t.Errorf("Warning = %v, want ErrCacheWrite", got.Warning)
	}
	if n := logs.FilterMessage("text cache write failed").Len(); n != 1 {
		t.Errorf("logged %d warnings, want 1", n)
	}
}
