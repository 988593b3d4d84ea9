package output

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/logfields"
	"git.home.luguber.info/inful/prerender/internal/page"
)

// Kind of an output file.
type Kind string

const (
	KindHTML    Kind = "html"
	KindContext Kind = "context"
)

// File is one output file of a pre-rendered URL.
type File struct {
	// FilePath is the destination: the output directory joined with RelPath.
	FilePath    string
	RelPath     string
	Content     []byte
	Kind        Kind
	URLOriginal string
	PageID      string
	PageContext *page.Context
}

// Sink receives every output file. Implementations must be safe for
// concurrent use.
type Sink interface {
	Write(ctx context.Context, f File) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, f File) error

func (fn SinkFunc) Write(ctx context.Context, f File) error { return fn(ctx, f) }

// NewFile builds the File for a URL under outDir.
func NewFile(outDir, url string, kind Kind, content []byte, noExtraDir bool) File {
	var rel string
	if kind == KindContext {
		rel = ContextFilePathForURL(url)
	} else {
		rel = FilePathForURL(url, ExtHTML, noExtraDir)
	}
	rel = strings.TrimPrefix(rel, "/")
	return File{
		FilePath:    path.Join(filepath.ToSlash(outDir), rel),
		RelPath:     rel,
		Content:     content,
		Kind:        kind,
		URLOriginal: url,
	}
}

// FSSink writes files to disk, creating parent directories as needed.
type FSSink struct {
	root  string
	quiet bool
}

// NewFSSink creates a filesystem sink. Paths are logged relative to root;
// quiet suppresses the per-file log line.
func NewFSSink(root string, quiet bool) *FSSink {
	return &FSSink{root: root, quiet: quiet}
}

func (s *FSSink) Write(ctx context.Context, f File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := filepath.FromSlash(f.FilePath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "creating output directory").
			WithContext("file", f.FilePath).Build()
	}
	if err := os.WriteFile(dst, f.Content, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "writing output file").
			WithContext("file", f.FilePath).Build()
	}
	if !s.quiet {
		rel := f.FilePath
		if r, err := filepath.Rel(s.root, dst); err == nil {
			rel = filepath.ToSlash(r)
		}
		slog.Info("Pre-rendered", logfields.File(rel))
	}
	return nil
}

// Publisher is the subset of *nats.Conn used by NATSSink.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSMessage is the payload published for each file.
type NATSMessage struct {
	FilePath    string `json:"filePath"`
	FileContent string `json:"fileContent"`
	Kind        Kind   `json:"kind"`
	URLOriginal string `json:"urlOriginal"`
	PageID      string `json:"pageId,omitempty"`
}

// NATSSink publishes every file to a NATS subject instead of writing it.
type NATSSink struct {
	pub     Publisher
	subject string
	mu      sync.Mutex
	count   int
}

// NewNATSSink creates a sink publishing to subject.
func NewNATSSink(pub Publisher, subject string) *NATSSink {
	return &NATSSink{pub: pub, subject: subject}
}

func (s *NATSSink) Write(ctx context.Context, f File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(NATSMessage{
		FilePath:    f.FilePath,
		FileContent: string(f.Content),
		Kind:        f.Kind,
		URLOriginal: f.URLOriginal,
		PageID:      f.PageID,
	})
	if err != nil {
		return fmt.Errorf("encode output message: %w", err)
	}
	if err := s.pub.Publish(s.subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "publishing output file").
			WithContext("file", f.FilePath).Build()
	}
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	slog.Debug("Published pre-rendered file", logfields.File(f.RelPath), "subject", s.subject)
	return nil
}

// Published returns the number of files published so far.
func (s *NATSSink) Published() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
