package ingestion

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rohankatakam/codegraph/internal/errors"
)

// SourceFile is one scanned file. Path is root-relative and slash separated
// so chunk ids are the same on every machine.
type SourceFile struct {
	Path      string
	Language  string
	Extension string
	Content   []byte
}

// ScanOptions controls which files a Scanner yields.
type ScanOptions struct {
	IgnoredDirs  []string
	Extensions   []string
	MaxFileBytes int64 // 0 = no limit
}

// Scanner walks a directory tree and reads supported source files.
type Scanner struct {
	ignored    map[string]bool
	extensions map[string]bool
	maxBytes   int64
	logger     *slog.Logger
}

// NewScanner builds a Scanner from opts.
func NewScanner(opts ScanOptions) *Scanner {
	s := &Scanner{
		ignored:    make(map[string]bool, len(opts.IgnoredDirs)),
		extensions: make(map[string]bool, len(opts.Extensions)),
		maxBytes:   opts.MaxFileBytes,
		logger:     slog.Default().With("component", "scanner"),
	}
	for _, d := range opts.IgnoredDirs {
		s.ignored[d] = true
	}
	for _, e := range opts.Extensions {
		s.extensions[strings.ToLower(e)] = true
	}
	return s
}

// Scan returns every whitelisted file under root in lexical walk order.
// Any unreadable path aborts the scan with a ScanError.
func (s *Scanner) Scan(root string) ([]SourceFile, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.ScanError(err, root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.ScanError(err, root)
	}
	if !info.IsDir() {
		return nil, errors.ScanError(fs.ErrInvalid, root).WithContext("reason", "not a directory")
	}

	var files []SourceFile
	skipped := 0
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != abs && s.ignored[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !s.extensions[ext] || isGeneratedFile(d.Name()) {
			return nil
		}
		lang, ok := DetectLanguage(ext)
		if !ok {
			return nil
		}

		if s.maxBytes > 0 {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			if fi.Size() > s.maxBytes {
				skipped++
				s.logger.Debug("file too large, skipped", "path", path, "bytes", fi.Size())
				return nil
			}
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		files = append(files, SourceFile{
			Path:      filepath.ToSlash(rel),
			Language:  lang,
			Extension: ext,
			Content:   content,
		})
		return nil
	})
	if err != nil {
		return nil, errors.ScanError(err, root)
	}

	s.logger.Info("scan complete", "root", abs, "files", len(files), "skipped_large", skipped)
	return files, nil
}

// isGeneratedFile reports bundler and minifier output that is not worth indexing.
func isGeneratedFile(name string) bool {
	for _, suffix := range []string{".min.js", ".bundle.js", ".d.ts", "_pb.js", "_pb.ts", ".pb.go"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
