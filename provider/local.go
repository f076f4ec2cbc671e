package provider

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ensure interface is implemented
var _ Provider = (*LocalProvider)(nil)

// LocalProvider implements the Provider interface for local filesystems.
type LocalProvider struct {
	basePath string
}

// NewLocalProvider creates a new LocalProvider rooted at basePath.
// If basePath is empty, it acts upon absolute or relative paths directly.
func NewLocalProvider(basePath string) *LocalProvider {
	return &LocalProvider{basePath: basePath}
}

func (p *LocalProvider) resolve(path string) string {
	if p.basePath == "" {
		return path
	}
	return filepath.Join(p.basePath, filepath.Clean(path))
}

func (p *LocalProvider) Stat(ctx context.Context, path string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(p.resolve(path))
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &fileInfo{name: info.Name(), size: info.Size(), modTime: info.ModTime()}, nil
}

func (p *LocalProvider) OpenRead(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(p.resolve(path))
}

// OpenWrite writes to a temporary file next to path and renames it into
// place on Close, so readers never see a partial export.
func (p *LocalProvider) OpenWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath := p.resolve(path)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create parent for %s: %w", fullPath, err)
	}

	tmp, err := os.CreateTemp(dir, ".welllit-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file for %s: %w", fullPath, err)
	}
	return &localWriteCloser{File: tmp, fullPath: fullPath}, nil
}

// localWriteCloser wraps a temporary os.File and moves it to fullPath on Close.
type localWriteCloser struct {
	*os.File
	fullPath string
}

func (l *localWriteCloser) Close() error {
	tmpPath := l.File.Name()
	if err := l.File.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file for %s: %w", l.fullPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file for %s: %w", l.fullPath, err)
	}
	if err := os.Rename(tmpPath, l.fullPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("atomic rename for %s: %w", l.fullPath, err)
	}
	return nil
}

// Abort closes and removes the temporary file; nothing appears at fullPath.
func (l *localWriteCloser) Abort() error {
	tmpPath := l.File.Name()
	_ = l.File.Close()
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove temp file for %s: %w", l.fullPath, err)
	}
	return nil
}
