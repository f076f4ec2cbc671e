package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/franksops/welllit/engine"
	"github.com/franksops/welllit/provider"
	"github.com/franksops/welllit/sequence"
)

// protocol is a validated protocol input.
type protocol struct {
	Name     string
	Checksum uint64
	Size     int64
	Rows     int
	Engine   *engine.Engine
}

// loadProtocol reads and validates the protocol at uri. The returned engine
// is a fresh run over it.
func loadProtocol(ctx context.Context, uri string, opts ...engine.Option) (*protocol, error) {
	p, pth, err := provider.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	info, err := p.Stat(ctx, pth)
	if err != nil {
		return nil, fmt.Errorf("failed to stat protocol: %w", err)
	}
	logger.Debug("reading protocol",
		zap.String("uri", uri),
		zap.Int64("size", info.Size()),
		zap.Time("modified", info.ModTime()),
	)

	rc, err := p.OpenRead(ctx, pth)
	if err != nil {
		return nil, fmt.Errorf("failed to open protocol: %w", err)
	}
	defer rc.Close()

	b := sequence.NewCSVBuilder(rc, sequence.Config{DefaultDestination: cfg.DefaultDestination})
	e, err := engine.New(b, opts...)
	if err != nil {
		return nil, err
	}
	return &protocol{
		Name:     info.Name(),
		Checksum: b.Checksum(),
		Size:     b.Size(),
		Rows:     b.Rows(),
		Engine:   e,
	}, nil
}

// defaultRunID names a run after its protocol file and input checksum, so
// rerunning the same file resumes it.
func (p *protocol) defaultRunID() string {
	name := strings.TrimSuffix(p.Name, path.Ext(p.Name))
	return fmt.Sprintf("%s-%016x", name, p.Checksum)
}

// printDiagnostics lists every validation problem in err, if it carries any.
func printDiagnostics(w io.Writer, err error) {
	var ve *sequence.ValidationError
	if !errors.As(err, &ve) {
		return
	}
	for _, d := range ve.Diagnostics {
		fmt.Fprintf(w, "  %s\n", d)
	}
}
