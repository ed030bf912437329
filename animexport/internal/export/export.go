// Package export assembles the holding tree and the synthesized stylesheet
// into a standalone SVG document and writes it out.
//
// Files are written atomically (write .tmp then rename) so a cancelled or
// failed run never leaves a partial document behind.
package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/animexport/animexport/internal/domtree"
)

// Stdout as Output writes the document to Config.Stdout.
const Stdout = "-"

const (
	nsSVG   = "http://www.w3.org/2000/svg"
	nsXLink = "http://www.w3.org/1999/xlink"
	xhtmlNS = ` xmlns="http://www.w3.org/1999/xhtml"`
)

// Config configures an Exporter.
type Config struct {
	Output  string    // file path or Stdout
	ViewBox string    // e.g. "0 0 600 600"
	Stdout  io.Writer // defaults to os.Stdout
	Logger  *slog.Logger
}

// Result describes a written document.
type Result struct {
	Path   string
	Bytes  int64
	SHA256 string
}

// Exporter writes export documents.
type Exporter struct {
	cfg Config
}

// New creates an Exporter.
func New(cfg Config) *Exporter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.ViewBox == "" {
		cfg.ViewBox = "0 0 600 600"
	}
	return &Exporter{cfg: cfg}
}

// Export finishes the holding tree, renders it and writes it. The holding
// tree is emptied on return whatever the outcome.
func (e *Exporter) Export(ctx context.Context, holding domtree.Node, css string) (Result, error) {
	defer release(holding)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	data, err := e.Render(holding, css)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Path:   e.cfg.Output,
		Bytes:  int64(len(data)),
		SHA256: fmt.Sprintf("%x", sha256.Sum256(data)),
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if e.cfg.Output == Stdout {
		if _, err := e.cfg.Stdout.Write(data); err != nil {
			return Result{}, fmt.Errorf("export: write stdout: %w", err)
		}
	} else if err := writeAtomic(e.cfg.Output, data); err != nil {
		return Result{}, err
	}

	e.cfg.Logger.Info("export: document written",
		"path", res.Path, "bytes", res.Bytes, "sha256", res.SHA256)
	return res, nil
}

// Render produces the document bytes without writing them.
func (e *Exporter) Render(holding domtree.Node, css string) ([]byte, error) {
	var drop []domtree.Node
	domtree.Walk(holding, func(n domtree.Node) bool {
		if n == holding {
			return true
		}
		switch n.Tag() {
		case "script":
			drop = append(drop, n)
			return false
		case "style":
			if strings.TrimSpace(n.Text()) == "" {
				drop = append(drop, n)
			}
			return false
		}
		return true
	})
	for _, n := range drop {
		n.Remove()
	}

	style := domtree.NewElement("style")
	style.SetText(css)
	holding.PrependChild(style)

	holding.SetAttr("xmlns", nsSVG)
	holding.SetAttr("xmlns:xlink", nsXLink)
	holding.SetAttr("viewBox", e.cfg.ViewBox)
	holding.SetAttr("shape-rendering", "geometricPrecision")
	holding.SetAttr("text-rendering", "geometricPrecision")

	var buf bytes.Buffer
	if err := domtree.Render(&buf, holding); err != nil {
		return nil, fmt.Errorf("export: render: %w", err)
	}
	return bytes.ReplaceAll(buf.Bytes(), []byte(xhtmlNS), nil), nil
}

func writeAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export: mkdir %s: %w", dir, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("export: write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("export: rename: %w", err)
	}
	return nil
}

func release(holding domtree.Node) {
	for _, c := range holding.Children() {
		c.Remove()
	}
}
