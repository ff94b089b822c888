// Package goemitter renders an assembled client model into a Go package:
// one source file with the root client, resource-scoped sub-clients, and a
// typed method per operation, all linking against the runtime library.
package goemitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/swagger2client/internal/gen"
)

// Options controls how the emitter renders the generated package.
type Options struct {
	OutDir      string // required; target directory to write the package
	PackageName string // generated package name; derived from the API title when empty
	Force       bool   // overwrite existing files
	DryRun      bool   // don't write, only plan
	Verbose     bool
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and final resolved names.
type Result struct {
	PackageName string
	Planned     []PlannedFile
}

// Emit renders the client package for the given model.
func Emit(ctx context.Context, cm *gen.ClientModel, opts Options) (*Result, error) {
	_ = ctx
	if cm == nil {
		return nil, fmt.Errorf("goemitter: nil client model")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("goemitter: OutDir is required")
	}
	pkg := sanitizePackageName(opts.PackageName)
	if pkg == "" {
		pkg = sanitizePackageName(cm.Title)
		if pkg == "" {
			pkg = "apiclient"
		}
	}
	model := *cm
	model.Package = pkg

	files := map[string][]byte{
		"client.go": []byte(renderClientGo(&model)),
		"doc.go":    []byte(renderDocGo(&model)),
		"README.md": []byte(renderReadme(&model)),
	}

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}
	return &Result{PackageName: pkg, Planned: planned}, nil
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("goemitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}

func sanitizePackageName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return ""
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "api" + out
	}
	return out
}
