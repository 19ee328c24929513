// Package archive packages the compiler output into the zip file uploaded to Lambda.
package archive

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/savaki/grader-deployer/internal/config"
	deployerrors "github.com/savaki/grader-deployer/internal/errors"
)

// Options describes one archive build
type Options struct {
	OutputDir   string           // Directory to walk
	ArchivePath string           // Zip file to create, replaced if present
	StripMode   config.StripMode // How entry names are derived from walked paths
}

// OptionsFromConfig returns the archive options held by cfg
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		OutputDir:   cfg.OutputDir,
		ArchivePath: cfg.ArchivePath,
		StripMode:   cfg.StripMode,
	}
}

// Result describes a written archive
type Result struct {
	Path    string   // Location of the zip file
	Entries []string // Entry names in the order they were written
	Dirs    int      // Subdirectories visited below OutputDir
	Size    int64    // Size of the zip file in bytes
}

// Builder writes archives
type Builder struct{}

// New creates a Builder
func New() *Builder {
	return &Builder{}
}

type entry struct {
	path string
	name string
}

// Build walks opts.OutputDir and writes every regular file into a deflate
// compressed zip at opts.ArchivePath. When the walk finds no subdirectory
// below OutputDir, ErrNothingToArchive is returned and no file is written.
func (b *Builder) Build(ctx context.Context, opts Options) (Result, error) {
	logger := zerolog.Ctx(ctx)

	root := filepath.Clean(opts.OutputDir)
	namer, err := entryNamer(root, opts.StripMode)
	if err != nil {
		return Result{}, err
	}

	var (
		entries []entry
		dirs    int
	)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}

		if d.IsDir() {
			if path != root {
				dirs++
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		name, err := namer(path)
		if err != nil {
			return err
		}
		entries = append(entries, entry{path: path, name: name})
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	if dirs == 0 {
		return Result{}, fmt.Errorf("%w: %s", deployerrors.ErrNothingToArchive, root)
	}

	if err := os.MkdirAll(filepath.Dir(opts.ArchivePath), 0755); err != nil {
		return Result{}, fmt.Errorf("failed to create archive directory: %w", err)
	}

	size, err := writeZip(opts.ArchivePath, entries)
	if err != nil {
		return Result{}, fmt.Errorf("failed to write archive %s: %w", opts.ArchivePath, err)
	}

	result := Result{
		Path: opts.ArchivePath,
		Dirs: dirs,
		Size: size,
	}
	for _, e := range entries {
		result.Entries = append(result.Entries, e.name)
	}

	logger.Info().
		Str("archive", result.Path).
		Int("entries", len(result.Entries)).
		Int("dirs", result.Dirs).
		Int64("bytes", result.Size).
		Msg("Archive written")

	return result, nil
}

// entryNamer returns the function mapping a walked path to its zip entry name
func entryNamer(root string, mode config.StripMode) (func(path string) (string, error), error) {
	switch mode {
	case config.StripPositional, "":
		// drops the output directory name and its separator by length
		prefix := len(root) + 1
		return func(path string) (string, error) {
			if len(path) <= prefix {
				return "", fmt.Errorf("path %s shorter than output prefix %s", path, root)
			}
			return filepath.ToSlash(path[prefix:]), nil
		}, nil

	case config.StripSemantic:
		return func(path string) (string, error) {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return "", err
			}
			return filepath.ToSlash(rel), nil
		}, nil

	default:
		return nil, fmt.Errorf("unknown strip mode %q", mode)
	}
}

func writeZip(path string, entries []entry) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	zw := zip.NewWriter(f)
	for _, e := range entries {
		if err := addFile(zw, e); err != nil {
			zw.Close()
			f.Close()
			return 0, err
		}
	}

	if err := zw.Close(); err != nil {
		f.Close()
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, err
	}

	return info.Size(), f.Close()
}

func addFile(zw *zip.Writer, e entry) error {
	src, err := os.Open(e.path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = e.name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(w, src)
	return err
}

// CopyMetadata copies the JSON file at src into dir, keeping its base name.
// The file must hold valid JSON.
func CopyMetadata(src, dir string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("failed to read metadata %s: %w", src, err)
	}

	if !json.Valid(data) {
		return "", fmt.Errorf("metadata %s is not valid JSON", src)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	dst := filepath.Join(dir, filepath.Base(src))
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write metadata %s: %w", dst, err)
	}

	return dst, nil
}

// Read returns the bytes of the archive at path
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", path, err)
	}
	return data, nil
}
