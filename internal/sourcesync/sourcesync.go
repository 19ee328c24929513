// Package sourcesync copies source directories from the external modeller
// project into the local working tree.
//
// The copy is additive: files are created or overwritten, never deleted.
package sourcesync

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/savaki/grader-deployer/internal/config"
)

// Syncer copies directory trees and reports each copied file to Out
type Syncer struct {
	Out io.Writer
}

// New creates a Syncer printing copied paths to out
func New(out io.Writer) *Syncer {
	return &Syncer{Out: out}
}

// Sync copies every pair in order and returns the number of files copied
func (s *Syncer) Sync(ctx context.Context, pairs []config.SyncDir) (int, error) {
	logger := zerolog.Ctx(ctx)

	total := 0
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		logger.Info().Str("from", pair.From).Str("to", pair.To).Msg("Syncing directory")
		n, err := s.Copy(pair.From, pair.To)
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// Copy recursively copies src into dst. Directories are created as needed;
// a regular file occupying a directory's destination path is removed first.
// Files are overwritten. Nothing in dst is deleted otherwise.
func (s *Syncer) Copy(src, dst string) (int, error) {
	copied := 0

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return makeDir(target)
		}

		if !d.Type().IsRegular() {
			return nil
		}

		if err := copyFile(path, target); err != nil {
			return err
		}
		copied++

		if s.Out != nil {
			fmt.Fprintln(s.Out, target)
		}
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	return copied, nil
}

func makeDir(path string) error {
	info, err := os.Lstat(path)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		if err := os.Remove(path); err != nil {
			return err
		}
	case !os.IsNotExist(err):
		return err
	}

	return os.MkdirAll(path, 0755)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
