package site

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/Bitlatte/pressroom/internal/logging"
	"github.com/Bitlatte/pressroom/internal/model"
)

// Publisher writes a complete page set to an output directory. Pages and
// static assets are first written to a staging directory next to the output
// and swapped in only once everything was written, so readers see either the
// previous site or the new one.
type Publisher struct {
	fs  afero.Fs
	log *logrus.Entry
}

func NewPublisher(fs afero.Fs, logger logrus.FieldLogger) *Publisher {
	return &Publisher{fs: fs, log: logging.Component(logger, "publisher")}
}

// Publish replaces outputDir with pages plus the contents of staticDir.
// staticDir may be empty or missing.
func (p *Publisher) Publish(outputDir, staticDir string, pages []*model.RenderedPage) (err error) {
	if err := checkPaths(pages); err != nil {
		return err
	}

	outputDir = filepath.Clean(outputDir)
	staging := outputDir + ".staging"
	if err := p.fs.RemoveAll(staging); err != nil {
		return fmt.Errorf("failed to clear staging directory '%s': %w", staging, err)
	}
	if err := p.fs.MkdirAll(staging, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create staging directory '%s': %w", staging, err)
	}
	defer func() {
		if err != nil {
			if rmErr := p.fs.RemoveAll(staging); rmErr != nil {
				p.log.WithError(rmErr).Warn("Could not remove staging directory")
			}
		}
	}()

	if staticDir != "" {
		exists, statErr := afero.DirExists(p.fs, staticDir)
		if statErr != nil {
			return fmt.Errorf("failed to stat static directory '%s': %w", staticDir, statErr)
		}
		if exists {
			if err := p.copyDirContents(staticDir, staging); err != nil {
				return fmt.Errorf("failed to copy static assets: %w", err)
			}
			p.log.WithField("dir", staticDir).Debug("Static assets copied")
		}
	}

	for _, page := range pages {
		target := filepath.Join(staging, filepath.FromSlash(page.Path))
		if err := p.fs.MkdirAll(filepath.Dir(target), os.ModePerm); err != nil {
			return fmt.Errorf("failed to create directory for '%s': %w", page.Path, err)
		}
		if err := afero.WriteFile(p.fs, target, page.Content, 0o644); err != nil {
			return fmt.Errorf("failed to write page '%s': %w", page.Path, err)
		}
	}

	return p.swap(staging, outputDir)
}

func (p *Publisher) swap(staging, outputDir string) error {
	previous := outputDir + ".previous"
	if err := p.fs.RemoveAll(previous); err != nil {
		return fmt.Errorf("failed to clear '%s': %w", previous, err)
	}

	hadOutput, err := afero.Exists(p.fs, outputDir)
	if err != nil {
		return fmt.Errorf("failed to stat output directory '%s': %w", outputDir, err)
	}
	if hadOutput {
		if err := p.fs.Rename(outputDir, previous); err != nil {
			return fmt.Errorf("failed to move aside output directory '%s': %w", outputDir, err)
		}
	}

	if err := p.fs.Rename(staging, outputDir); err != nil {
		if hadOutput {
			if restoreErr := p.fs.Rename(previous, outputDir); restoreErr != nil {
				p.log.WithError(restoreErr).Error("Could not restore previous output")
			}
		}
		return fmt.Errorf("failed to move staged site into '%s': %w", outputDir, err)
	}

	if hadOutput {
		if err := p.fs.RemoveAll(previous); err != nil {
			p.log.WithError(err).Warn("Could not remove previous output")
		}
	}
	return nil
}

// copyDirContents recursively copies the files under src into dst.
func (p *Publisher) copyDirContents(src, dst string) error {
	return afero.Walk(p.fs, src, func(current string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(src, current)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", current, err)
		}
		dstPath := filepath.Join(dst, relPath)

		if info.IsDir() {
			if err := p.fs.MkdirAll(dstPath, os.ModePerm); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dstPath, err)
			}
			return nil
		}
		if err := p.copyFile(current, dstPath, info.Mode()); err != nil {
			return fmt.Errorf("failed to copy file from %s to %s: %w", current, dstPath, err)
		}
		return nil
	})
}

func (p *Publisher) copyFile(srcFile, dstFile string, mode os.FileMode) error {
	srcF, err := p.fs.Open(srcFile)
	if err != nil {
		return err
	}
	defer srcF.Close()

	dstF, err := p.fs.OpenFile(dstFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstF, srcF); err != nil {
		dstF.Close()
		return err
	}
	return dstF.Close()
}

// checkPaths rejects page sets that would overwrite each other or escape the
// output directory.
func checkPaths(pages []*model.RenderedPage) error {
	seen := make(map[string]string, len(pages))
	for _, page := range pages {
		clean := path.Clean(page.Path)
		if page.Path == "" || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("page %q has an invalid output path", page.Path)
		}
		if other, dup := seen[clean]; dup {
			return fmt.Errorf("pages %q and %q both render to %s", other, page.Title, clean)
		}
		seen[clean] = page.Title
	}
	return nil
}
