package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/jaunt/internal/config"
	"git.home.luguber.info/inful/jaunt/internal/diagnostics"
	"git.home.luguber.info/inful/jaunt/internal/errors"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	DryRun bool `name:"dry-run" help:"Show what would be removed without deleting"`
}

func (c *CleanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		err = errors.Wrap(err, errors.CategoryConfig, "load "+root.Config)
		fmt.Fprintln(os.Stderr, diagnostics.FormatErrorWithHint(err))
		return err
	}

	target := filepath.Join(cfg.Paths.PackageDir, cfg.Paths.GeneratedDir)

	// Refuse to remove anything outside the package dir.
	absRoot, err := filepath.Abs(cfg.Paths.PackageDir)
	if err != nil {
		return errors.Wrap(err, errors.CategoryFilesystem, "resolve package dir")
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return errors.Wrap(err, errors.CategoryFilesystem, "resolve generated dir")
	}
	if rel, err := filepath.Rel(absRoot, absTarget); err != nil || rel == "." || rel == ".." || filepath.IsAbs(rel) ||
		(len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)) {
		return errors.Newf(errors.CategoryFilesystem, "refusing to clean %s: not a subdirectory of %s", target, cfg.Paths.PackageDir)
	}

	if _, err := os.Stat(absTarget); os.IsNotExist(err) {
		fmt.Println("Nothing to clean")
		return nil
	}

	if c.DryRun {
		fmt.Printf("Would remove %s\n", absTarget)
		return nil
	}

	if err := os.RemoveAll(absTarget); err != nil {
		return errors.Wrap(err, errors.CategoryFilesystem, "remove generated dir")
	}
	fmt.Printf("Removed %s\n", absTarget)
	return nil
}
