package builder

import (
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/jaunt/internal/errors"
	"git.home.luguber.info/inful/jaunt/internal/header"
)

// GeneratedRelPath maps a module name to its artifact path relative to the
// package dir, e.g. ("proj.feature", "gen") -> "gen/proj/feature.go".
func GeneratedRelPath(module, generatedDir string) string {
	return filepath.Join(generatedDir, filepath.FromSlash(strings.ReplaceAll(module, ".", "/"))+".go")
}

// GeneratedModuleName is the dotted name of the generated module, used in
// generation prompts, e.g. ("proj.feature", "gen") -> "gen.proj.feature".
func GeneratedModuleName(module, generatedDir string) string {
	prefix := strings.ReplaceAll(filepath.ToSlash(filepath.Clean(generatedDir)), "/", ".")
	return prefix + "." + module
}

// writeArtifact atomically writes a generated artifact wrapped in its header:
// temp file in the destination directory, fsync, then rename. Writes are
// refused outside packageDir.
func writeArtifact(packageDir, relPath string, fields header.Fields, source string) error {
	outPath := filepath.Join(packageDir, relPath)

	absRoot, err := filepath.Abs(packageDir)
	if err != nil {
		return errors.Wrap(err, errors.CategoryFilesystem, "resolve package dir")
	}
	absOut, err := filepath.Abs(outPath)
	if err != nil {
		return errors.Wrap(err, errors.CategoryFilesystem, "resolve artifact path")
	}
	if rel, err := filepath.Rel(absRoot, absOut); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.Newf(errors.CategoryFilesystem, "refusing to write outside package dir: %s", relPath)
	}

	if err := os.MkdirAll(filepath.Dir(absOut), 0o755); err != nil {
		return errors.Wrap(err, errors.CategoryFilesystem, "create artifact dir")
	}

	content := header.Format(fields) + strings.TrimRight(source, "\n") + "\n"

	tmp, err := os.CreateTemp(filepath.Dir(absOut), ".jaunt-tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.CategoryFilesystem, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.CategoryFilesystem, "write artifact")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.CategoryFilesystem, "sync artifact")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.CategoryFilesystem, "close artifact")
	}
	if err := os.Rename(tmpName, absOut); err != nil {
		return errors.Wrap(err, errors.CategoryFilesystem, "publish artifact")
	}
	return nil
}
