package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const maxLinkHops = 40

// ErrTooManyLinks is returned for symlink loops
var ErrTooManyLinks = errors.New("too many levels of symbolic links")

// ResolveLinks returns the path a write to p lands on when links are
// followed. Every existing component is resolved; a missing tail is kept
// as given, so a dangling link resolves to the file it would create.
// Filesystems without symlink support return p cleaned. p must be absolute.
func ResolveLinks(fsys afero.Fs, p string) (string, error) {
	sl, ok := fsys.(afero.Symlinker)
	if !ok {
		return filepath.Clean(p), nil
	}

	root, parts := splitAbs(p)
	resolved := root
	hops := 0
	for len(parts) > 0 {
		name := parts[0]
		parts = parts[1:]
		switch name {
		case "", ".":
			continue
		case "..":
			resolved = filepath.Dir(resolved)
			continue
		}

		next := filepath.Join(resolved, name)
		info, _, err := sl.LstatIfPossible(next)
		if errors.Is(err, fs.ErrNotExist) {
			return filepath.Join(append([]string{next}, parts...)...), nil
		}
		if err != nil {
			return "", err
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			resolved = next
			continue
		}

		if hops++; hops > maxLinkHops {
			return "", fmt.Errorf("%s: %w", p, ErrTooManyLinks)
		}
		target, err := sl.ReadlinkIfPossible(next)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(resolved, target)
		}
		var rest []string
		resolved, rest = splitAbs(target)
		parts = append(rest, parts...)
	}
	return resolved, nil
}

func splitAbs(p string) (string, []string) {
	p = filepath.Clean(p)
	vol := filepath.VolumeName(p)
	root := vol + string(filepath.Separator)
	rest := strings.TrimPrefix(p[len(vol):], string(filepath.Separator))
	if rest == "" {
		return root, nil
	}
	return root, strings.Split(rest, string(filepath.Separator))
}
