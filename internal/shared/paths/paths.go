package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BackupTimeLayout is the timestamp embedded in simple backup names
const BackupTimeLayout = "20060102T150405.000000000Z"

// Normalize returns the absolute, cleaned form of p. A leading "~" is
// replaced with home.
func Normalize(p, home string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	p = Expand(p, home)
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	return filepath.Clean(abs), nil
}

// Expand replaces a leading "~" with home
func Expand(p, home string) string {
	if home == "" {
		return p
	}
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		return filepath.Join(home, p[2:])
	}
	return p
}

// IsUnder reports whether p equals root or lies inside it
func IsUnder(p, root string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// CriticalRoots lists the directories watched for a platform
func CriticalRoots(goos, home string) []string {
	roots := []string{home}
	switch goos {
	case "darwin":
		roots = append(roots,
			filepath.Join(home, "Library", "Preferences"),
			"/etc",
			"/Library/Preferences",
		)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			roots = append(roots, appData)
		}
		roots = append(roots, filepath.Join(systemRoot(), "System32", "drivers", "etc"))
	default:
		roots = append(roots, filepath.Join(home, ".config"), "/etc")
	}
	return roots
}

// ProtectedPrefixes lists system locations ordinary writes must not touch
func ProtectedPrefixes(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"/etc", "/private/etc", "/Library", "/System", "/usr"}
	case "windows":
		return []string{systemRoot()}
	default:
		return []string{"/etc", "/usr", "/boot", "/opt", "/var/lib"}
	}
}

// SimpleBackupPath is the sibling path a simple backup of p is written to
func SimpleBackupPath(p string, at time.Time) string {
	return fmt.Sprintf("%s.backup-%s", p, at.UTC().Format(BackupTimeLayout))
}

// PartialPath is a hidden temp name in the same directory as p
func PartialPath(p, token string) string {
	return filepath.Join(filepath.Dir(p), fmt.Sprintf(".%s.partial-%s", filepath.Base(p), token))
}

func systemRoot() string {
	if root := os.Getenv("SystemRoot"); root != "" {
		return root
	}
	return `C:\Windows`
}
