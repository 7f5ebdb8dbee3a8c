package driver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// HomeEnv names the environment variable overriding the dependency cache root.
const HomeEnv = "LEARNPI_HOME"

// ResolveHome returns the dependency cache root: $LEARNPI_HOME when set,
// otherwise ~/.learnpi.
func ResolveHome() (string, error) {
	if home := strings.TrimSpace(os.Getenv(HomeEnv)); home != "" {
		return filepath.Abs(home)
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrapf(err, "resolve home directory (set %s)", HomeEnv)
	}
	return filepath.Join(userHome, ".learnpi"), nil
}

// CachePath is where a fetched dependency version lives inside the cache root.
func CachePath(cacheDir, name, version string) string {
	return filepath.Join(cacheDir, "pkg", "src", sanitizeSegment(name), SanitizePathSegment(version))
}

// SanitizePathSegment maps a version or revision onto a single safe path
// component.
func SanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	var b strings.Builder
	for _, r := range segment {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "head"
	}
	return b.String()
}

func sanitizeSegment(seg string) string {
	return strings.ReplaceAll(strings.TrimSpace(seg), "-", "_")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
