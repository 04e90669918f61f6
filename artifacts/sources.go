package artifacts

import (
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// importPattern matches the path of every form of solidity import statement.
var importPattern = regexp.MustCompile(`import\s+(?:[^"';]*?\s+from\s+)?["']([^"']+)["']`)

// readSources fills in the source units the artifact does not embed, reading relative unit names
// below the project directory. Brownie does not record its remappings, so they are derived from
// the import statements.
func (s *Store) readSources(a *Artifact) {
	for path, text := range a.Sources {
		if text != "" {
			continue
		}

		file := path
		if !filepath.IsAbs(file) {
			file = filepath.Join(s.root, filepath.FromSlash(path))
		}
		data, err := os.ReadFile(file)
		if err != nil {
			s.lggr.Debugw("Source unit not found", "type", a.Type, "source", path, "err", err)
			continue
		}
		a.Sources[path] = string(data)
	}

	if a.Source == "" && a.SourcePath != "" {
		a.Source = a.Sources[a.SourcePath]
	}
	if a.Layout == LayoutBrownie && len(a.Remappings) == 0 {
		a.Remappings = deriveRemappings(a.Sources)
	}
}

// deriveRemappings maps every non-relative import which is not itself a source unit onto the unit
// sharing the longest path suffix with it.
func deriveRemappings(sources map[string]string) []string {
	units := slices.Sorted(maps.Keys(sources))
	found := make(map[string]struct{})
	for _, text := range sources {
		for _, m := range importPattern.FindAllStringSubmatch(text, -1) {
			imported := m[1]
			if strings.HasPrefix(imported, ".") {
				continue
			}
			if _, ok := sources[imported]; ok {
				continue
			}
			if r, ok := remapping(imported, units); ok {
				found[r] = struct{}{}
			}
		}
	}

	if len(found) == 0 {
		return nil
	}

	return slices.Sorted(maps.Keys(found))
}

func remapping(imported string, units []string) (string, bool) {
	from := strings.Split(imported, "/")

	var (
		best    []string
		bestLen int
	)
	for _, unit := range units {
		to := strings.Split(unit, "/")
		if n := commonSuffix(from, to); n > bestLen {
			best, bestLen = to, n
		}
	}
	if bestLen == 0 || bestLen == len(from) {
		return "", false
	}

	prefix := strings.Join(from[:len(from)-bestLen], "/") + "/"
	target := strings.Join(best[:len(best)-bestLen], "/")
	if target != "" {
		target += "/"
	}

	return prefix + "=" + target, true
}

// commonSuffix counts the trailing path segments a and b share.
func commonSuffix(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[len(a)-1-n] == b[len(b)-1-n] {
		n++
	}

	return n
}
