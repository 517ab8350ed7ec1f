package dofile

import (
	"path/filepath"
	"strings"

	"github.com/t7a/redo"
)

// Resolve finds the .do script that builds target, an already
// canonicalized absolute path. It returns ok=false if no .do file
// exists anywhere in the search path.
//
// Search order: the specific name (<base>.do) is tried only in the
// target's own directory. Failing that, default<.ext...>.do is tried
// for each suffix of the target's extensions, in the target's
// directory first, then successively in each ancestor directory up to
// the filesystem root. The specific-name rule never applies outside
// the target's own directory.
func Resolve(target string) (doPath string, ok bool) {
	dir := filepath.Dir(target)
	base := filepath.Base(target)

	specific := filepath.Join(dir, base+".do")
	if redo.Exists(specific) {
		return specific, true
	}

	exts := suffixes(base)
	d := dir
	for {
		for _, ext := range exts {
			candidate := filepath.Join(d, "default"+ext+".do")
			if redo.Exists(candidate) {
				return candidate, true
			}
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}

	return "", false
}

// suffixes returns every non-empty proper suffix of base's dotted
// extensions, from most specific to least, e.g. "foo.tar.gz" yields
// [".tar.gz", ".gz"]. A basename with no dot yields nil.
func suffixes(base string) []string {
	var out []string
	rest := base
	for {
		i := strings.Index(rest, ".")
		if i < 0 {
			break
		}
		rest = rest[i+1:]
		out = append(out, "."+rest)
	}
	return out
}
