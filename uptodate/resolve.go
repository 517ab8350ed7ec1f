package uptodate

import (
	"path/filepath"

	"github.com/pkg/errors"
	. "github.com/stevegt/goadapt"

	"github.com/t7a/redo"
	"github.com/t7a/redo/dofile"
	"github.com/t7a/redo/store"
)

// IsUpToDate reports whether absTarget, an already canonicalized
// absolute path, needs no rebuild. It is the entry point for
// redo-ifchange's staleness check.
func IsUpToDate(root, absTarget string) (bool, error) {
	return isUpToDate(root, absTarget, map[string]bool{})
}

// visited guards against a generated .do constructing a dependency
// cycle: within one resolver call, a repeat visit is treated as
// up-to-date so the recursion terminates.
func isUpToDate(root, absTarget string, visited map[string]bool) (upToDate bool, err error) {
	defer Return(&err)

	if visited[absTarget] {
		return true, nil
	}
	visited[absTarget] = true

	if _, built := store.GetBuiltTargetPath(root, absTarget); !built {
		return false, nil
	}

	doPath, found := dofile.Resolve(absTarget)
	if !found {
		// no .do: a source file, trivially up to date.
		return true, nil
	}

	md := store.New(root, absTarget)
	if !md.Exists() {
		return true, nil
	}

	if md.Always() {
		return false, nil
	}

	ifcreates, err := md.Ifcreates()
	Ck(err)
	for _, dep := range ifcreates {
		if redo.Exists(dep) {
			return false, nil
		}
	}

	ifchanges, err := md.Ifchanges()
	Ck(err)

	doDir := filepath.Dir(doPath)
	for dep, storedStamp := range ifchanges {
		depAbs := dep
		if !filepath.IsAbs(depAbs) {
			depAbs, err = redo.Canonicalize(filepath.Join(doDir, dep))
			Ck(err)
		}

		effective, ok := store.GetBuiltTargetPath(root, depAbs)
		if !ok {
			return false, nil
		}

		currentStamp, err := redo.StampPath(effective)
		Ck(err)
		if !currentStamp.Equal(storedStamp) {
			return false, nil
		}

		depUpToDate, err := isUpToDate(root, depAbs, visited)
		if err != nil {
			return false, errors.Wrapf(err, "resolving dependency %s", depAbs)
		}
		if !depUpToDate {
			return false, nil
		}
	}

	return true, nil
}
