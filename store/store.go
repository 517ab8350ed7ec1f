package store

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	. "github.com/stevegt/goadapt"

	"github.com/t7a/redo"
)

// MetaDir is the on-disk metadata directory for a single target,
// rooted under a shared metadata root. Every method that touches disk
// is atomic at the granularity of one file write -- callers needing
// cross-file atomicity (e.g. mark_clean's purge-then-write) rely on
// the fact that only one process holds the target's lock at a time.
type MetaDir struct {
	Root   string
	Target string // canonicalized absolute path
	Path   string // Root/<xx>/<rest-of-hash>
}

var sentinel = []byte{1}

// New derives the MetaDir location for an already-canonicalized
// absolute target path. It does not touch disk.
func New(root, absTarget string) *MetaDir {
	id := redo.HashTargetID(absTarget)
	sub, rest := redo.SplitHash(id)
	return &MetaDir{
		Root:   root,
		Target: absTarget,
		Path:   filepath.Join(root, sub, rest),
	}
}

// Exists reports whether this target has a MetaDir on disk. Per the
// data model, its presence implies T is (or was) a build target
// rather than a bare source file.
func (m *MetaDir) Exists() bool {
	return redo.IsDir(m.Path)
}

// InitMetaDir removes any prior MetaDir for the target, creates a
// fresh one, records doPath as the cached .do, and stores an ifchange
// record for the .do file itself stamped at this moment.
func (m *MetaDir) InitMetaDir(doPath string) (err error) {
	defer Return(&err)

	if err := os.RemoveAll(m.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "init metadir: remove %s", m.Path)
	}
	err = redo.Mkdir(m.Path)
	Ck(err)

	err = ioutil.WriteFile(m.cachedDoPath(), []byte(doPath), 0644)
	Ck(err)

	return m.StoreIfchange(doPath)
}

func (m *MetaDir) cachedDoPath() string { return filepath.Join(m.Path, cachedDoFilename) }
func (m *MetaDir) builtPath() string    { return filepath.Join(m.Path, builtFilename) }
func (m *MetaDir) alwaysPath() string   { return filepath.Join(m.Path, alwaysFilename) }
func (m *MetaDir) phonyPath() string    { return filepath.Join(m.Path, phonyFilename) }

// StoreIfchange writes the current stamp of dep into an ifchange
// record for it. A dep whose last build produced no artifact is
// stamped via its phony marker instead of its (nonexistent) own path,
// so a later re-check of this record via GetBuiltTargetPath compares
// like against like.
func (m *MetaDir) StoreIfchange(dep string) (err error) {
	defer Return(&err)
	effective, ok := GetBuiltTargetPath(m.Root, dep)
	if !ok {
		effective = dep
	}
	stamp, err := redo.StampPath(effective)
	Ck(err)
	path := filepath.Join(m.Path, ifchangeRecordName(dep))
	return ioutil.WriteFile(path, stamp, 0644)
}

// StoreIfcreate records that dep must not exist yet; it fails if dep
// is already present on disk.
func (m *MetaDir) StoreIfcreate(dep string) (err error) {
	defer Return(&err)
	if redo.Exists(dep) {
		return &redo.AlreadyExistsError{Path: dep}
	}
	path := filepath.Join(m.Path, ifcreateRecordName(dep))
	return ioutil.WriteFile(path, sentinel, 0644)
}

// StoreAlways records that the target must be considered out of date
// on every check, regardless of dependency stamps.
func (m *MetaDir) StoreAlways() error {
	return ioutil.WriteFile(m.alwaysPath(), sentinel, 0644)
}

// StorePhony records that the target's .do produced no artifact.
func (m *MetaDir) StorePhony() error {
	return ioutil.WriteFile(m.phonyPath(), sentinel, 0644)
}

// MarkClean purges any prior clean/dirty marks from earlier sessions
// and records that session proved this target up to date.
func (m *MetaDir) MarkClean(session string) (err error) {
	defer Return(&err)
	err = m.purgeMarks()
	Ck(err)
	path := filepath.Join(m.Path, cleanRecordName(session))
	return ioutil.WriteFile(path, sentinel, 0644)
}

// MarkDirty purges any prior clean/dirty marks and records that
// session observed a build failure for this target.
func (m *MetaDir) MarkDirty(session string) (err error) {
	defer Return(&err)
	err = m.purgeMarks()
	Ck(err)
	path := filepath.Join(m.Path, dirtyRecordName(session))
	return ioutil.WriteFile(path, sentinel, 0644)
}

func (m *MetaDir) purgeMarks() error {
	entries, err := ioutil.ReadDir(m.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, ent := range entries {
		name := ent.Name()
		if _, ok := isCleanRecord(name); ok {
			if err := os.Remove(filepath.Join(m.Path, name)); err != nil {
				return err
			}
			continue
		}
		if _, ok := isDirtyRecord(name); ok {
			if err := os.Remove(filepath.Join(m.Path, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// MarkBuilt records the target's stamp immediately after a successful
// install, used later to detect external modification.
func (m *MetaDir) MarkBuilt() (err error) {
	defer Return(&err)
	stamp, err := redo.StampPath(m.Target)
	Ck(err)
	return ioutil.WriteFile(m.builtPath(), stamp, 0644)
}

// BuiltTimestamp returns the stamp recorded at the last successful
// build, or the absent sentinel if the target has never been built.
func (m *MetaDir) BuiltTimestamp() (redo.Stamp, error) {
	data, err := ioutil.ReadFile(m.builtPath())
	if os.IsNotExist(err) {
		return redo.Stamp{0x00}, nil
	}
	if err != nil {
		return nil, err
	}
	return redo.Stamp(data), nil
}

// IsClean reports whether any session's clean mark is present.
func (m *MetaDir) IsClean() (bool, error) {
	return m.hasMarkKind(isCleanRecord)
}

// IsDirty reports whether any session's dirty mark is present.
func (m *MetaDir) IsDirty() (bool, error) {
	return m.hasMarkKind(isDirtyRecord)
}

func (m *MetaDir) hasMarkKind(match func(string) (string, bool)) (bool, error) {
	entries, err := ioutil.ReadDir(m.Path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, ent := range entries {
		if _, ok := match(ent.Name()); ok {
			return true, nil
		}
	}
	return false, nil
}

// CachedDo returns the .do path recorded when this MetaDir was last
// (re)initialized.
func (m *MetaDir) CachedDo() (string, error) {
	data, err := ioutil.ReadFile(m.cachedDoPath())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Phony reports whether the phony marker is present.
func (m *MetaDir) Phony() bool {
	return redo.Exists(m.phonyPath())
}

// Always reports whether an always-record is present.
func (m *MetaDir) Always() bool {
	return redo.Exists(m.alwaysPath())
}

// Ifchanges enumerates the recorded ifchange dependencies and their
// stored stamps.
func (m *MetaDir) Ifchanges() (deps map[string]redo.Stamp, err error) {
	defer Return(&err)
	deps = map[string]redo.Stamp{}
	entries, err := ioutil.ReadDir(m.Path)
	if os.IsNotExist(err) {
		return deps, nil
	}
	Ck(err)
	for _, ent := range entries {
		dep, ok := isIfchangeRecord(ent.Name())
		if !ok {
			continue
		}
		data, err := ioutil.ReadFile(filepath.Join(m.Path, ent.Name()))
		Ck(err)
		deps[dep] = redo.Stamp(data)
	}
	return deps, nil
}

// Ifcreates enumerates the recorded ifcreate dependency paths.
func (m *MetaDir) Ifcreates() (deps []string, err error) {
	entries, err := ioutil.ReadDir(m.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, ent := range entries {
		if dep, ok := isIfcreateRecord(ent.Name()); ok {
			deps = append(deps, dep)
		}
	}
	return deps, nil
}

// IsSource reports whether T exists on disk and has no MetaDir --
// i.e. it was never a build target.
func IsSource(root, absTarget string) bool {
	if !redo.Exists(absTarget) {
		return false
	}
	return !New(root, absTarget).Exists()
}

// GetBuiltTargetPath returns absTarget itself if present on disk,
// otherwise the path to its phony marker if that exists, otherwise
// empty string with ok=false.
func GetBuiltTargetPath(root, absTarget string) (path string, ok bool) {
	if redo.Exists(absTarget) {
		return absTarget, true
	}
	md := New(root, absTarget)
	if md.Phony() {
		return md.phonyPath(), true
	}
	return "", false
}
