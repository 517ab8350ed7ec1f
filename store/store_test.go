package store

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/t7a/redo"
)

func tassert(t *testing.T, cond bool, txt string, args ...interface{}) {
	t.Helper()
	if !cond {
		t.Fatalf(txt, args...)
	}
}

func setup(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

func TestInitMetaDirCreatesCachedDoAndIfchange(t *testing.T) {
	root := setup(t)
	dir := t.TempDir()
	doPath := filepath.Join(dir, "foo.do")
	writeFile(t, doPath, "redo-ifchange dep\n")

	target := filepath.Join(dir, "foo")
	md := New(root, target)
	err := md.InitMetaDir(doPath)
	tassert(t, err == nil, "%v", err)

	got, err := md.CachedDo()
	tassert(t, err == nil, "%v", err)
	tassert(t, got == doPath, "expected %s, got %s", doPath, got)

	deps, err := md.Ifchanges()
	tassert(t, err == nil, "%v", err)
	stamp, ok := deps[doPath]
	tassert(t, ok, "expected .do file recorded as an ifchange dep")
	tassert(t, !stamp.Absent(), "expected concrete stamp for existing .do file")
}

func TestInitMetaDirWipesPriorContents(t *testing.T) {
	root := setup(t)
	dir := t.TempDir()
	doPath := filepath.Join(dir, "foo.do")
	writeFile(t, doPath, "echo hi\n")
	target := filepath.Join(dir, "foo")

	md := New(root, target)
	tassert(t, md.InitMetaDir(doPath) == nil, "first init")
	tassert(t, md.StoreAlways() == nil, "store always")
	tassert(t, md.Always(), "expected always record present")

	tassert(t, md.InitMetaDir(doPath) == nil, "second init")
	tassert(t, !md.Always(), "expected always record purged by re-init")
}

func TestStoreIfcreateFailsIfExists(t *testing.T) {
	root := setup(t)
	dir := t.TempDir()
	doPath := filepath.Join(dir, "foo.do")
	writeFile(t, doPath, "echo hi\n")
	existing := filepath.Join(dir, "already-here")
	writeFile(t, existing, "x")

	target := filepath.Join(dir, "foo")
	md := New(root, target)
	tassert(t, md.InitMetaDir(doPath) == nil, "init")

	err := md.StoreIfcreate(existing)
	tassert(t, err != nil, "expected error for already-existing ifcreate dep")
}

func TestStoreIfcreateRecordsMissingPath(t *testing.T) {
	root := setup(t)
	dir := t.TempDir()
	doPath := filepath.Join(dir, "foo.do")
	writeFile(t, doPath, "echo hi\n")
	notYet := filepath.Join(dir, "not-yet")

	target := filepath.Join(dir, "foo")
	md := New(root, target)
	tassert(t, md.InitMetaDir(doPath) == nil, "init")
	tassert(t, md.StoreIfcreate(notYet) == nil, "store ifcreate")

	deps, err := md.Ifcreates()
	tassert(t, err == nil, "%v", err)
	tassert(t, len(deps) == 1 && deps[0] == notYet, "expected [%s], got %v", notYet, deps)
}

func TestMarkCleanDirtyMutuallyExclusive(t *testing.T) {
	root := setup(t)
	dir := t.TempDir()
	doPath := filepath.Join(dir, "foo.do")
	writeFile(t, doPath, "echo hi\n")
	target := filepath.Join(dir, "foo")
	md := New(root, target)
	tassert(t, md.InitMetaDir(doPath) == nil, "init")

	tassert(t, md.MarkDirty("sess1") == nil, "mark dirty")
	dirty, _ := md.IsDirty()
	clean, _ := md.IsClean()
	tassert(t, dirty && !clean, "expected dirty only")

	tassert(t, md.MarkClean("sess1") == nil, "mark clean")
	dirty, _ = md.IsDirty()
	clean, _ = md.IsClean()
	tassert(t, clean && !dirty, "expected clean only after re-mark")
}

func TestMarkBuiltAndBuiltTimestamp(t *testing.T) {
	root := setup(t)
	dir := t.TempDir()
	doPath := filepath.Join(dir, "foo.do")
	writeFile(t, doPath, "echo hi\n")
	target := filepath.Join(dir, "foo")
	writeFile(t, target, "built content")

	md := New(root, target)
	tassert(t, md.InitMetaDir(doPath) == nil, "init")
	tassert(t, md.MarkBuilt() == nil, "mark built")

	stamp, err := md.BuiltTimestamp()
	tassert(t, err == nil, "%v", err)
	tassert(t, !stamp.Absent(), "expected concrete built stamp")

	want, err := redo.StampPath(target)
	tassert(t, err == nil, "%v", err)
	tassert(t, stamp.Equal(want), "expected built stamp to match current content stamp")
}

func TestIsSourceTrueForUntrackedExistingFile(t *testing.T) {
	root := setup(t)
	dir := t.TempDir()
	f := filepath.Join(dir, "plain.txt")
	writeFile(t, f, "hello")
	tassert(t, IsSource(root, f), "expected untracked existing file to be a source")
}

func TestIsSourceFalseOnceMetaDirExists(t *testing.T) {
	root := setup(t)
	dir := t.TempDir()
	doPath := filepath.Join(dir, "foo.do")
	writeFile(t, doPath, "echo hi\n")
	target := filepath.Join(dir, "foo")
	writeFile(t, target, "content")

	md := New(root, target)
	tassert(t, md.InitMetaDir(doPath) == nil, "init")
	tassert(t, !IsSource(root, target), "expected target with a MetaDir to not be a source")
}

func TestGetBuiltTargetPathPrefersRealFile(t *testing.T) {
	root := setup(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "foo")
	writeFile(t, target, "content")

	path, ok := GetBuiltTargetPath(root, target)
	tassert(t, ok, "expected ok")
	tassert(t, path == target, "expected %s, got %s", target, path)
}

func TestGetBuiltTargetPathFallsBackToPhony(t *testing.T) {
	root := setup(t)
	dir := t.TempDir()
	doPath := filepath.Join(dir, "foo.do")
	writeFile(t, doPath, "echo hi\n")
	target := filepath.Join(dir, "foo")

	md := New(root, target)
	tassert(t, md.InitMetaDir(doPath) == nil, "init")
	tassert(t, md.StorePhony() == nil, "store phony")

	_, ok := GetBuiltTargetPath(root, target)
	tassert(t, ok, "expected phony fallback to satisfy GetBuiltTargetPath")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	err := redo.Mkdir(filepath.Dir(path))
	tassert(t, err == nil, "%v", err)
	err = ioutil.WriteFile(path, []byte(content), 0644)
	tassert(t, err == nil, "%v", err)
}
