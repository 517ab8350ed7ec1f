package dofile

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func tassert(t *testing.T, cond bool, txt string, args ...interface{}) {
	t.Helper()
	if !cond {
		t.Fatalf(txt, args...)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	err := os.MkdirAll(filepath.Dir(path), 0755)
	tassert(t, err == nil, "%v", err)
	err = ioutil.WriteFile(path, []byte("#!/bin/sh\n"), 0644)
	tassert(t, err == nil, "%v", err)
}

func TestResolveSpecific(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "foo")
	touch(t, target+".do")

	got, ok := Resolve(target)
	tassert(t, ok, "expected to resolve")
	tassert(t, got == target+".do", "expected %s.do, got %s", target, got)
}

func TestResolveDefaultInSameDir(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "default.c.do"))
	target := filepath.Join(dir, "foo.c")

	got, ok := Resolve(target)
	tassert(t, ok, "expected to resolve")
	tassert(t, got == filepath.Join(dir, "default.c.do"), "got %s", got)
}

func TestResolveDefaultInAncestor(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "default.c.do"))
	sub := filepath.Join(root, "a", "b")
	target := filepath.Join(sub, "foo.c")

	got, ok := Resolve(target)
	tassert(t, ok, "expected to resolve via ancestor")
	tassert(t, got == filepath.Join(root, "default.c.do"), "got %s", got)
}

func TestResolveSuffixStripping(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "default.gz.do"))
	target := filepath.Join(dir, "foo.tar.gz")

	got, ok := Resolve(target)
	tassert(t, ok, "expected to resolve default.gz.do for .tar.gz target")
	tassert(t, got == filepath.Join(dir, "default.gz.do"), "got %s", got)
}

func TestResolveSpecificDoesNotApplyInAncestor(t *testing.T) {
	root := t.TempDir()
	// a sibling-named .do in an ancestor should never satisfy the
	// specific-name rule for a target in a subdirectory.
	touch(t, filepath.Join(root, "foo.do"))
	sub := filepath.Join(root, "sub")
	target := filepath.Join(sub, "foo")

	_, ok := Resolve(target)
	tassert(t, !ok, "expected no resolution: ancestor foo.do must not satisfy specific rule")
}

func TestResolveCloserDirWinsOverMoreSpecificExt(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "default.tar.gz.do"))
	sub := filepath.Join(root, "sub")
	touch(t, filepath.Join(sub, "default.gz.do"))
	target := filepath.Join(sub, "app.tar.gz")

	got, ok := Resolve(target)
	tassert(t, ok, "expected to resolve")
	tassert(t, got == filepath.Join(sub, "default.gz.do"),
		"expected closer, less-specific default.gz.do to win, got %s", got)
}

func TestResolveNotFound(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "foo")

	_, ok := Resolve(target)
	tassert(t, !ok, "expected no .do file found")
}
