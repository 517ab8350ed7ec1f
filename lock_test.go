package redo

import (
	"path/filepath"
	"testing"
)

func TestLockExclusion(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target-file")

	a, err := NewLock(root, target)
	tassert(t, err == nil, "%v", err)
	b, err := NewLock(root, target)
	tassert(t, err == nil, "%v", err)

	ok, err := a.TryLock()
	tassert(t, err == nil && ok, "expected first TryLock to succeed")

	ok, err = b.TryLock()
	tassert(t, err == nil, "%v", err)
	tassert(t, !ok, "expected second TryLock on same target to fail while held")

	err = a.Unlock()
	tassert(t, err == nil, "%v", err)

	ok, err = b.TryLock()
	tassert(t, err == nil && ok, "expected TryLock to succeed once the holder released")
	b.Unlock()
}

func TestLockPathDeterministic(t *testing.T) {
	root := t.TempDir()
	p1 := LockPath(root, "/abs/target")
	p2 := LockPath(root, "/abs/target")
	tassert(t, p1 == p2, "expected deterministic lock path")
	tassert(t, p1 != LockPath(root, "/abs/other"), "expected distinct lock paths for distinct targets")
}

func TestSweepStaleLocksRemovesUnheldLocks(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target-file")

	l, err := NewLock(root, target)
	tassert(t, err == nil, "%v", err)
	// not locked by anyone -- eligible for sweep
	_ = l

	removed, err := SweepStaleLocks(root)
	tassert(t, err == nil, "%v", err)
	tassert(t, len(removed) == 1, "expected one stale lock removed, got %d", len(removed))
}

func TestSweepStaleLocksSkipsHeldLocks(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target-file")

	l, err := NewLock(root, target)
	tassert(t, err == nil, "%v", err)
	ok, err := l.TryLock()
	tassert(t, err == nil && ok, "expected to acquire lock")
	defer l.Unlock()

	removed, err := SweepStaleLocks(root)
	tassert(t, err == nil, "%v", err)
	tassert(t, len(removed) == 0, "expected held lock to survive sweep, removed %v", removed)
}
