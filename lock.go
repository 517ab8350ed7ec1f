package redo

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"syscall"

	. "github.com/stevegt/goadapt"
)

// Lock is an advisory exclusive file lock on a target's LockFile. It
// serializes one target's build (resolver + build + metadata
// finalization + artifact install) across processes via flock(2);
// within a single process it is not reentrant.
type Lock struct {
	path string
	fh   *os.File
}

// LockPath returns the LockFile path for a target, given its already
// canonicalized absolute path and the metadata root.
func LockPath(root, absTarget string) string {
	id := HashTargetID(absTarget)
	return filepath.Join(root, fmt.Sprintf(".lck.%s.lck.", id))
}

// NewLock opens (creating if necessary) the LockFile for absTarget,
// without acquiring it.
func NewLock(root, absTarget string) (lock *Lock, err error) {
	defer Return(&err)

	err = Mkdir(root)
	Ck(err)

	path := LockPath(root, absTarget)
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	Ck(err)

	return &Lock{path: path, fh: fh}, nil
}

// TryLock attempts a non-blocking exclusive acquisition. ok is false,
// with a nil error, if some other holder currently has the lock --
// callers use this to make progress on uncontended targets before
// falling back to a blocking Lock on the ones that are busy.
func (l *Lock) TryLock() (ok bool, err error) {
	err = syscall.Flock(int(l.fh.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if err == syscall.EWOULDBLOCK {
		return false, nil
	}
	return false, err
}

// Lock blocks until the exclusive lock is acquired.
func (l *Lock) Lock() error {
	return syscall.Flock(int(l.fh.Fd()), syscall.LOCK_EX)
}

// Unlock releases the lock and closes the underlying file handle. It
// does not remove the LockFile -- the name is fixed and reused by the
// next build of the same target.
func (l *Lock) Unlock() (err error) {
	defer Return(&err)
	err = syscall.Flock(int(l.fh.Fd()), syscall.LOCK_UN)
	Ck(err)
	return l.fh.Close()
}

// SweepStaleLocks removes every LockFile under root that nothing
// currently holds. It is invoked only by the explicit redo-locks
// command, never during a normal build -- holding a lock only for the
// instant of the check would itself be racy against a build that
// starts immediately after, so this is a best-effort maintenance
// operation, not a correctness mechanism.
func SweepStaleLocks(root string) (removed []string, err error) {
	defer Return(&err)

	entries, err := ioutil.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	Ck(err)

	for _, ent := range entries {
		name := ent.Name()
		if !isLockFilename(name) {
			continue
		}
		path := filepath.Join(root, name)
		fh, err := os.OpenFile(path, os.O_RDWR, 0644)
		if err != nil {
			continue
		}
		ok, err := tryFlock(fh)
		if err == nil && ok {
			syscall.Flock(int(fh.Fd()), syscall.LOCK_UN)
			fh.Close()
			if rmErr := os.Remove(path); rmErr == nil {
				removed = append(removed, path)
			}
			continue
		}
		fh.Close()
	}
	return removed, nil
}

func tryFlock(fh *os.File) (bool, error) {
	err := syscall.Flock(int(fh.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if err == syscall.EWOULDBLOCK {
		return false, nil
	}
	return false, err
}

func isLockFilename(name string) bool {
	const prefix, suffix = ".lck.", ".lck."
	if len(name) < len(prefix)+len(suffix) {
		return false
	}
	return name[:len(prefix)] == prefix && name[len(name)-len(suffix):] == suffix
}
