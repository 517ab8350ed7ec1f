package orchestrate

import (
	"io/ioutil"
	"os"

	"github.com/google/renameio"
	. "github.com/stevegt/goadapt"

	"github.com/t7a/redo"
	"github.com/t7a/redo/store"
)

// install classifies the two possible output channels a .do script
// can use and atomically installs the result as absTarget's new
// content, per the output-installation table: $3 (tmp3) takes
// precedence over stdout (tmpStdout); producing neither makes the
// target phony.
func install(absTarget, tmp3, tmpStdoutPath string, preBuildStamp redo.Stamp, md *store.MetaDir) (err error) {
	defer Return(&err)

	tmp3Exists := redo.Exists(tmp3)
	info, statErr := os.Stat(tmpStdoutPath)
	stdoutNonempty := statErr == nil && info.Size() > 0

	checkNotModified := func() error {
		current, err := redo.StampPath(absTarget)
		Ck(err)
		if !preBuildStamp.Equal(current) {
			return &redo.ModifiedDirectlyError{Target: absTarget}
		}
		return nil
	}

	switch {
	case tmp3Exists:
		if err := checkNotModified(); err != nil {
			return err
		}
		if err := installRename(tmp3, absTarget); err != nil {
			return err
		}
		if stdoutNonempty {
			return &redo.StdoutAndTmp3Error{Target: absTarget}
		}
		return nil

	case stdoutNonempty:
		if err := checkNotModified(); err != nil {
			return err
		}
		return installRename(tmpStdoutPath, absTarget)

	default:
		if err := checkNotModified(); err != nil {
			return err
		}
		if redo.Exists(absTarget) {
			if err := os.RemoveAll(absTarget); err != nil {
				return err
			}
		}
		return md.StorePhony()
	}
}

// installRename moves src to dst, tolerating either a file or a
// directory as the produced artifact. Files go through renameio's
// write-then-rename so a reader never observes a half-written target;
// renameio has no directory support, so directories fall back to a
// plain (still same-filesystem-atomic) os.Rename.
func installRename(src, dst string) (err error) {
	defer Return(&err)

	info, err := os.Lstat(src)
	Ck(err)

	if info.IsDir() {
		return os.Rename(src, dst)
	}

	data, err := ioutil.ReadFile(src)
	Ck(err)
	if err := renameio.WriteFile(dst, data, info.Mode()); err != nil {
		return os.Rename(src, dst)
	}
	return os.Remove(src)
}
