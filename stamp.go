package redo

import (
	"crypto/md5"
	"io"
	"os"

	"github.com/pkg/errors"
	. "github.com/stevegt/goadapt"
)

// Stamp is an opaque byte value summarizing a filesystem object at a
// point in time. Two stamps are equal iff their byte payloads are
// equal; there is no partial-order or "close enough" comparison.
type Stamp []byte

// absentStamp is the distinguished sentinel for a path that does not
// exist. It cannot collide with a content hash or mtime rendering
// because both of those always start with a tag byte other than 0x00.
var absentStamp = Stamp{0x00}

const (
	tagContentHash byte = 0x01
	tagDirMtime    byte = 0x02
)

// Absent reports whether s represents a missing file.
func (s Stamp) Absent() bool {
	return len(s) == 1 && s[0] == 0x00
}

// Equal does byte-for-byte comparison; absent never equals a concrete
// stamp even if both happen to be one byte long.
func (s Stamp) Equal(other Stamp) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// StampPath computes the current Stamp of path: a content hash for a
// regular file, a modification-time rendering for a directory, and
// absentStamp if path does not exist. MD5 is used for file content --
// the store treats the result as an opaque blob, not a security
// primitive, so any deterministic collision-resistant digest would
// satisfy the on-disk contract equally well.
func StampPath(path string) (stamp Stamp, err error) {
	defer Return(&err)

	info, statErr := os.Lstat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return absentStamp, nil
		}
		return nil, statErr
	}

	if info.IsDir() {
		return dirStamp(info), nil
	}

	fh, err := os.Open(path)
	Ck(err)
	defer fh.Close()

	h := md5.New()
	_, err = io.Copy(h, fh)
	if err != nil {
		return nil, errors.Wrapf(err, "stamp %s", path)
	}

	sum := h.Sum(nil)
	out := make(Stamp, 0, len(sum)+1)
	out = append(out, tagContentHash)
	out = append(out, sum...)
	return out, nil
}

func dirStamp(info os.FileInfo) Stamp {
	mtime := info.ModTime().UnixNano()
	out := make(Stamp, 0, 9)
	out = append(out, tagDirMtime)
	for i := 0; i < 8; i++ {
		out = append(out, byte(mtime>>(8*i)))
	}
	return out
}
