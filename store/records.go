package store

import (
	"strings"

	"github.com/t7a/redo"
)

// Record filename shapes. Each is a flat file directly inside a
// target's MetaDir; the filename alone identifies what it records,
// so a MetaDir can be enumerated with a single directory read.
const (
	ifchangePrefix, ifchangeSuffix = ".@", "@."
	ifcreatePrefix, ifcreateSuffix = ".%", "%."
	alwaysFilename                = ".~redo-always~."
	phonyFilename                 = ".phony-target."
	cachedDoFilename              = ".do.do."
	builtFilename                 = ".blt.blt."
	cleanPrefix, cleanSuffix       = ".cln.", ".cln."
	dirtyPrefix, dirtySuffix       = ".drt.", ".drt."
)

func ifchangeRecordName(depAbs string) string {
	return ifchangePrefix + redo.Escape(depAbs) + ifchangeSuffix
}

func ifcreateRecordName(depAbs string) string {
	return ifcreatePrefix + redo.Escape(depAbs) + ifcreateSuffix
}

func cleanRecordName(session string) string {
	return cleanPrefix + session + cleanSuffix
}

func dirtyRecordName(session string) string {
	return dirtyPrefix + session + dirtySuffix
}

// isIfchangeRecord reports whether name is an ifchange record, and
// if so returns the dependency's unescaped absolute path.
func isIfchangeRecord(name string) (depAbs string, ok bool) {
	if !strings.HasPrefix(name, ifchangePrefix) || !strings.HasSuffix(name, ifchangeSuffix) {
		return "", false
	}
	escaped := name[len(ifchangePrefix) : len(name)-len(ifchangeSuffix)]
	return redo.Unescape(escaped), true
}

// isIfcreateRecord reports whether name is an ifcreate record, and
// if so returns the dependency's unescaped absolute path.
func isIfcreateRecord(name string) (depAbs string, ok bool) {
	if !strings.HasPrefix(name, ifcreatePrefix) || !strings.HasSuffix(name, ifcreateSuffix) {
		return "", false
	}
	escaped := name[len(ifcreatePrefix) : len(name)-len(ifcreateSuffix)]
	return redo.Unescape(escaped), true
}

// isCleanRecord reports whether name is a clean mark, and if so
// returns the session id it was written for.
func isCleanRecord(name string) (session string, ok bool) {
	if !strings.HasPrefix(name, cleanPrefix) || !strings.HasSuffix(name, cleanSuffix) {
		return "", false
	}
	return name[len(cleanPrefix) : len(name)-len(cleanSuffix)], true
}

// isDirtyRecord reports whether name is a dirty mark, and if so
// returns the session id it was written for.
func isDirtyRecord(name string) (session string, ok bool) {
	if !strings.HasPrefix(name, dirtyPrefix) || !strings.HasSuffix(name, dirtySuffix) {
		return "", false
	}
	return name[len(dirtyPrefix) : len(name)-len(dirtySuffix)], true
}
