// Package store implements the metadata store: a per-target MetaDir
// under a root directory, holding flat record files that describe a
// target's dependencies, its cached .do path, and its build status.
//
// A MetaDir's path is derived from the hash of the target's absolute
// path (redo.HashTargetID), split into a two-character subdirectory
// to keep the root from becoming one flat directory of thousands of
// entries. Every record inside a MetaDir is a small file whose name
// alone identifies its kind -- an ifchange dependency, an ifcreate
// dependency, the always marker, the phony marker, the cached .do
// path, the built timestamp, or a session's clean/dirty mark.
package store
