// Package uptodate implements the recursive up-to-date resolver: the
// decision procedure that walks a target's MetaDir (and, through its
// ifchange dependencies, the MetaDirs of everything it depends on) to
// decide whether a rebuild is required.
package uptodate
