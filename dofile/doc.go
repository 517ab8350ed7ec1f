// Package dofile locates the .do build script for a target: either
// the target-specific <name>.do in the target's own directory, or a
// default<.ext...>.do matching a suffix of the target's extensions,
// searched in the target's directory and then its ancestors.
package dofile
