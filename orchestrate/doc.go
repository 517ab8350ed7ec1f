// Package orchestrate runs the build orchestrator: it locates a
// target's .do file, executes it under the contract environment,
// atomically installs whatever output the script produced, and
// records the build outcome in the target's MetaDir. It also backs
// the dependency-declaration helpers (redo-ifchange, redo-ifcreate,
// redo-always), which write records into the calling script's parent
// target's MetaDir.
package orchestrate
