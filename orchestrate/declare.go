package orchestrate

import (
	. "github.com/stevegt/goadapt"

	"github.com/t7a/redo"
	"github.com/t7a/redo/store"
)

// DeclareIfchange is redo-ifchange's implementation when invoked from
// inside a running .do script: build each dep (recursively, in this
// same process) if it is out of date, then record an ifchange record
// for it -- stamped post-build -- in parentTarget's MetaDir.
func (o *Orchestrator) DeclareIfchange(parentTarget string, deps []string) (err error) {
	defer Return(&err)

	err = o.RedoIfchange(deps)
	Ck(err)

	parentMD := store.New(o.Root, parentTarget)
	for _, dep := range deps {
		absDep, err := redo.Canonicalize(dep)
		Ck(err)
		err = parentMD.StoreIfchange(absDep)
		Ck(err)
	}
	return nil
}

// DeclareIfcreate is redo-ifcreate's implementation: fail if any dep
// already exists, otherwise record an ifcreate record for each in
// parentTarget's MetaDir.
func (o *Orchestrator) DeclareIfcreate(parentTarget string, deps []string) (err error) {
	defer Return(&err)

	absDeps := make([]string, len(deps))
	for i, dep := range deps {
		absDeps[i], err = redo.Canonicalize(dep)
		Ck(err)
		if redo.Exists(absDeps[i]) {
			return &redo.AlreadyExistsError{Path: absDeps[i]}
		}
	}

	parentMD := store.New(o.Root, parentTarget)
	for _, absDep := range absDeps {
		err = parentMD.StoreIfcreate(absDep)
		Ck(err)
	}
	return nil
}

// DeclareAlways is redo-always's implementation: record an
// always-record in parentTarget's MetaDir.
func (o *Orchestrator) DeclareAlways(parentTarget string) (err error) {
	defer Return(&err)
	return store.New(o.Root, parentTarget).StoreAlways()
}
