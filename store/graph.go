package store

import (
	"sort"
)

// DepNode is one line of a target's recorded dependency graph, as
// read back from its MetaDir -- used by redo-log to print what a
// target's last build declared, without re-running anything.
type DepNode struct {
	Target    string
	Always    bool
	Phony     bool
	Ifcreates []string
	Ifchanges []string
	HasMeta   bool
}

// Describe reads back absTarget's MetaDir contents without
// interpreting staleness -- a plain report of what was last recorded.
func Describe(root, absTarget string) (node DepNode, err error) {
	node.Target = absTarget
	md := New(root, absTarget)
	if !md.Exists() {
		return node, nil
	}
	node.HasMeta = true
	node.Always = md.Always()
	node.Phony = md.Phony()

	ifcreates, err := md.Ifcreates()
	if err != nil {
		return node, err
	}
	sort.Strings(ifcreates)
	node.Ifcreates = ifcreates

	ifchanges, err := md.Ifchanges()
	if err != nil {
		return node, err
	}
	for dep := range ifchanges {
		node.Ifchanges = append(node.Ifchanges, dep)
	}
	sort.Strings(node.Ifchanges)

	return node, nil
}
