package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"

	"github.com/t7a/redo"
	"github.com/t7a/redo/store"
)

func init() {
	logrus := log.StandardLogger()
	logrus.SetReportCaller(true)
	formatter := &log.TextFormatter{
		CallerPrettyfier: callerPrettyfier(),
	}
	formatter.TimestampFormat = "15:04:05.999999999"
	logrus.SetFormatter(formatter)
	if lvl, err := log.ParseLevel(os.Getenv(redo.EnvLogLevel)); err == nil {
		logrus.SetLevel(lvl)
	}
}

func callerPrettyfier() func(*runtime.Frame) (function string, file string) {
	return func(f *runtime.Frame) (function string, file string) {
		wd, _ := os.Getwd()
		return "", fmt.Sprintf("%s:%d", strings.TrimPrefix(f.File, wd), f.Line)
	}
}

const usage = `redo-log

Usage:
  redo-log [<target>...] [--watch]

Options:
  --watch       Re-print the graph whenever a target's MetaDir changes.
  -h --help     Show this screen.
  --version     Show version.
`

type Opts struct {
	Target []string
	Watch  bool
}

func main() {
	rc, msg := Run()
	if len(msg) > 0 {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(rc)
}

func Run() (rc int, msg string) {
	defer Halt(&rc, &msg)

	parser := &docopt.Parser{OptionsFirst: false}
	o, _ := parser.ParseArgs(usage, os.Args[1:], "0.0")
	var opts Opts
	err := o.Bind(&opts)
	Ck(err)

	targets := opts.Target
	if len(targets) == 0 {
		targets = []string{"all"}
	}

	root, err := redo.DataDir()
	Ck(err)

	abss := make([]string, len(targets))
	for i, t := range targets {
		abss[i], err = redo.Canonicalize(t)
		Ck(err)
	}

	printGraph(root, abss)

	if opts.Watch {
		err = watch(root, abss)
		Ck(err)
	}

	return
}

func printGraph(root string, targets []string) {
	for _, t := range targets {
		printNode(root, t, map[string]bool{}, 0)
	}
}

func printNode(root, target string, visited map[string]bool, depth int) {
	indent := strings.Repeat("  ", depth)
	if visited[target] {
		fmt.Printf("%s%s (cycle)\n", indent, target)
		return
	}
	visited[target] = true

	node, err := store.Describe(root, target)
	if err != nil {
		fmt.Printf("%s%s (error: %v)\n", indent, target, err)
		return
	}
	if !node.HasMeta {
		fmt.Printf("%s%s (source)\n", indent, target)
		return
	}

	tags := []string{}
	if node.Always {
		tags = append(tags, "always")
	}
	if node.Phony {
		tags = append(tags, "phony")
	}
	suffix := ""
	if len(tags) > 0 {
		suffix = " [" + strings.Join(tags, ",") + "]"
	}
	fmt.Printf("%s%s%s\n", indent, target, suffix)

	for _, dep := range node.Ifcreates {
		fmt.Printf("%s  %s (ifcreate, watched)\n", indent, dep)
	}
	for _, dep := range node.Ifchanges {
		printNode(root, dep, visited, depth+1)
	}
}

func watch(root string, targets []string) (err error) {
	defer Return(&err)

	w, err := fsnotify.NewWatcher()
	Ck(err)
	defer w.Close()

	metaDirs := map[string]bool{}
	for _, t := range targets {
		collectMetaDirs(root, t, map[string]bool{}, metaDirs)
	}
	for dir := range metaDirs {
		if err := w.Add(dir); err != nil {
			log.Warnf("watch %s: %v", dir, err)
		}
	}

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			log.Debugf("fsnotify: %s", ev)
			printGraph(root, targets)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func collectMetaDirs(root, target string, visited map[string]bool, out map[string]bool) {
	if visited[target] {
		return
	}
	visited[target] = true
	node, err := store.Describe(root, target)
	if err != nil || !node.HasMeta {
		return
	}
	out[store.New(root, target).Path] = true
	for _, dep := range node.Ifchanges {
		collectMetaDirs(root, dep, visited, out)
	}
}
