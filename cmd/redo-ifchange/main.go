package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/docopt/docopt-go"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"

	"github.com/t7a/redo"
	"github.com/t7a/redo/orchestrate"
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

const usage = `redo-ifchange

Usage:
  redo-ifchange [-x] [-v] [<target>...]

Options:
  -h --help     Show this screen.
  --version     Show version.
  -x            Trace commands as they run (sh -x).
  -v            Print commands before running (sh -v).
`

type Opts struct {
	Target []string
	X      bool `docopt:"-x"`
	V      bool `docopt:"-v"`
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

	root, err := redo.DataDir()
	Ck(err)

	addShellArgs(opts.X, opts.V)

	orch := orchestrate.New(root)

	parent := os.Getenv(redo.EnvTarget)
	if parent == "" {
		// outermost invocation: no running .do to record against.
		err = orch.RedoIfchange(opts.Target)
		if bf, ok := err.(*redo.BuildFailedError); ok {
			return bf.ExitCode, bf.Error()
		}
		Ck(err)
		return
	}

	err = orch.DeclareIfchange(parent, opts.Target)
	Ck(err)
	return
}

// addShellArgs appends -x/-v to REDO_SHELL_ARGS so every .do script
// invoked via "sh -e" during this run picks them up, per the shell
// command contract.
func addShellArgs(x, v bool) {
	args := os.Getenv(redo.EnvShellArgs)
	if x {
		args = strings.TrimSpace(args + " -x")
	}
	if v {
		args = strings.TrimSpace(args + " -v")
	}
	if args != "" {
		os.Setenv(redo.EnvShellArgs, args)
	}
}
