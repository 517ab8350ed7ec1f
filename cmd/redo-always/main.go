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

const usage = `redo-always

Usage:
  redo-always

Options:
  -h --help     Show this screen.
  --version     Show version.
`

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
	_, err := parser.ParseArgs(usage, os.Args[1:], "0.0")
	Ck(err)

	parent := os.Getenv(redo.EnvTarget)
	Assert(parent != "", "redo-always must be called from inside a running .do script")

	root, err := redo.DataDir()
	Ck(err)

	orch := orchestrate.New(root)
	err = orch.DeclareAlways(parent)
	Ck(err)
	return
}
