package orchestrate

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"

	"github.com/t7a/redo"
	"github.com/t7a/redo/dofile"
	"github.com/t7a/redo/store"
	"github.com/t7a/redo/uptodate"
)

// Orchestrator drives builds against a single metadata root.
type Orchestrator struct {
	Root string
}

// New returns an Orchestrator rooted at root, the metadata root
// directory (the value redo.DataDir would return).
func New(root string) *Orchestrator {
	return &Orchestrator{Root: root}
}

// Redo builds every target unconditionally, per "redo [targets...]".
func (o *Orchestrator) Redo(targets []string) (err error) {
	return o.run(targets, true)
}

// RedoIfchange builds each target only if the up-to-date resolver
// finds it stale, per "redo-ifchange [targets...]".
func (o *Orchestrator) RedoIfchange(targets []string) (err error) {
	return o.run(targets, false)
}

func (o *Orchestrator) run(targets []string, unconditional bool) (err error) {
	defer Return(&err)

	if len(targets) == 0 {
		targets = []string{"all"}
	}

	abss := make([]string, len(targets))
	for i, t := range targets {
		abss[i], err = redo.Canonicalize(t)
		Ck(err)
	}

	locks := make([]*redo.Lock, len(abss))
	var pending []int
	for i, t := range abss {
		lk, err := redo.NewLock(o.Root, t)
		Ck(err)
		locks[i] = lk
		ok, err := lk.TryLock()
		Ck(err)
		if !ok {
			pending = append(pending, i)
		}
	}
	for _, i := range pending {
		err := locks[i].Lock()
		Ck(err)
	}
	defer func() {
		for _, lk := range locks {
			lk.Unlock()
		}
	}()

	var lastErr error
	for _, t := range abss {
		buildErr := o.buildOne(t, unconditional)
		if buildErr != nil {
			log.Error(buildErr)
			lastErr = buildErr
			if !redo.KeepGoing() {
				return lastErr
			}
		}
	}
	return lastErr
}

func (o *Orchestrator) buildOne(absTarget string, unconditional bool) (err error) {
	defer Return(&err)

	doPath, found := dofile.Resolve(absTarget)
	if !found {
		if !unconditional && redo.Exists(absTarget) {
			log.Debugf("%s: source file, no .do", absTarget)
			return nil
		}
		return &redo.NoDoFileError{Target: absTarget}
	}

	if !unconditional {
		upToDate, err := uptodate.IsUpToDate(o.Root, absTarget)
		Ck(err)
		if upToDate {
			log.Debugf("%s: up to date", absTarget)
			return nil
		}
	}

	return o.build(absTarget, doPath)
}

func (o *Orchestrator) build(absTarget, doPath string) (err error) {
	defer Return(&err)

	md := store.New(o.Root, absTarget)

	cachedStamp, err := md.BuiltTimestamp()
	Ck(err)
	preBuildStamp, err := redo.StampPath(absTarget)
	Ck(err)
	if !cachedStamp.Absent() && !preBuildStamp.Absent() && !cachedStamp.Equal(preBuildStamp) {
		log.Warnf("%s: modified outside the build system, skipping", absTarget)
		return nil
	}

	targetBase := filepath.Base(absTarget)
	targetDir := filepath.Dir(absTarget)
	specificDo := filepath.Join(targetDir, targetBase+".do")

	doDir := filepath.Dir(doPath)
	origWD, err := os.Getwd()
	Ck(err)
	err = os.Chdir(doDir)
	Ck(err)
	defer os.Chdir(origWD)

	err = md.InitMetaDir(doPath)
	Ck(err)

	arg1, err := filepath.Rel(doDir, absTarget)
	Ck(err)
	arg2 := arg2For(doPath, specificDo, arg1)

	tmp3 := absTarget + ".redo1.temp"
	tmpStdoutPath := filepath.Join(doDir, targetBase+".redo2.temp")
	defer os.Remove(tmp3)
	defer os.Remove(tmpStdoutPath)

	session, _, err := redo.EnsureSession()
	Ck(err)

	env := o.childEnv(absTarget, doDir, origWD)

	argv, err := commandArgv(doPath, arg1, arg2, tmp3)
	Ck(err)

	stdoutFh, err := os.Create(tmpStdoutPath)
	Ck(err)

	log.Debugf("building %s via %s (%v)", absTarget, doPath, argv)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = stdoutFh
	cmd.Stderr = os.Stderr
	cmd.Env = env

	runErr := cmd.Run()
	stdoutFh.Close()

	if runErr != nil {
		exitCode := 1
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		markErr := md.MarkDirty(session)
		Ck(markErr)
		return &redo.BuildFailedError{Target: absTarget, ExitCode: exitCode}
	}

	if installErr := install(absTarget, tmp3, tmpStdoutPath, preBuildStamp, md); installErr != nil {
		markErr := md.MarkDirty(session)
		Ck(markErr)
		return installErr
	}

	err = md.MarkClean(session)
	Ck(err)
	if redo.Exists(absTarget) {
		err = md.MarkBuilt()
		Ck(err)
	}
	return nil
}

// arg2For computes $2: equal to $1 for a specific .do file, or $1
// with the default .do's own extension suffix stripped.
func arg2For(doPath, specificDo, arg1 string) string {
	if doPath == specificDo {
		return arg1
	}
	base := filepath.Base(doPath)
	suffix := strings.TrimSuffix(strings.TrimPrefix(base, "default"), ".do")
	if suffix == "" {
		return arg1
	}
	return strings.TrimSuffix(arg1, suffix)
}

func (o *Orchestrator) childEnv(absTarget, doDir, initDir string) []string {
	env := os.Environ()
	set := func(key, val string) {
		prefix := key + "="
		for i, kv := range env {
			if strings.HasPrefix(kv, prefix) {
				env[i] = prefix + val
				return
			}
		}
		env = append(env, prefix+val)
	}

	set(redo.EnvDepth, strconv.Itoa(redo.Depth()+1))
	set(redo.EnvPath, doDir)
	set(redo.EnvTarget, absTarget)
	set(redo.EnvDataDir, o.Root)
	if session := os.Getenv(redo.EnvSession); session != "" {
		set(redo.EnvSession, session)
	}
	if os.Getenv(redo.EnvInitPath) == "" {
		set(redo.EnvInitPath, initDir)
	}

	for i, kv := range env {
		if strings.HasPrefix(kv, "PATH=") && !strings.HasSuffix(kv, ":.") {
			env[i] = kv + ":."
		}
	}
	return env
}
