package orchestrate

import (
	"bufio"
	"os"
	"strings"

	"github.com/google/shlex"
	. "github.com/stevegt/goadapt"

	"github.com/t7a/redo"
)

// commandArgv computes the argv used to invoke doPath, per the shell
// command contract: a shebang line's interpreter if present, tokenized
// the way a shell would; otherwise "sh -e" plus any REDO_SHELL_ARGS.
func commandArgv(doPath, arg1, arg2, tmp3 string) (argv []string, err error) {
	defer Return(&err)

	shebang, err := readShebang(doPath)
	Ck(err)

	if shebang != "" {
		parts, err := shlex.Split(shebang)
		Ck(err)
		Assert(len(parts) > 0, "empty shebang line in %s", doPath)
		argv = append(parts, doPath, arg1, arg2, tmp3)
		return argv, nil
	}

	extra, err := shlex.Split(os.Getenv(redo.EnvShellArgs))
	Ck(err)
	argv = append([]string{"sh", "-e"}, extra...)
	argv = append(argv, doPath, arg1, arg2, tmp3)
	return argv, nil
}

// readShebang returns the interpreter command from doPath's first
// line if it begins with "#!", otherwise "".
func readShebang(doPath string) (shebang string, err error) {
	defer Return(&err)

	fh, err := os.Open(doPath)
	Ck(err)
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	if !scanner.Scan() {
		return "", nil
	}
	line := scanner.Text()
	if !strings.HasPrefix(line, "#!") {
		return "", nil
	}
	return strings.TrimSpace(strings.TrimPrefix(line, "#!")), nil
}
