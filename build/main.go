// Command build holds the project's build tasks.
//
//	go run ./build            # vet, test, build
//	go run ./build test -v
package main

import (
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/goyek/goyek/v2"
)

const buildinfoPkg = "github.com/nomis52/signup/buildinfo"

var binaries = []string{"./cmd/server", "./cmd/cli"}

func goCmd(a *goyek.A, args ...string) {
	a.Logf("go %s", strings.Join(args, " "))
	cmd := exec.CommandContext(a.Context(), "go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		a.Error(err)
	}
}

var vet = goyek.Define(goyek.Task{
	Name:  "vet",
	Usage: "Run go vet on all packages",
	Action: func(a *goyek.A) {
		goCmd(a, "vet", "./...")
	},
})

var test = goyek.Define(goyek.Task{
	Name:  "test",
	Usage: "Run all tests with the race detector",
	Action: func(a *goyek.A) {
		goCmd(a, "test", "-race", "-count=1", "./...")
	},
})

var build = goyek.Define(goyek.Task{
	Name:  "build",
	Usage: "Build the server and cli binaries into bin/",
	Action: func(a *goyek.A) {
		ldflags := strings.Join([]string{
			"-X " + buildinfoPkg + ".version=" + gitOutput("describe", "--tags", "--always", "--dirty"),
			"-X " + buildinfoPkg + ".gitCommit=" + gitOutput("rev-parse", "HEAD"),
			"-X " + buildinfoPkg + ".buildTime=" + time.Now().UTC().Format(time.RFC3339),
		}, " ")
		for _, pkg := range binaries {
			name := "signup-" + pkg[strings.LastIndex(pkg, "/")+1:]
			goCmd(a, "build", "-ldflags", ldflags, "-o", "bin/"+name, pkg)
		}
	},
})

var all = goyek.Define(goyek.Task{
	Name:  "all",
	Usage: "Vet, test and build",
	Deps:  goyek.Deps{vet, test, build},
})

// gitOutput returns the trimmed output of a git command, or "unknown".
func gitOutput(args ...string) string {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func main() {
	goyek.SetDefault(all)
	goyek.Main(os.Args[1:])
}
