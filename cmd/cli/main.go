package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/nomis52/signup/buildinfo"
	"github.com/nomis52/signup/client"
)

const defaultServer = "http://localhost:8080"

var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, argv []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	serverURL := fs.String("server", defaultServer, "Base URL of the signup server")
	timeout := fs.Duration("timeout", 10*time.Second, "Request timeout")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: cli [options] <command> [command options]\n")
		fmt.Fprintf(stderr, "\nCommands:\n")
		fmt.Fprintf(stderr, "  list                                   List activities and participants\n")
		fmt.Fprintf(stderr, "  signup -activity NAME -email EMAIL     Sign a student up\n")
		fmt.Fprintf(stderr, "  unregister -activity NAME -email EMAIL Remove a student\n")
		fmt.Fprintf(stderr, "  version                                Show version information\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if cmd == "version" {
		fmt.Fprintf(stdout, "signup cli %s\n", buildinfo.Get())
		return nil
	}

	c, err := client.New(*serverURL, client.WithTimeout(*timeout))
	if err != nil {
		return err
	}

	switch cmd {
	case "list":
		return list(ctx, c, stdout)
	case "signup":
		return rosterChange(ctx, cmd, cmdArgs, stdout, stderr, c.Signup)
	case "unregister":
		return rosterChange(ctx, cmd, cmdArgs, stdout, stderr, c.Unregister)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return errUsage
	}
}

func list(ctx context.Context, c *client.Client, stdout io.Writer) error {
	all, err := c.Activities(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	slices.Sort(names)

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTIVITY\tSCHEDULE\tENROLLED\tPARTICIPANTS")
	for _, name := range names {
		a := all[name]
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n",
			name, a.Schedule, len(a.Participants), a.MaxParticipants, strings.Join(a.Participants, ", "))
	}
	return tw.Flush()
}

type rosterFunc func(ctx context.Context, activity, email string) (string, error)

func rosterChange(ctx context.Context, cmd string, argv []string, stdout, stderr io.Writer, fn rosterFunc) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	activity := fs.String("activity", "", "Activity name, e.g. \"Chess Club\"")
	email := fs.String("email", "", "Student email")
	if err := fs.Parse(argv); err != nil {
		return errUsage
	}
	if *activity == "" || *email == "" {
		fmt.Fprintf(stderr, "%s requires -activity and -email\n", cmd)
		fs.PrintDefaults()
		return errUsage
	}

	msg, err := fn(ctx, *activity, *email)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, msg)
	return nil
}
