// Command segheap-trace replays segheap-trace script files against a
// fresh heap.Heap, the way an mdriver trace is replayed against an
// allocator under test, and reports an invariant Check failure as one
// first-class outcome alongside parse and execution errors.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/segheap/segheap/heap"
	"github.com/segheap/segheap/internal/cliutil"
	"github.com/segheap/segheap/memlib"
	"github.com/segheap/segheap/trace"
)

// maxHeapBytes bounds every trace replay's arena. Trace files exercising
// this driver are expected to fit comfortably within it; a trace that
// needs more fails with a provider-exhausted error rather than silently
// growing without limit.
const maxHeapBytes = 64 << 20

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	switch sub {
	case "help", "-h", "--help":
		usage()

	case "version", "-v", "--version":
		jsonOutput := false

		for _, a := range args {
			if a == "--json" || a == "-j" {
				jsonOutput = true

				break
			}
		}

		cliutil.PrintVersion("segheap-trace", jsonOutput)

	case "run":
		runCommand(args, false)

	case "check":
		runCommand(args, true)

	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: segheap-trace <run|check> [--watch] <trace-file>...")
	fmt.Println("       segheap-trace version [--json]")
}

func runCommand(args []string, failOnViolation bool) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	watch := fs.Bool("watch", false, "re-run every trace file whenever it changes on disk")

	if err := fs.Parse(args); err != nil {
		cliutil.ExitWithError("%v", err)
	}

	files := fs.Args()
	if len(files) == 0 {
		cliutil.ExitWithError("at least one trace file is required")
	}

	if *watch {
		watchAndRun(files, failOnViolation)

		return
	}

	if err := runOnce(context.Background(), files, failOnViolation); err != nil {
		cliutil.ExitWithError("%v", err)
	}
}

// runOnce replays every file concurrently, one fresh heap per file. It
// waits for every file to finish and returns the first error reported.
func runOnce(ctx context.Context, files []string, failOnViolation bool) error {
	g, _ := errgroup.WithContext(ctx)

	for _, path := range files {
		path := path

		g.Go(func() error {
			return replayFile(path, failOnViolation)
		})
	}

	return g.Wait()
}

func replayFile(path string, failOnViolation bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer f.Close()

	parsed, err := trace.Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	arena, err := memlib.NewArena(maxHeapBytes)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	h, err := heap.New(arena)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	stats, err := trace.Run(h, parsed)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if failOnViolation {
		stats.Violations = append(stats.Violations, h.Check(true)...)
	}

	fmt.Printf("%s: %d allocate, %d free, %d reallocate, %d write, %d check, %d violation(s)\n",
		path, stats.Allocations, stats.Frees, stats.Reallocates, stats.Writes, stats.Checks, len(stats.Violations))

	for _, v := range stats.Violations {
		fmt.Println("  " + v.String())
	}

	if failOnViolation && len(stats.Violations) > 0 {
		return fmt.Errorf("%s: %d consistency violation(s)", path, len(stats.Violations))
	}

	return nil
}

// watchAndRun runs every file once, then re-runs a file each time
// fsnotify reports it was written, until the process is interrupted.
func watchAndRun(files []string, failOnViolation bool) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		cliutil.ExitWithError("starting watcher: %v", err)
	}
	defer w.Close()

	dirs := make(map[string]bool)

	for _, path := range files {
		dirs[filepath.Dir(path)] = true
	}

	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			cliutil.ExitWithError("watching %s: %v", dir, err)
		}
	}

	for _, path := range files {
		if err := replayFile(path, failOnViolation); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("watching for changes, press ctrl-C to stop")

	watched := make(map[string]bool)
	for _, path := range files {
		abs, err := filepath.Abs(path)
		if err == nil {
			watched[abs] = true
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			abs, err := filepath.Abs(ev.Name)
			if err != nil || !watched[abs] {
				continue
			}

			if err := replayFile(ev.Name, failOnViolation); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}

			fmt.Fprintln(os.Stderr, "watch error:", err)
		}
	}
}
