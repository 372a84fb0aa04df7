package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/pterm/pterm"

	"github.com/arlyon/repofs/internal/describe"
	"github.com/arlyon/repofs/internal/dispatcher"
	"github.com/arlyon/repofs/internal/fusebind"
	"github.com/arlyon/repofs/internal/gitcore"
	"github.com/arlyon/repofs/internal/progress"
	"github.com/arlyon/repofs/internal/termcolor"
)

func runMount(args []string, cw *termcolor.Writer) int {
	fs := flag.NewFlagSet("mount", flag.ExitOnError)
	hashTrees := fs.Bool("hash-trees", false, "bucket commits-by-hash into a 256-ary hex tree")
	noRefSymlinks := fs.Bool("no-ref-symlinks", false, "expose branches/tags as inline directories instead of symlinks")
	noCache := fs.Bool("nocache", false, "disable in-memory memoization of repository lookups")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	foreground := fs.Bool("foreground", false, "stay attached to the terminal instead of daemonizing")
	_ = foreground // daemonizing requires a double-fork the Go runtime can't do safely; always foreground.
	fs.Parse(args) //nolint:errcheck // flag.ExitOnError already handles parse failures

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: repofs mount <repo> <mountpoint> [flags]")
		return 1
	}
	repoPath, mountPoint := fs.Arg(0), fs.Arg(1)

	if info, err := os.Stat(mountPoint); err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "%s mount point %q is not a directory\n", cw.Red("error:"), mountPoint)
		return 1
	}
	if abs, err := filepath.Abs(mountPoint); err == nil {
		mountPoint = abs
	}

	spin := progress.New("Loading repository...")
	spin.Start()
	loadStart := time.Now()
	repo, err := gitcore.NewRepository(repoPath)
	loadDur := time.Since(loadStart).Round(time.Millisecond)
	spin.Stop()
	if err != nil {
		slog.Error("failed to load repository", "path", repoPath, "err", err)
		return 1
	}
	slog.Info("repository loaded", "path", repoPath, "duration", loadDur)

	acc := gitcore.NewAccessor(repo)
	acc.NoCache = *noCache
	d := dispatcher.New(acc, dispatcher.Options{
		HashTrees:     *hashTrees,
		NoRefSymlinks: *noRefSymlinks,
		MountPoint:    mountPoint,
		ModeBits:      repoModeBits(repoPath),
	}, nil)

	binding := fusebind.New(d)
	server, err := fusebind.Mount(binding, mountPoint, &fuse.MountOptions{
		SingleThreaded: true,
		Name:           "repofs",
		FsName:         repoPath,
		Debug:          *verbose,
	})
	if err != nil {
		slog.Error("failed to mount", "mountpoint", mountPoint, "err", err)
		return 1
	}

	pterm.Success.Printfln("%s mounted at %s", repoPath, mountPoint)
	slog.Info("mounted", "repo", repoPath, "mountpoint", mountPoint, "hash-trees", *hashTrees, "no-ref-symlinks", *noRefSymlinks)

	if *verbose {
		printVerboseSummary(cw, repo, *hashTrees)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go server.Serve()

	<-ctx.Done()
	slog.Info("unmounting", "mountpoint", mountPoint)
	if err := server.Unmount(); err != nil {
		slog.Error("unmount failed", "err", err)
		return 1
	}
	return 0
}

// repoModeBits mirrors repofs.py's self.mnt_mode: the repository directory's
// own permission bits with the owner-write bit cleared, so every virtual
// entry is stamped with the host repo's own read/execute permissions
// instead of a hardcoded mode. Falls back to dispatcher's default if the
// repository can't be stat'd.
func repoModeBits(repoPath string) uint32 {
	info, err := os.Stat(repoPath)
	if err != nil {
		return 0
	}
	const ownerWrite = 0o200
	return uint32(info.Mode().Perm()) &^ ownerWrite
}

// printVerboseSummary prints the resolved namespace roots and, when present,
// the repository's .git/description rendered down to plain text.
func printVerboseSummary(cw *termcolor.Writer, repo *gitcore.Repository, hashTrees bool) {
	hashLayout := "flat"
	if hashTrees {
		hashLayout = "256-ary hex buckets"
	}
	table := pterm.TableData{
		{"namespace root", "layout"},
		{"commits-by-date", "year/month/day"},
		{"commits-by-hash", hashLayout},
		{"branches", "refs/heads, refs/remotes"},
		{"tags", "refs/tags"},
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(table).Render(); err != nil {
		fmt.Fprintf(cw, "%s\n", cw.Red("failed to render namespace table"))
	}

	descPath := filepath.Join(repo.GitDir(), "description")
	data, err := os.ReadFile(descPath)
	if err != nil {
		return
	}
	if text := describe.RenderPlain(data); text != "" {
		pterm.DefaultSection.Println("description")
		fmt.Fprintln(cw, "  "+text)
	}
}
