// Command osmiumd is the Module Runtime CLI: "install" downloads a module
// from a registry into the local Module Index, and "run" opens a workspace,
// loads an already-installed module from the index, and runs it against the
// workspace's seeds. "run" does not install a missing module; it fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rcpklmc/sn0int/internal/entity"
	"github.com/rcpklmc/sn0int/internal/keyringstore"
	"github.com/rcpklmc/sn0int/internal/modindex"
	"github.com/rcpklmc/sn0int/internal/registry/client"
	"github.com/rcpklmc/sn0int/internal/runtime"
	"github.com/rcpklmc/sn0int/pkg/config"
	"github.com/rcpklmc/sn0int/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load("")
	log := logger.NewDefault("osmiumd")

	switch os.Args[1] {
	case "run":
		runCmd(cfg, log, os.Args[2:])
	case "install":
		installCmd(cfg, log, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: osmiumd run <author>/<name>@<version> [flags]")
	fmt.Fprintln(os.Stderr, "       osmiumd install <registry-url> <author>/<name>@<version>")
}

func runCmd(cfg *config.Config, log *logger.Logger, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	workspaceDir := fs.String("workspace", cfg.WorkspaceDir, "workspace directory")
	workers := fs.Int("workers", cfg.Workers, "number of parallel workers")
	timeout := fs.Int("timeout", cfg.RunTimeout, "run timeout in seconds")
	indexDir := fs.String("index", defaultIndexDir(), "local module index directory")
	keyringPath := fs.String("keyring", defaultKeyringPath(), "keyring file path")
	passphrase := fs.String("keyring-passphrase", os.Getenv("OSMIUM_KEYRING_PASSPHRASE"), "keyring passphrase")
	fs.Parse(args)

	if fs.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	ref := fs.Arg(0)
	key, err := parseModuleRef(ref)
	if err != nil {
		log.WithField("error", err).Fatal("invalid module reference")
	}

	idx, err := modindex.Open(*indexDir)
	if err != nil {
		log.WithField("error", err).Fatal("opening module index")
	}
	entry, err := idx.Get(key)
	if err != nil {
		log.WithField("error", err).Fatal("loading module from index (try `osmiumd install` first)")
	}

	ws, err := entity.OpenWorkspace(*workspaceDir, log)
	if err != nil {
		log.WithField("error", err).Fatal("opening workspace")
	}
	defer ws.Close()

	var kr *keyringstore.Store
	if *passphrase != "" {
		kr, err = keyringstore.Open(*keyringPath, *passphrase)
		if err != nil {
			log.WithField("error", err).Fatal("opening keyring")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(*timeout)*time.Second)
	defer cancel()

	mod := &runtime.Module{Ref: ref, Metadata: entry.Metadata, Source: entry.Source}
	runner := runtime.New(ws, mod, runtime.Options{
		Workers:   *workers,
		Keyring:   kr,
		ScriptLog: logger.NewScriptLog(os.Stdout),
	})

	summary, errs := runner.Run(ctx)
	log.WithFields(map[string]interface{}{
		"seeds":   summary.SeedsProcessed,
		"added":   summary.Added,
		"updated": summary.Updated,
		"errors":  summary.Errors,
	}).Info("run complete")
	for _, e := range errs {
		log.WithField("seed", e.SeedValue).WithField("error", e.Err).Warn("seed failed")
	}
	if summary.Errors > 0 {
		os.Exit(1)
	}
}

func installCmd(cfg *config.Config, log *logger.Logger, args []string) {
	fs := flag.NewFlagSet("install", flag.ExitOnError)
	indexDir := fs.String("index", defaultIndexDir(), "local module index directory")
	fs.Parse(args)

	if fs.NArg() < 2 {
		usage()
		os.Exit(2)
	}

	registryURL := fs.Arg(0)
	key, err := parseModuleRef(fs.Arg(1))
	if err != nil {
		log.WithField("error", err).Fatal("invalid module reference")
	}

	c := client.New(registryURL, nil)
	ctx := context.Background()
	dl, err := c.Download(ctx, key.Author, key.Name, key.Version)
	if err != nil {
		log.WithField("error", err).Fatal("downloading module")
	}

	idx, err := modindex.Open(*indexDir)
	if err != nil {
		log.WithField("error", err).Fatal("opening module index")
	}
	if _, err := idx.Put(key, dl.Code); err != nil {
		log.WithField("error", err).Fatal("installing module")
	}
	log.WithField("ref", fs.Arg(1)).Info("module installed")
}

func parseModuleRef(ref string) (modindex.Key, error) {
	authorName, version, ok := strings.Cut(ref, "@")
	if !ok {
		return modindex.Key{}, fmt.Errorf("module reference %q must be author/name@version", ref)
	}
	author, name, ok := strings.Cut(authorName, "/")
	if !ok {
		return modindex.Key{}, fmt.Errorf("module reference %q must be author/name@version", ref)
	}
	return modindex.Key{Author: author, Name: name, Version: version}, nil
}

func defaultIndexDir() string {
	if v := os.Getenv("OSMIUM_INDEX_DIR"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./modules"
	}
	return home + "/.osmium/modules"
}

func defaultKeyringPath() string {
	if v := os.Getenv("OSMIUM_KEYRING_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./keyring.db"
	}
	return home + "/.osmium/keyring.db"
}
