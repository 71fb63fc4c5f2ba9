package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gogpu/compositor/internal/config"
	"github.com/gogpu/compositor/internal/provision"
)

func runProvision(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("provision", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "TOML configuration file")
		bundle     = fs.String("bundle", "", "asset bundle directory to validate")
		verbose    = fs.Bool("v", false, "verbose logging")
	)
	_ = fs.Parse(args)
	logger := setVerbose(*verbose)

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	if *bundle != "" {
		if err := provision.ValidateBundle(*bundle); err != nil {
			return err
		}
	}

	pcfg, err := provisionConfig(cfg.Provision)
	if err != nil {
		return err
	}
	pcfg.Logger = logger

	if t := cfg.Provision.Timeout.Duration; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	res, err := provision.Run(ctx, pcfg)
	if err != nil {
		return fmt.Errorf("provision engine: %w", err)
	}
	for _, name := range res.Skipped {
		log.Printf("skipped unsafe archive entry %q", name)
	}
	log.Printf("engine %s (%s) extracted to %s: %d files", res.Version, pcfg.Platform, pcfg.OutputDir, res.Files)
	return nil
}

// provisionConfig resolves the [provision] table. Relative paths are taken
// from the directory of the running executable and an empty platform
// selects the host platform.
func provisionConfig(pc config.ProvisionConfig) (*provision.Config, error) {
	exeDir := "."
	if exe, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exe)
	}
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(exeDir, p)
	}

	platform, err := provision.HostPlatform(runtime.GOOS, runtime.GOARCH)
	if pc.Platform != "" {
		platform, err = provision.ParsePlatform(pc.Platform)
	}
	if err != nil {
		return nil, err
	}
	return &provision.Config{
		BasePath:   resolve(pc.BasePath),
		MarkerPath: pc.MarkerPath,
		BaseURL:    pc.BaseURL,
		Platform:   platform,
		OutputDir:  resolve(pc.OutputDir),
		SHA256:     pc.SHA256,
	}, nil
}
