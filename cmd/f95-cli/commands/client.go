package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"f95api/internal/library"
	"f95api/lib/platforms/f95zone"
	"f95api/lib/platforms/f95zone/auth"
	"f95api/lib/platforms/f95zone/core"
	"f95api/lib/restyutil"
)

func newClient() *f95zone.Client {
	coreOpts := core.DefaultOptions()
	if cfg.BaseUrl != "" {
		coreOpts.BaseUrl = cfg.BaseUrl
	}
	if cfg.RateLimit > 0 {
		coreOpts.RateLimit = cfg.RateLimit
	}

	client, err := f95zone.New(f95zone.Options{
		Core:              coreOpts,
		SessionPath:       cfg.SessionPath,
		PlatformCachePath: cfg.PlatformCachePath,
		TrustedDevice:     cfg.TrustedDevice,
		MaxPages:          cfg.MaxPages,
		Concurrency:       cfg.Concurrency,
	})
	if err != nil {
		fatal("failed to create client", err)
	}

	if dumpDir != "" {
		output, err := restyutil.NewDirOutput(dumpDir)
		if err != nil {
			fatal("failed to create dump directory", err)
		}
		restyutil.Dump(client.Transport().Http, output)
	}
	return client
}

// promptOTP reads the two factor code from stdin.
func promptOTP(ctx context.Context) (string, error) {
	fmt.Fprint(os.Stderr, "two factor code: ")

	line := make(chan string, 1)
	go func() {
		text, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		line <- strings.TrimSpace(text)
	}()

	select {
	case code := <-line:
		return code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func login(ctx context.Context, client *f95zone.Client) auth.LoginResult {
	if cfg.Username == "" || cfg.Password == "" {
		fatal("failed to login", fmt.Errorf("username and password must be set in %s", configPath))
	}
	result, err := client.Login(ctx, cfg.Username, cfg.Password, promptOTP)
	if err != nil {
		fatal("failed to login", err)
	}
	if !result.Success {
		fatal("failed to login", fmt.Errorf("%s: %s", result.Code, result.Message))
	}
	slog.Debug("logged in", "username", cfg.Username, "code", result.Code.String())
	return result
}

// loggedClient returns a client that reused or created a session.
func loggedClient(ctx context.Context) *f95zone.Client {
	client := newClient()
	login(ctx, client)
	return client
}

func openLibrary() *library.Library {
	err := os.MkdirAll(filepath.Dir(cfg.LibraryPath), 0755)
	if err != nil {
		fatal("failed to create library directory", err)
	}
	lib, err := library.Open(cfg.LibraryPath, nil)
	if err != nil {
		fatal("failed to open library", err)
	}
	return lib
}
