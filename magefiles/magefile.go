//go:build mage

// Package main contains Mage build targets for knowledge-sync developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/sh"
)

const (
	binDir    = "bin"
	binName   = "knowledge-sync"
	cmdPkg    = "./cmd/knowledge-sync"
	imageName = "knowledge-sync"
)

// projectDirs lists the local working directories for development runs.
var projectDirs = []string{
	"data",
	".secrets",
}

// Init creates the local directory structure for development runs.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

// Build compiles the CLI binary into bin/ with the version stamped in.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build",
		"-ldflags", "-X main.version="+version(),
		"-o", out, cmdPkg); err != nil {
		return err
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the full test suite with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Docker builds the container image, tagged with the version and latest.
func Docker() error {
	v := version()
	if err := sh.RunV("docker", "build",
		"--build-arg", "VERSION="+v,
		"-t", imageName+":"+v,
		"-t", imageName+":latest",
		"."); err != nil {
		return err
	}
	fmt.Printf("Built image %s:%s\n", imageName, v)
	return nil
}

// version returns the build version stamp: the current git describe output,
// or "dev" outside a git checkout.
func version() string {
	v, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || v == "" {
		return "dev"
	}
	return v
}
