//go:build mage

// Package main contains Mage build targets for odis2vcp developer tooling.
package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

const (
	binDir  = "bin"
	binName = "odis2vcp"
	cmdPkg  = "./cmd/odis2vcp"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := run("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests of every package.
func Test() error {
	return run("go", "test", "./...")
}

// Check vets the code, runs the tests and builds the binary.
func Check() error {
	if err := run("go", "vet", "./..."); err != nil {
		return fmt.Errorf("go vet: %w", err)
	}
	mg.SerialDeps(Test, Build)
	return nil
}

// Sample converts the bundled ODIS sample into sample-out/ in both modes.
func Sample() error {
	mg.Deps(Build)
	bin := filepath.Join(binDir, binName)
	input := filepath.Join("internal", "odis", "testdata", "sample.xml")
	for _, mode := range []string{"vcp", "raw"} {
		if err := run(bin, "extract", "-f", mode, "-o", "sample-out", "-d", "sample", input); err != nil {
			return fmt.Errorf("extracting sample as %s: %w", mode, err)
		}
	}
	return nil
}

// Clean removes build and sample output.
func Clean() error {
	for _, dir := range []string{binDir, "sample-out"} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
	}
	return nil
}

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Stats prints project metrics: Go production/test lines and documentation word count.
func Stats() error {
	var prod, tests, words int
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); name == "_examples" || name == ".git" || name == binDir {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".go" && ext != ".md" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		switch {
		case ext == ".md":
			words += len(bytes.Fields(data))
		case strings.HasSuffix(path, "_test.go"):
			tests += countLines(data)
		default:
			prod += countLines(data)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prod)
	fmt.Printf("Lines of code (Go, tests):      %d\n", tests)
	fmt.Printf("Words (documentation):           %d\n", words)
	return nil
}

// countLines counts lines that are not blank.
func countLines(data []byte) int {
	n := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}
