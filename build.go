//go:build ignore

// build.go - eduaudit build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, eduaudit, web, test, clean, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const versionPkg = "eduaudit/pkg/contracts"

var (
	distDir = "dist"

	// Executables by cmd directory
	executables = map[string]string{
		"eduaudit": "eduaudit",
		"web":      "eduaudit-web",
	}

	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBlue  = "\033[34m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	start := time.Now()
	switch *target {
	case "all":
		for name := range executables {
			buildExecutable(name, *verbose, false)
		}
	case "eduaudit", "web":
		buildExecutable(*target, *verbose, false)
	case "release":
		for name := range executables {
			buildExecutable(name, *verbose, true)
		}
	case "test":
		runTests(*verbose)
	case "clean":
		printInfo("Removing " + distDir)
		if err := os.RemoveAll(distDir); err != nil {
			printError(err.Error())
			os.Exit(1)
		}
	default:
		showHelp()
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(start).Round(time.Millisecond)))
}

func buildExecutable(name string, verbose, release bool) {
	out := executables[name]
	if runtime.GOOS == "windows" {
		out += ".exe"
	}
	printInfo(fmt.Sprintf("Building %s...", name))

	ldflags := fmt.Sprintf("-X %s.BuildTime=%s -X %s.GitCommit=%s",
		versionPkg, time.Now().Format(time.RFC3339), versionPkg, gitCommit())
	if release {
		ldflags = "-s -w " + ldflags
	}
	args := []string{"build", "-ldflags", ldflags, "-o", filepath.Join(distDir, out), "./cmd/" + name}
	if verbose {
		args = append([]string{"build", "-v"}, args[1:]...)
		fmt.Printf("go %s\n", strings.Join(args, " "))
	}

	if err := run(verbose, "go", args...); err != nil {
		printError(fmt.Sprintf("Failed to build %s: %v", name, err))
		os.Exit(1)
	}
	if info, err := os.Stat(filepath.Join(distDir, out)); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", out, float64(info.Size())/1024/1024))
	}
}

func runTests(verbose bool) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	if err := run(true, "go", append(args, "./...")...); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
}

func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func run(verbose bool, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if verbose {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func printInfo(msg string)    { fmt.Println(colorBlue + "==> " + colorReset + msg) }
func printSuccess(msg string) { fmt.Println(colorGreen + "OK  " + colorReset + msg) }
func printError(msg string)   { fmt.Println(colorRed + "ERR " + colorReset + msg) }

func showHelp() {
	fmt.Println("Usage: go run build.go -target=TARGET")
	fmt.Println("  all        Build every executable")
	fmt.Println("  eduaudit   Build the command line tool")
	fmt.Println("  web        Build the server with the status page")
	fmt.Println("  release    Build stripped executables")
	fmt.Println("  test       Run the Go tests")
	fmt.Println("  clean      Remove build output")
}
