// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"madlibs-stories/pkg/registry"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	validatePath := validateCmd.String("path", "configs/stories.yaml", "Path to registry file")
	strict := validateCmd.Bool("strict", false, "Fail on warnings too")

	bumpCmd := flag.NewFlagSet("bump", flag.ExitOnError)
	bumpPath := bumpCmd.String("path", "configs/stories.yaml", "Path to registry file")
	version := bumpCmd.String("version", "", "New version (default: current date)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		_ = validateCmd.Parse(os.Args[2:])
		if err := validate(*validatePath, *strict); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Registry validation passed.")

	case "bump":
		_ = bumpCmd.Parse(os.Args[2:])
		v, err := bump(*bumpPath, *version)
		if err != nil {
			fmt.Printf("Error updating registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry version set to %s\n", v)

	default:
		help()
	}
}

func validate(path string, strict bool) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return err
	}

	errs, warnings := 0, 0
	for _, issue := range reg.Lint() {
		fmt.Println(issue)
		if issue.Severity == registry.SeverityError {
			errs++
		} else {
			warnings++
		}
	}
	if errs > 0 || (strict && warnings > 0) {
		return fmt.Errorf("%d errors, %d warnings", errs, warnings)
	}
	return nil
}

// bump rewrites the registry with a new version string. The file is
// re-validated on load, so an invalid registry is never rewritten.
func bump(path, version string) (string, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return "", err
	}
	if version == "" {
		version = time.Now().UTC().Format("2006-01-02")
	}

	f := reg.Export()
	f.Version = version
	if err := registry.WriteFile(path, f); err != nil {
		return "", err
	}
	return version, nil
}

func help() {
	fmt.Println("Usage: registry-updater <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  validate  Check templates and prompts (-path, -strict)")
	fmt.Println("  bump      Rewrite the registry with a new version (-path, -version)")
}
