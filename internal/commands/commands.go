// Package commands implements the zincvm CLI's project-scaffolding
// subcommands (init/clean), adapted from the teacher's script-project
// scaffolding to circuit-bytecode projects: no front-end exists in this
// repo to turn source into a `.zkc` file (see cmd/zincvm), so init
// only lays down a project directory and a README pointing at that
// boundary, instead of a runnable source stub.
package commands

import (
	"fmt"
	"os"
	"path/filepath"
)

func InitCommand(args []string) error {
	projectName := "circuit-project"
	if len(args) > 0 {
		projectName = args[0]
	}

	if err := os.MkdirAll(projectName, 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	readme := filepath.Join(projectName, "README.md")
	content := fmt.Sprintf(`# %s

Compile your circuit with an external front-end into a bytecode file,
then run it:

    zincvm run %s.zkc
    zincvm disasm %s.zkc
`, projectName, projectName, projectName)
	if err := os.WriteFile(readme, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to create README.md: %w", err)
	}

	fmt.Printf("initialized new circuit project: %s\n", projectName)
	return nil
}

func CleanCommand(args []string) error {
	fmt.Println("cleaning build artifacts...")

	artifacts := []string{"*.zkc", "build", "dist"}
	for _, pattern := range artifacts {
		matches, _ := filepath.Glob(pattern)
		for _, match := range matches {
			os.RemoveAll(match)
			fmt.Printf("removed: %s\n", match)
		}
	}

	fmt.Println("clean completed")
	return nil
}
