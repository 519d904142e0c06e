//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

func Build() error {
	mg.Deps(BuildDelta)
	mg.Deps(BuildSenpop)
	mg.Deps(BuildTdcCalib)
	fmt.Println("Compilation finished")
	return nil
}

func BuildDelta() error {
	fmt.Println("Building delta executable...")
	return buildBinary("delta")
}

func BuildSenpop() error {
	fmt.Println("Building senpop executable...")
	return buildBinary("senpop")
}

func BuildTdcCalib() error {
	fmt.Println("Building tdccalib executable...")
	return buildBinary("tdccalib")
}

func buildBinary(name string) error {
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	cmd := exec.Command("go", "build", "-o", "./bin/"+name, "./"+name)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("CGO_ENABLED=1"),
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
