//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "krdeck"

// Default target to run when none is specified
var Default = Build

// Build compiles the krdeck binary. go-sqlite3 needs cgo.
func Build() error {
	env := map[string]string{"CGO_ENABLED": "1"}
	return sh.RunWith(env, "go", "build", "-o", binary, "./cmd/krdeck")
}

// Test runs the unit tests
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Install builds and installs krdeck into GOPATH/bin
func Install() error {
	mg.Deps(Test)
	return sh.RunV("go", "install", "./cmd/krdeck")
}

// Clean removes the build output
func Clean() {
	fmt.Println("Cleaning...")
	os.Remove(binary)
}
