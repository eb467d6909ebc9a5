package main

import (
	"testing"
)

// TestMain_Imports verifies that the main package compiles and its
// imports resolve. main() itself delegates to cmd.Execute, which calls
// os.Exit and is exercised through the cmd package tests instead.
func TestMain_Imports(t *testing.T) {
}
