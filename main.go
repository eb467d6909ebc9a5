package main

import (
	"github.com/meteorwatch/chirpdetect/cmd"
	"github.com/meteorwatch/chirpdetect/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
