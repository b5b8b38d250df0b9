package main

import (
	"fmt"
	"os"
)

func main() {
	if err := execute(newCLI()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
