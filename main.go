// file: main.go
// version: 2.0.0
// guid: 1c3e5a7b-9d2f-4b6a-8c0e-2f4a6c8e0b3d

package main

import (
	"fmt"
	"os"

	"github.com/DS09AT/Shelvance-sub001/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
