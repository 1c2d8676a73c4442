// Command ren-assetc imports a glTF source file into a project's asset
// registry and runs the mesh compiler over every dirty mesh it finds.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ren-assetc:", err)
		os.Exit(1)
	}
}
