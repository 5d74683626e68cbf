// Command geotable loads a country range file and queries or inspects the
// resulting range table without running the HTTP service.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
