// The main package for the search-console-gateway executable.
package main

import (
	"github.com/JakeFAU/search-console-gateway/cmd"
)

func main() {
	cmd.Execute()
}
