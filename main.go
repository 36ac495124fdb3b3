// The main package for the rsr-scraper executable.
package main

import (
	"github.com/JakeFAU/rsr-sign-scraper/cmd"
)

func main() {
	cmd.Execute()
}
