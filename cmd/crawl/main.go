// Command crawl runs one crawl job to completion against a start URL or
// a runner config file.
package main

import (
	"os"

	"github.com/rohmanhakim/newscrawl/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
