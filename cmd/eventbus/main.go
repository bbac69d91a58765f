package main

import (
	"os"

	"github.com/opsdesk/eventbus/app"
	_ "go.uber.org/automaxprocs"
)

func main() {
	app.Run(os.Args)
}
