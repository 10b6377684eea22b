// Package main is the CLI command itself.
package main

import (
	"log"
	"os"

	ppcli "go.viam.com/purepursuit/cli"
	_ "go.viam.com/purepursuit/components/base/fake"
)

func main() {
	app := ppcli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
