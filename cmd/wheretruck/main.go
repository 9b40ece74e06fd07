package main

import (
	"github.com/gamakdragons/wheretruck/pkg/app"
	"github.com/gamakdragons/wheretruck/pkg/cli"
)

func main() {
	cli.Execute(cli.NewRootCommand(cli.Options{
		Name:              "wheretruck",
		RunServer:         app.Run,
		CheckDependencies: app.CheckDependencies,
	}))
}
