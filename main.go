package main

import (
	"git.handmade.network/hmn/pgdsl/src/cli"
	_ "git.handmade.network/hmn/pgdsl/src/migration"
	_ "git.handmade.network/hmn/pgdsl/src/samples"
)

func main() {
	cli.Execute()
}
