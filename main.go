package main

import "github.com/josephlewis42/dragonsh/cmd"

func main() {
	cmd.Execute()
}
