package main

import "github.com/umbranet/umbra/cmd/umbra/cmd"

func main() {
	cmd.Execute()
}
