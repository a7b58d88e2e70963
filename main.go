package main

import "seedgraph/cmd"

func main() {
	cmd.Execute()
}
