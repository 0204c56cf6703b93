package main

import "github.com/notargets/pic/cmd"

func main() {
	cmd.Execute()
}
