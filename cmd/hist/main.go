package main

import "github.com/aweris/hist/cmd/hist/cmd"

func main() {
	cmd.Execute()
}
