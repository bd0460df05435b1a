package main

import "licman/cmd"

func main() {
	cmd.Execute()
}
