package main

import "beetest/cmd"

func main() {
	cmd.Execute()
}
