package main

import "github.com/jfmyers9/requestline/cmd"

func main() {
	cmd.Execute()
}
