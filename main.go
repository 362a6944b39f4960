package main

import "github.com/wsecho/wsecho/cmd"

func main() {
	cmd.Execute()
}
