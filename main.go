package main

import "github.com/drgolem/mediacore/cmd"

func main() {
	cmd.Execute()
}
