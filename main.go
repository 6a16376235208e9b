package main

import "github.com/ytsubs/ytsubs/cmd"

func main() {
	cmd.Execute()
}
