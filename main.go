package main

import (
	"playshelf/cmd"
)

func main() {
	cmd.Execute()
}
