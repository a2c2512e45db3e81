package main

import "pythoc/cmd"

func main() {
	cmd.Execute()
}
