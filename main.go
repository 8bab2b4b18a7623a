package main

import "hourgrid/cmd"

func main() {
	cmd.Execute()
}
