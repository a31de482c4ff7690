package main

import "github.com/lumeo-studio/site-auth/cmd"

func main() {
	cmd.Execute()
}
