package main

import "github.com/KaramelBytes/rntrec/cmd"

func main() {
	cmd.Execute()
}
