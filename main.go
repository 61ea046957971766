package main

import "github.com/ValentinKolb/dplane/cmd"

func main() {
	cmd.Execute()
}
