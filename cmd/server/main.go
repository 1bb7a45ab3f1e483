package main

import "github.com/jeremytraini/auscal/cmd/server/cmd"

func main() {
	cmd.Execute()
}
