package main

import "github.com/viant/authbridge/cmd/authbridge/cmd"

func main() {
	cmd.Execute()
}
