package main

import "github.com/cortexcli/chatrepl/cmd"

func main() {
	cmd.Execute()
}
