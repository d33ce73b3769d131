package main

import "github.com/chaos-io/depth2layer/cmd"

func main() {
	cmd.Execute()
}
