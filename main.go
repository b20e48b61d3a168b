package main

import "github.com/iDang3r/tarantool/cmd"

func main() {
	cmd.Execute()
}
