package main

import "github.com/meinhoongagan/medicnote/cmd"

func main() {
	cmd.Execute()
}
