package main

import "TuneLib/cmd"

func main() {
	cmd.Execute()
}
