package main

import "github.com/Zerofisher/pktdash/cmd"

func main() {
	cmd.Execute()
}
