package main

import (
	"fmt"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"alfred/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", "/tmp/alfred.sock", "Control socket of the alfred daemon")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: alfred-ctl [-s socket] <trigger|stop|clear|fast|full|status|quit> [arg]\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	if env := os.Getenv("ALFRED_SOCKET"); env != "" && !cli.CommandLine.Changed("socket") {
		*socket = env
	}

	reply, err := ipc.Send(*socket, args[0], strings.Join(args[1:], " "))
	if err != nil {
		fmt.Println("alfred daemon not running:", err)
		os.Exit(1)
	}

	fmt.Println(reply.Message)
	if !reply.OK {
		os.Exit(1)
	}
}
