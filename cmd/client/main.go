package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/srdc/messageapp/internal/client"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "server address")
	flag.Parse()

	c, err := client.Dial(*addr, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect failed: %v\n", err)
		os.Exit(1)
	}

	if err := c.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
