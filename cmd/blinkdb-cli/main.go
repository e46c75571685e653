// Command blinkdb-cli is a small interactive client for a running
// blinkdb-server: a REPL that reads a command line, sends it, and prints
// the reply, or runs a single command given on the command line.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"blinkdb/internal/client"
	"blinkdb/internal/config"
	"blinkdb/internal/log"
)

func main() {
	log.DefaultLogger()

	app := &cli.App{
		Name:  "blinkdb-cli",
		Usage: "connect to a blinkdb-server and issue commands interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "127.0.0.1" + config.DefaultAddr, Usage: "server address"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	addr := c.String("addr")
	conn, err := client.Connect("tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if args := c.Args().Slice(); len(args) > 0 {
		reply, err := conn.Do(args...)
		if err != nil {
			return err
		}
		fmt.Println(reply.String())
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("blinkdb %s> ", addr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Printf("blinkdb %s> ", addr)
			continue
		}
		reply, err := conn.Do(strings.Fields(line)...)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return err
		}
		fmt.Println(reply.String())
		fmt.Printf("blinkdb %s> ", addr)
	}
	return scanner.Err()
}
