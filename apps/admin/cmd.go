package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/kozihq/kozi/core"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf *core.Config
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  hashpin - hash an instructor PIN for the config (prompted)")
	fmt.Println("  checkroster [-path PATH] - load a roster CSV and report what it contains")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	checkRosterCmd := flag.NewFlagSet("checkroster", flag.ExitOnError)
	checkRosterPath := checkRosterCmd.String("path", cli.conf.RosterPath, "Path to the roster CSV file.")

	switch args[1] {
	case "hashpin":
		fmt.Print("Enter PIN:")
		pin, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pin) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.hashPIN(string(pin))
	case "checkroster":
		if err := checkRosterCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.checkRoster(*checkRosterPath)
	default:
		cli.printUsage()
		return errHelp
	}
}
