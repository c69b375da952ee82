package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"golang.org/x/term"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/ledger"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf      *core.Config
	db        *sql.DB // nil unless the postgres storage driver is configured
	ledgerSvc *ledger.Service
	logger    core.Logger
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                          - run database migrations (up, down, redo, status, ...)")
	fmt.Fprintln(cli.out, "  sgpa [-regulation REG] CREDITS:GRADE...         - compute an SGPA")
	fmt.Fprintln(cli.out, "  target -target CGPA -remaining N -avg CREDITS (-key KEY | -credits C -cgpa G)")
	fmt.Fprintln(cli.out, "                                                  - SGPA needed in every remaining semester")
	fmt.Fprintln(cli.out, "  export -key KEY [-format json|yaml] [-o FILE]   - export a ledger")
	fmt.Fprintln(cli.out, "  import [-key KEY] [-format json|yaml] FILE      - import a ledger (a new one without -key)")
	fmt.Fprintln(cli.out, "  extract -key KEY [-apply] IMAGE...              - read grade cards into a ledger")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "sgpa":
		return cli.sgpa(args[2:])
	case "target":
		return cli.target(args[2:])
	case "export":
		return cli.export(args[2:])
	case "import":
		return cli.importLedger(args[2:])
	case "extract":
		return cli.extract(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}
