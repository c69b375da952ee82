package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/gradeledger/core/ledger"
)

func (cli *commandLine) export(args []string) error {
	cmd := cli.newFlagSet("export")
	key := cmd.String("key", "", "The ledger to export.")
	format := cmd.String("format", "", "json (default) or yaml; guessed from -o when empty.")
	output := cmd.String("o", "", "The file to write; stdout when empty.")
	if err := parseFlags(cmd, args); err != nil {
		return err
	}
	if *key == "" {
		cmd.Usage()
		return errHelp
	}
	if *format == "" {
		*format = filepath.Ext(*output)
	}

	var exp ledger.Export
	err := cli.ledgerSvc.View(context.Background(), ledger.ID(*key), func(s *ledger.Session) error {
		exp = s.Export()
		return nil
	})
	if err != nil {
		return err
	}

	var w io.Writer = cli.out
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return errors.Wrap(err, "creating export file")
		}
		defer f.Close()
		w = f
	}
	return exp.Encode(w, ledger.ParseFormat(*format))
}

func (cli *commandLine) importLedger(args []string) error {
	cmd := cli.newFlagSet("import")
	key := cmd.String("key", "", "The ledger to replace; a new ledger is created when empty.")
	format := cmd.String("format", "", "json or yaml; guessed from the file extension when empty.")
	if err := parseFlags(cmd, args); err != nil {
		return err
	}
	if cmd.NArg() != 1 {
		cmd.Usage()
		return errHelp
	}
	path := cmd.Arg(0)
	if *format == "" {
		*format = filepath.Ext(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening import file")
	}
	defer f.Close()

	exp, err := ledger.DecodeExport(f, ledger.ParseFormat(*format))
	if err != nil {
		return err
	}

	ctx := context.Background()
	id := ledger.ID(*key)
	if id == "" {
		if id, err = cli.ledgerSvc.Create(ctx); err != nil {
			return err
		}
	}
	err = cli.ledgerSvc.Do(ctx, id, func(s *ledger.Session) error {
		s.Import(exp)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Imported %d semester(s) into ledger %s\n", len(exp.Snapshot.Semesters), id)
	return nil
}
