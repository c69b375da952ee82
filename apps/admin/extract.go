package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/extraction"
	"github.com/trezcool/gradeledger/core/ledger"
	"github.com/trezcool/gradeledger/services/recognition"
)

var newRecognizerFunc = func(conf core.RecognitionConfig, logger core.Logger) (extraction.Recognizer, error) { // mockable
	return recognitionsvc.NewOpenAIRecognizer(conf, logger)
}

func (cli *commandLine) extract(args []string) error {
	cmd := cli.newFlagSet("extract")
	key := cmd.String("key", "", "The ledger to reconcile the grade cards with.")
	apply := cmd.Bool("apply", false, "Apply the proposal instead of only printing it.")
	if err := parseFlags(cmd, args); err != nil {
		return err
	}
	if *key == "" || cmd.NArg() == 0 {
		cmd.Usage()
		return errHelp
	}

	images := make([]extraction.Image, 0, cmd.NArg())
	for _, path := range cmd.Args() {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "reading grade card")
		}
		images = append(images, extraction.Image{
			Filename: filepath.Base(path),
			MimeType: http.DetectContentType(data),
			Data:     data,
		})
	}

	recConf := cli.conf.Recognition
	if recConf.APIKey == "" {
		fmt.Fprint(cli.out, "Enter recognition API key:")
		apiKey, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(apiKey) == 0 {
			cmd.Usage()
			return errHelp
		}
		recConf.APIKey = string(apiKey)
	}
	recognizer, err := newRecognizerFunc(recConf, cli.logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	res, err := recognizer.Extract(ctx, images...)
	if err != nil {
		if f, ok := err.(*extraction.Failure); ok {
			fmt.Fprintln(cli.out, f.Suggestion)
		}
		return err
	}

	p, err := cli.ledgerSvc.Propose(ctx, ledger.ID(*key), res)
	if err != nil {
		return err
	}
	if p.IsEmpty() {
		fmt.Fprintln(cli.out, "No semester found on the grade cards.")
		return nil
	}
	fmt.Fprint(cli.out, p.Diff())
	if p.ReportedCGPA != nil {
		fmt.Fprintf(cli.out, "CGPA printed on the card: %.2f\n", *p.ReportedCGPA)
	}

	if !*apply {
		fmt.Fprintln(cli.out, "Run again with -apply to replace the ledger.")
		return nil
	}
	if _, err = cli.ledgerSvc.ApplyProposal(ctx, ledger.ID(*key)); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Applied.")
	return nil
}
