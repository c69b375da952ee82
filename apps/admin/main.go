package main

import (
	"log"
	"os"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/grading"
	"github.com/trezcool/gradeledger/core/ledger"
	"github.com/trezcool/gradeledger/services/logger"
	"github.com/trezcool/gradeledger/storage"
)

func main() {
	std := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	logger := logsvc.NewConsoleLogger(std, conf.Debug)

	// set up storage; migrations are left to the migrate command
	repo, db, err := storage.Open(conf, false)
	if err != nil {
		logger.Fatal("setting up storage", err)
	}
	if db != nil {
		defer db.Close()
	}

	// start CLI
	cli := commandLine{
		conf:      conf,
		db:        db,
		ledgerSvc: ledger.NewService(repo, logger, grading.Regulation(conf.Regulation)),
		logger:    logger,
		out:       os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
