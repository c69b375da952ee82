package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/grading"
	"github.com/trezcool/gradeledger/core/ledger"
)

var difficultyTexts = map[ledger.Difficulty]string{
	ledger.DifficultyOutOfReach:      "Target is not achievable: the maximum SGPA is 10.00.",
	ledger.DifficultyVeryChallenging: "Very challenging: nearly all S grades are needed.",
	ledger.DifficultyChallenging:     "Achievable with focus: a mix of S and A grades is needed.",
	ledger.DifficultyComfortable:     "Very achievable.",
}

// parseCourse reads a CREDITS:GRADE pair.
func parseCourse(arg string) (ledger.Course, error) {
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 {
		return ledger.Course{}, errors.Errorf("%q: courses must be of form CREDITS:GRADE", arg)
	}
	grade := grading.Grade(parts[1]).Normalize()
	if !grading.IsKnown(grade) {
		return ledger.Course{}, errors.Errorf("%q: unknown grade %q (one of %s)", arg, parts[1], gradeNames())
	}
	return ledger.Course{Credits: core.Numeric(strings.TrimSpace(parts[0])), Grade: grade}, nil
}

// gradeNames lists the canonical tokens followed by the legacy-only ones.
func gradeNames() string {
	names := make([]string, 0, 10)
	seen := make(map[grading.Grade]bool)
	for _, g := range append(grading.Options(), grading.LegacyOptions()...) {
		if !seen[g] {
			seen[g] = true
			names = append(names, string(g))
		}
	}
	return strings.Join(names, " ")
}

func (cli *commandLine) sgpa(args []string) error {
	cmd := cli.newFlagSet("sgpa")
	reg := cmd.String("regulation", cli.conf.Regulation, "The grading regulation.")
	if err := parseFlags(cmd, args); err != nil {
		return err
	}
	if cmd.NArg() == 0 {
		cmd.Usage()
		return errHelp
	}

	courses := make([]ledger.Course, 0, cmd.NArg())
	for _, arg := range cmd.Args() {
		c, err := parseCourse(arg)
		if err != nil {
			return err
		}
		courses = append(courses, c)
	}

	res := ledger.ComputeSGPA(courses, grading.Regulation(*reg))
	fmt.Fprintf(cli.out, "SGPA: %.2f (%s credits)\n", res.Value, core.NumericOf(res.TotalCredits))
	return nil
}

func (cli *commandLine) target(args []string) error {
	cmd := cli.newFlagSet("target")
	target := cmd.String("target", "", "The target CGPA.")
	remaining := cmd.String("remaining", "", "The number of remaining semesters.")
	avg := cmd.String("avg", "", "The average credits per remaining semester.")
	key := cmd.String("key", "", "A ledger to read the current standing from.")
	credits := cmd.String("credits", "", "The credits earned so far (without -key).")
	cgpa := cmd.String("cgpa", "", "The current CGPA (without -key).")
	if err := parseFlags(cmd, args); err != nil {
		return err
	}
	if *target == "" || *remaining == "" || *avg == "" {
		cmd.Usage()
		return errHelp
	}

	var res ledger.Target
	var err error
	if *key != "" {
		err = cli.ledgerSvc.View(context.Background(), ledger.ID(*key), func(s *ledger.Session) (err error) {
			res, err = s.SolveTarget(core.Numeric(*target), core.Numeric(*remaining), core.Numeric(*avg))
			return err
		})
	} else {
		res, err = ledger.SolveTarget(
			core.Numeric(*target), core.Numeric(*remaining), core.Numeric(*avg),
			core.Numeric(*credits), core.Numeric(*cgpa),
		)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "Required SGPA: %.2f per semester over %s credits\n", res.RequiredSGPA, core.NumericOf(res.FutureCredits))
	fmt.Fprintln(cli.out, difficultyTexts[res.Difficulty()])
	return nil
}
