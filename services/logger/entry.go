package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/trezcool/gradeledger/core"
)

// entry is a parsed list of log args.
// Accepted args: error, map[string]interface{}, core.Owner and "key", value pairs.
type entry struct {
	err    error
	owner  *core.Owner
	extras map[string]interface{}
}

func parseArgs(args []interface{}) entry {
	var e entry
	extra := func(k string, v interface{}) {
		if e.extras == nil {
			e.extras = make(map[string]interface{})
		}
		e.extras[k] = v
	}

	for i := 0; i < len(args); i++ {
		switch arg := args[i].(type) {
		case error:
			if e.err == nil {
				e.err = arg
			} else {
				extra(fmt.Sprintf("error%d", i), arg.Error())
			}
		case core.Owner:
			if e.owner == nil { // only set one Owner
				owner := arg
				e.owner = &owner
			}
		case map[string]interface{}:
			for k, v := range arg {
				extra(k, v)
			}
		case string:
			if i+1 < len(args) {
				extra(arg, args[i+1])
				i++
			} else {
				extra("extra", arg)
			}
		default:
			extra(fmt.Sprintf("arg%d", i), arg)
		}
	}
	return e
}

func (e entry) String() string {
	parts := make([]string, 0, len(e.extras)+2)
	if e.err != nil {
		parts = append(parts, fmt.Sprintf("error=%q", e.err.Error()))
	}
	if e.owner != nil {
		parts = append(parts, fmt.Sprintf("owner=%s", e.owner.SessionID))
	}
	keys := make([]string, 0, len(e.extras))
	for k := range e.extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.extras[k]))
	}
	return strings.Join(parts, " ")
}

func printEntry(std *log.Logger, level, msg string, args []interface{}) {
	if len(args) == 0 {
		std.Printf("%s %s", level, msg)
		return
	}
	std.Printf("%s %s %s", level, msg, parseArgs(args))
}
