package cli

import (
	"flag"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// splitAction takes the leading action word off args.
func splitAction(args []string, actions []string) (string, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", nil, errors.Errorf("action required, one of: %s", joinActions(actions))
	}
	if !slices.Contains(actions, args[0]) {
		return "", nil, errors.Errorf("unknown action %q, want one of: %s", args[0], joinActions(actions))
	}
	return args[0], args[1:], nil
}

func joinActions(actions []string) string {
	return strings.Join(actions, "|")
}

// visited returns the names of the flags set on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
