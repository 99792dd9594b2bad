// Package flagx lets the layered config loader parse command-line flags in
// two independent passes. The client first resolves the JSON config file
// path (-c/-config) and later applies the overlay flags (-a, -d, -i, -l);
// each pass must ignore the other's flags or flag.Parse would reject them
// as unknown.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the flags named in allowed, together with their
// values, preserving order. Both the separate form ("-d vault.db") and the
// equals form ("-d=vault.db") are recognized; everything else is dropped.
func FilterArgs(args []string, allowed []string) []string {
	keep := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		keep[name] = true
	}

	// empty, not nil, so the result always feeds flag.Parse directly
	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, found := strings.Cut(arg, "="); found && strings.HasPrefix(name, "-") {
			if keep[name] {
				out = append(out, arg)
			}
			continue
		}

		if !keep[arg] {
			continue
		}
		out = append(out, arg)

		// a following token is this flag's value unless it is itself a flag
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigFilePath extracts the JSON config file path given with -c or
// -config, leaving every other argument for the overlay pass in the config
// package. Returns "" when neither flag is present.
func ConfigFilePath() string {
	var path string

	fs := flag.NewFlagSet("configfile", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to the JSON config file")
	fs.StringVar(&path, "c", "", "path to the JSON config file (short)")
	_ = fs.Parse(FilterArgs(os.Args[1:], []string{"-c", "-config"}))

	return path
}
