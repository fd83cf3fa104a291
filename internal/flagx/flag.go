// Package flagx pre-scans command-line arguments for the few flags that
// must be known before the command tree is built (the config file path).
package flagx

import (
	"strings"
)

// ConfigFlags are the spellings accepted for the JSON config file path.
var ConfigFlags = []string{"-c", "--config", "-config"}

// FilterArgs returns a slice of command-line arguments that only contains
// the allowed flags (and their values) specified in allowedFlags.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value combined with '=':      --config=conf.json
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			break
		}

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			// the next argument is the value unless it looks like another flag
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigPath extracts the config file path from args. When the flag is
// repeated the last occurrence wins. It returns "" if no path was given.
func ConfigPath(args []string) string {
	filtered := FilterArgs(args, ConfigFlags)

	var path string
	for i := 0; i < len(filtered); i++ {
		arg := filtered[i]
		if _, value, ok := strings.Cut(arg, "="); ok {
			path = value
			continue
		}
		if i+1 < len(filtered) {
			path = filtered[i+1]
			i++
		}
	}
	return path
}
