package main

import "strings"

// reorderInterspersedFlags moves flags ahead of positionals so that
// `decant compact abc123 --last 3` parses like `decant compact --last 3 abc123`.
// valueFlags names the flags that consume the following argument.
func reorderInterspersedFlags(arguments []string, valueFlags map[string]bool) []string {
	flags := make([]string, 0, len(arguments))
	positionals := make([]string, 0, len(arguments))

	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if arg == "--" {
			positionals = append(positionals, arguments[i+1:]...)
			break
		}
		if len(arg) < 2 || !strings.HasPrefix(arg, "-") {
			positionals = append(positionals, arg)
			continue
		}

		flags = append(flags, arg)
		if strings.Contains(arg, "=") || !valueFlags[strings.TrimLeft(arg, "-")] {
			continue
		}
		if i+1 < len(arguments) {
			i++
			flags = append(flags, arguments[i])
		}
	}
	return append(flags, positionals...)
}
