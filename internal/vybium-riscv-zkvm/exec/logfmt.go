package exec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The guest emits C-style format strings; only these verbs reach the bridge.
var logSpecRe = regexp.MustCompile(`%([0-9]*)([xudw%])`)

// formatLog interprets a C-style format string against a flat argument list.
// %u and %d render decimal (unsigned/signed), %x hexadecimal with an 0x
// prefix, %w consumes four one-byte arguments and renders them as one
// little-endian word, and %% is a literal percent. Each verb may carry a
// field width. The argument list must be consumed exactly; a mismatch means
// the generated trace and the guest source disagree and panics.
func formatLog(msg string, args []uint32) string {
	argsLeft := args
	nextArg := func() uint32 {
		if len(argsLeft) == 0 {
			panic(fmt.Sprintf("log arg mismatch, msg %s", msg))
		}
		arg := argsLeft[0]
		argsLeft = argsLeft[1:]
		return arg
	}

	formatted := logSpecRe.ReplaceAllStringFunc(msg, func(match string) string {
		groups := logSpecRe.FindStringSubmatch(match)
		width := 0
		if groups[1] != "" {
			width, _ = strconv.Atoi(groups[1])
		}
		switch groups[2] {
		case "u":
			return fmt.Sprintf("%*d", width, nextArg())
		case "x":
			if width >= 2 {
				width -= 2
			} else {
				width = 0
			}
			return fmt.Sprintf("0x%0*x", width, nextArg())
		case "d":
			return fmt.Sprintf("%*d", width, int32(nextArg()))
		case "%":
			return "%"
		case "w":
			nexts := [4]uint32{nextArg(), nextArg(), nextArg(), nextArg()}
			if nexts[0] <= 255 && nexts[1] <= 255 && nexts[2] <= 255 && nexts[3] <= 255 {
				return fmt.Sprintf("0x%08X", nexts[0]|nexts[1]<<8|nexts[2]<<16|nexts[3]<<24)
			}
			parts := make([]string, 4)
			for i, v := range nexts {
				parts[i] = fmt.Sprintf("0x%X", v)
			}
			return strings.Join(parts, ", ")
		default:
			panic(fmt.Sprintf("unhandled printf format specification %q", groups[2]))
		}
	})

	if len(argsLeft) != 0 {
		panic(fmt.Sprintf("args missing formatting: %v in %s", argsLeft, msg))
	}
	return formatted
}
