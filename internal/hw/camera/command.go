package camera

import (
	"fmt"
	"path/filepath"
	"strings"
)

// timestampLayout matches a JSON date: UTC with milliseconds.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Invocation is one prepared launch of a capture utility.
type Invocation struct {
	Kind   Kind
	Binary string
	// Line is the full shell command line. Values are double-quoted but
	// not escaped, so a value containing " or shell metacharacters is
	// interpreted by the shell. Only ShellRunner uses it.
	Line string
	// Args is the argv form of the same flags, for ExecRunner.
	Args []string
	// Stdout is the stream target when StreamVideo is set; ExecRunner
	// writes the utility's stdout there.
	Stdout string
}

// ResolveFilename picks the output path for a capture of kind and records
// it through Output. An empty file gets a timestamped name, a file starting
// with "/" is used as is, anything else is joined onto the base folder.
// The base folder defaults to <home>/pictures or <home>/videos.
func (c *Camera) ResolveFilename(kind Kind, file string) string {
	if c.folder == "" {
		c.folder = filepath.Join(c.homeDir, kind.Folder())
	}

	var name string
	switch {
	case file == "":
		name = filepath.Join(c.folder, c.now().UTC().Format(timestampLayout)+"."+kind.Ext())
	case strings.HasPrefix(file, "/"):
		name = file
	default:
		name = filepath.Join(c.folder, file)
	}

	c.Output(name)
	return name
}

// Command serializes the flag mapping for kind. For video, a set stream
// target removes the -o entry from the mapping first.
func (c *Camera) Command(kind Kind) Invocation {
	if kind == Video {
		if v, ok := c.params.Get(keyStream); ok && truthy(v) {
			c.params.Delete(keyOutput)
		}
	}

	inv := Invocation{Kind: kind, Binary: c.binaries[kind]}
	var line strings.Builder
	line.WriteString(inv.Binary)
	for _, key := range c.params.keys {
		value := c.params.values[key]
		writeEntry(&line, key, value)

		switch {
		case key == keyStream:
			inv.Args = append(inv.Args, keyOutput, "-")
			inv.Stdout = asString(value)
		case isSwitch(value):
			inv.Args = append(inv.Args, key)
		default:
			inv.Args = append(inv.Args, key, fmt.Sprint(value))
		}
	}
	inv.Line = line.String()
	return inv
}

func isSwitch(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func writeEntry(b *strings.Builder, key string, value any) {
	if isSwitch(value) {
		b.WriteString(" " + key)
		return
	}
	fmt.Fprintf(b, " %s \"%v\"", key, value)
}
