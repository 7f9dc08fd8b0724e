package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"aitranscriber/config"
)

const configUsage = "Usage: aitranscriber config [-config path] show | set <key> <value> | path"

// runConfig implements the config subcommand and returns the exit code.
func runConfig(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	pathFlag := fs.String("config", "", "settings file path")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path, err := config.ResolvePath(*pathFlag)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	store := config.NewStore(path)

	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, configUsage)
		return 2
	}

	switch rest[0] {
	case "path":
		fmt.Fprintln(stdout, path)
		return 0

	case "show":
		if err := store.Load(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		s := store.Get()
		if s.APIKey != "" {
			s.APIKey = maskKey(s.APIKey)
		}
		out, err := yaml.Marshal(s)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		stdout.Write(out)
		return 0

	case "set":
		if len(rest) != 3 {
			fmt.Fprintln(stderr, configUsage)
			return 2
		}
		err := store.Load()
		var corrupt *config.CorruptError
		if errors.As(err, &corrupt) {
			fmt.Fprintf(stderr, "Warning: %v; starting from defaults\n", err)
		} else if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		key, value := rest[1], rest[2]
		if err := store.Update(func(s *config.Settings) error { return s.Set(key, value) }); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if err := store.Save(); err != nil {
			fmt.Fprintf(stderr, "Error: saving settings: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "%s updated\n", key)
		return 0
	}

	fmt.Fprintf(stderr, "unknown config command %q\n%s\n", rest[0], configUsage)
	return 2
}

func maskKey(k string) string {
	if len(k) <= 8 {
		return strings.Repeat("*", len(k))
	}
	return k[:4] + strings.Repeat("*", len(k)-8) + k[len(k)-4:]
}
