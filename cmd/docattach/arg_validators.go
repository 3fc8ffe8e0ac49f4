package main

import (
	"errors"

	"github.com/spf13/cobra"
)

// requireArgs accepts between min and max positional args; max < 0 means no upper bound.
func requireArgs(min, max int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < min || (max >= 0 && len(args) > max) {
			return errors.New(message)
		}
		return nil
	}
}

func requireExactlyArgs(count int, message string) cobra.PositionalArgs {
	return requireArgs(count, count, message)
}

func requireAtLeastArgs(min int, message string) cobra.PositionalArgs {
	return requireArgs(min, -1, message)
}

// requireDocumentArgs expects <doctype> <name> followed by extra args.
func requireDocumentArgs(extra int, message string) cobra.PositionalArgs {
	return requireExactlyArgs(2+extra, message)
}
