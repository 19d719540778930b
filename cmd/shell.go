package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/google/shlex"
)

// ExecuteLine runs one shell-style command line on a fresh command tree so
// flags do not leak between lines. Quoted arguments keep their spaces.
func ExecuteLine(ctx context.Context, line string, out io.Writer) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("failed to parse command line: %w", err)
	}
	if len(args) == 0 {
		return nil
	}

	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	return rootCmd.ExecuteContext(ctx)
}
