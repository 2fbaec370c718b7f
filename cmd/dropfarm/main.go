// Command dropfarm runs the drop farming daemon and its control client.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/roach88/dropfarm/internal/cli"
)

func main() {
	// A missing .env is normal; anything else is worth a warning.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: load .env: %v\n", err)
	}

	err := cli.NewRootCommand().Execute()
	if err != nil {
		var apiErr *cli.APIError
		// Rejections were already printed by the command.
		if !errors.As(err, &apiErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
