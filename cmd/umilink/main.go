// Umilink replays UMI transaction traces over a simulated serial link.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var rootCmd = &cobra.Command{
	Use:   "umilink",
	Short: "Umilink simulates UMI traffic over a latency-insensitive link.",
	Long: `Umilink drives a simulated serial link with UMI transactions. It ` +
		`replays a trace file through a pair of link endpoints connected to ` +
		`a memory model and reports what the link delivered.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	// A .env file in the working directory provides flag defaults. Missing
	// files are fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// envOr returns the value of the environment variable named by key, or def
// when it is unset.
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return def
}
