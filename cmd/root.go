package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-resolver",
	Short: "A CLI tool for resolving face identities from embeddings",
	Long: `Face Resolver generates face embeddings through an isolated worker
process, matches new faces against known identities with k-nearest-neighbor
voting, and groups unknown faces into identity clusters.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
