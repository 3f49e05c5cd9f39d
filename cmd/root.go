package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "entitlements",
	Short: "Entitlements microservice",
	Long:  "A microservice that confirms payment notifications, provisions plan entitlements idempotently, and records an audit trail.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
