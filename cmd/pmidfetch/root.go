package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/pmidfetch/version"
)

var rootCmd = &cobra.Command{
	Use:   "pmidfetch",
	Short: "Resolve article titles to PubMed identifiers",
	Long: "pmidfetch reads article titles from an XML dataset, looks each one up\n" +
		"against NCBI esearch under a strict request-rate ceiling, and writes the\n" +
		"titles with their PMIDs to a PubmedArticleSet document.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

var rootFlags struct {
	configFile string
	envFile    string
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configFile, "config", "", "config file (default: search ./cmd/pmidfetch, ./config, .)")
	pf.StringVar(&rootFlags.envFile, "env-file", "", ".env file with PMIDFETCH_* overrides")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version.Get().Short()
}
