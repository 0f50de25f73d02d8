// Package commands implements the batch client CLI.
package commands

import (
	"net/http"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lumina-docs/ocr-gateway/internal/config"
)

var (
	cfgFile         string
	inputDir        string
	outputDir       string
	apiURL          string
	continueOnError bool
)

var rootCmd = &cobra.Command{
	Use:   "ocr-batch",
	Short: "Batch client for the OCR gateway",
	Long: `ocr-batch sends every supported document in a directory to the OCR
gateway and saves the per-page markdown and layout JSON results.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load() // Ignore error if .env doesn't exist
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "gateway OCR endpoint (overrides config)")

	processCmd.Flags().StringVarP(&inputDir, "input", "i", "", "input directory (overrides config)")
	processCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (overrides config)")
	processCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "keep going when a file fails")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(healthCmd)
}

// gatewayClient returns the HTTP client used for all gateway calls,
// bounded by the configured client timeout.
func gatewayClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Client.Timeout.Std()}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
