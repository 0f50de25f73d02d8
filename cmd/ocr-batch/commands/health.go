package commands

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/lumina-docs/ocr-gateway/cmd/ocr-batch/ui"
	"github.com/lumina-docs/ocr-gateway/internal/config"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the gateway is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if apiURL == "" {
			apiURL = cfg.Client.APIURL
		}

		healthURL, err := healthEndpoint(apiURL)
		if err != nil {
			return err
		}

		sp := ui.NewSpinner("checking gateway...")
		sp.Start()

		resp, err := gatewayClient(cfg).Get(healthURL)

		sp.Stop()

		if err != nil {
			ui.Failure("gateway unreachable: %v", err)
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			ui.Failure("gateway unhealthy: HTTP %d", resp.StatusCode)
			return fmt.Errorf("gateway returned %d", resp.StatusCode)
		}

		ui.Success("gateway healthy at %s", healthURL)
		return nil
	},
}

// healthEndpoint derives the /health URL from the OCR endpoint URL.
func healthEndpoint(ocrURL string) (string, error) {
	u, err := url.Parse(ocrURL)
	if err != nil {
		return "", fmt.Errorf("invalid api url %q: %w", ocrURL, err)
	}
	u.Path = "/health"
	u.RawQuery = ""
	return u.String(), nil
}
