package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/propertyinbox/internal/config"
	"github.com/teemow/propertyinbox/internal/google"
)

func newAuthCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Obtain a Google refresh token",
		Long: `Run the OAuth consent flow for the configured Google client and cache the
refresh token. Open the printed URL, grant access, and paste the code
parameter of the address the browser is redirected to.

The cached token is used when google.refresh_token is not configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The remaining settings may not be filled in yet.
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
				return fmt.Errorf("google.client_id and google.client_secret are required")
			}

			conf := google.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, "")
			out := cmd.OutOrStdout()

			if code == "" {
				fmt.Fprintf(out, "Go to the following link in your browser:\n\n%s\n\n", google.AuthURL(conf, "state"))
				fmt.Fprint(out, "Enter authorization code: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && strings.TrimSpace(line) == "" {
					return fmt.Errorf("failed to read authorization code: %w", err)
				}
				code = line
			}

			token, err := google.ExchangeCode(cmd.Context(), conf, code)
			if err != nil {
				return err
			}
			if err := google.SaveRefreshToken(token.RefreshToken); err != nil {
				return err
			}

			fmt.Fprintf(out, "Refresh token saved to %s\n", google.TokenFilePath())
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code; prompted for when empty")
	return cmd
}
