package cli

import (
	"bufio"
	"fmt"
	"strings"

	"studio_pm/internal/app"
	"studio_pm/internal/mail"
	"studio_pm/internal/vendormail"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

func newEmailCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "email",
		Short: "Vendor price request emails",
	}
	cmd.AddCommand(
		newEmailVendorsCmd(a),
		newEmailSendCmd(a, false),
		newEmailSendCmd(a, true),
		newEmailAuthCmd(a),
	)
	return cmd
}

// vendormailService builds the composer against the project sheet. Commands
// that never send skip the mailer so listing vendors needs no Gmail token.
func vendormailService(cmd *cobra.Command, a *app.App, needMailer bool) (*vendormail.Service, error) {
	ctx := cmd.Context()
	store, err := a.ProjectStore(ctx)
	if err != nil {
		return nil, err
	}
	var mailer mail.Mailer
	if needMailer {
		mailer, err = a.Mailer(ctx)
		if err != nil {
			return nil, err
		}
	}
	return vendormail.NewService(store, mailer, vendormail.DefaultConfig(a.Company)), nil
}

func newEmailVendorsCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "vendors",
		Short: "List vendors with open price requests on the sourcing sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := vendormailService(cmd, a, false)
			if err != nil {
				return err
			}
			vendors, err := svc.Vendors(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, vendors)
		},
	}
}

func newEmailSendCmd(a *app.App, draft bool) *cobra.Command {
	use, short := "send", "Send a price request email to a vendor"
	if draft {
		use, short = "draft", "Create a Gmail draft of a vendor price request"
	}
	var vendor, to, message string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if vendor == "" {
				return fmt.Errorf("--vendor is required")
			}
			if to == "" {
				return fmt.Errorf("--to is required")
			}
			svc, err := vendormailService(cmd, a, true)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			var result *vendormail.SendResult
			if draft {
				result, err = svc.Draft(ctx, vendor, to, message)
			} else {
				result, err = svc.Send(ctx, vendor, to, message)
			}
			if err != nil {
				return err
			}
			if !draft {
				a.NotifyClient().NotifyVendorEmail(ctx, vendor, result.Recipient, result.ItemCount)
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&vendor, "vendor", "", "vendor name as it appears on the sourcing sheet")
	cmd.Flags().StringVar(&to, "to", "", "recipient email address")
	cmd.Flags().StringVar(&message, "message", "", "custom intro message replacing the default one")
	return cmd
}

// newEmailAuthCmd runs the one-time OAuth consent flow and saves the token.
func newEmailAuthCmd(a *app.App) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail access and store the OAuth token",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := mail.NewOAuthConfig()
			if code == "" {
				url := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
				fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in your browser, approve access, then paste the code:\n%s\n> ", url)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				if !scanner.Scan() {
					return fmt.Errorf("no authorization code provided")
				}
				code = strings.TrimSpace(scanner.Text())
			}
			token, err := config.Exchange(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("failed to exchange authorization code: %w", err)
			}
			if err := mail.SaveToken(a.TokenFile, token); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"tokenFile": a.TokenFile})
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "authorization code, skipping the prompt")
	return cmd
}
