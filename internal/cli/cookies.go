package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/artpar/artsy/internal/cookies"
	"github.com/spf13/cobra"
)

// NewCookiesCommand creates the cookies command group.
func NewCookiesCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cookies",
		Short: "Inspect or clear stored cookies",
	}
	cmd.AddCommand(newCookiesListCommand(root))
	cmd.AddCommand(newCookiesClearCommand(root))
	return cmd
}

func newCookiesListCommand(root *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer application.Close()

			list, err := application.Jar().ListAll()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			printCookies(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCookiesClearCommand(root *RootOptions) *cobra.Command {
	var domain string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer application.Close()

			jar := application.Jar()
			if domain != "" {
				if err := jar.ClearDomain(domain); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "Cleared cookies for %s", domain)
				return nil
			}
			if err := jar.Clear(); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Cleared all cookies")
			return nil
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "Only clear cookies for this domain")
	return cmd
}

func printCookies(w io.Writer, list []*cookies.Cookie) {
	if len(list) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No cookies"))
		return
	}
	for _, c := range list {
		expires := "session"
		if !c.IsSession() {
			expires = c.Expires.Local().Format(time.RFC3339)
		}
		var flags string
		if c.Secure {
			flags += " secure"
		}
		if c.HttpOnly {
			flags += " httponly"
		}
		if c.HostOnly {
			flags += " host-only"
		}
		fmt.Fprintf(w, "%s %s%s\n", titleStyle.Render(c.Name), mutedStyle.Render(c.Domain+c.Path), mutedStyle.Render(flags))
		fmt.Fprintf(w, "  expires: %s\n", expires)
	}
}
