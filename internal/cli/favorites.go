package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/artpar/artsy/internal/core"
	"github.com/artpar/artsy/internal/favorites"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewFavoritesCommand creates the favorites command group.
func NewFavoritesCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "List and toggle favorite artists",
	}
	cmd.AddCommand(newFavoritesListCommand(root))
	cmd.AddCommand(newFavoritesToggleCommand(root))
	return cmd
}

func newFavoritesListCommand(root *RootOptions) *cobra.Command {
	var asJSON, asYAML bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List favorites, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON && asYAML {
				return errors.New("--json and --yaml are mutually exclusive")
			}

			application, err := root.openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer application.Close()

			application.Start(cmd.Context())
			sess := application.State().Current()
			if sess.IsAnonymous() {
				return core.ErrAnonymous
			}

			entries := favorites.Timeline(sess, time.Now())
			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			case asYAML:
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(entries)
			default:
				printTimeline(out, entries)
				return nil
			}
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Output as YAML")
	return cmd
}

func newFavoritesToggleCommand(root *RootOptions) *cobra.Command {
	var artist core.ArtistSummary

	cmd := &cobra.Command{
		Use:   "toggle ARTIST_ID",
		Short: "Add the artist to favorites, or remove it if already there",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artist.ID = args[0]
			out := cmd.OutOrStdout()

			notifier := favorites.NotifierFunc(func(n favorites.Notification) {
				if n.Level == favorites.Error {
					printFailure(cmd.ErrOrStderr(), "%s", n.Message)
					return
				}
				printSuccess(out, "%s", n.Message)
			})

			application, err := root.openApp(cmd, notifier)
			if err != nil {
				return err
			}
			defer application.Close()

			application.Start(cmd.Context())
			_, err = application.Favorites().Toggle(cmd.Context(), artist)
			return err
		},
	}
	cmd.Flags().StringVar(&artist.Name, "name", "", "Artist name, used when the catalog has none")
	cmd.Flags().StringVar(&artist.ImageURL, "image", "", "Artist thumbnail URL")
	return cmd
}

func printTimeline(w io.Writer, entries []favorites.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No favorites"))
		return
	}
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = e.ArtistID
		}
		fmt.Fprintf(w, "%s %s\n", starStyle.Render("★"), titleStyle.Render(title))

		var details []string
		if e.Nationality != "" {
			details = append(details, e.Nationality)
		}
		if e.BirthYear != "" {
			details = append(details, e.BirthYear)
		}
		if e.Ago != "" {
			details = append(details, e.Ago)
		}
		if len(details) > 0 {
			fmt.Fprintf(w, "  %s\n", mutedStyle.Render(strings.Join(details, " · ")))
		}
	}
}
