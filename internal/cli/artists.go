package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/artpar/artsy/internal/api"
	"github.com/artpar/artsy/internal/core"
	"github.com/artpar/artsy/internal/favorites"
	"github.com/spf13/cobra"
)

// NewSearchCommand creates the search command.
func NewSearchCommand(root *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search artists by name",
		Long:  fmt.Sprintf("Search artists by name. Queries shorter than %d characters return nothing.", api.MinSearchLength),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer application.Close()

			application.Start(cmd.Context())
			artists, err := application.Client().Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printArtists(cmd, application.State().Current(), artists, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// NewSimilarCommand creates the similar command.
func NewSimilarCommand(root *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "similar ARTIST_ID",
		Short: "List artists similar to an artist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer application.Close()

			application.Start(cmd.Context())
			artists, err := application.Client().SimilarArtists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printArtists(cmd, application.State().Current(), artists, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// NewArtistCommand creates the artist command.
func NewArtistCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "artist ARTIST_ID",
		Short: "Show artist details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer application.Close()

			application.Start(cmd.Context())
			data, err := application.Client().ArtistData(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			sess := application.State().Current()
			out := cmd.OutOrStdout()
			name := data.Name
			if name == "" {
				name = data.ID
			}
			fmt.Fprintf(out, "%s%s\n", star(sess, favorites.IsFavorite(sess, data.ID)), titleStyle.Render(name))
			if data.Nationality != "" {
				fmt.Fprintf(out, "Nationality: %s\n", data.Nationality)
			}
			if life := lifespan(data); life != "" {
				fmt.Fprintf(out, "Lived:       %s\n", life)
			}
			return nil
		},
	}
}

func printArtists(cmd *cobra.Command, sess *core.Session, artists []core.ArtistSummary, asJSON bool) error {
	marked := favorites.Mark(sess, artists)
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(marked)
	}
	writeMarked(out, sess, marked)
	return nil
}

func writeMarked(w io.Writer, sess *core.Session, marked []favorites.Marked) {
	if len(marked) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No artists found"))
		return
	}
	for _, m := range marked {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		fmt.Fprintf(w, "%s%s %s\n", star(sess, m.Favorite), titleStyle.Render(name), mutedStyle.Render("("+m.ID+")"))
	}
}

// star renders the favorite marker. Anonymous users see none.
func star(sess *core.Session, favorite bool) string {
	switch {
	case sess.IsAnonymous():
		return ""
	case favorite:
		return starStyle.Render("★") + " "
	default:
		return mutedStyle.Render("☆") + " "
	}
}

func lifespan(data core.ArtistData) string {
	switch {
	case data.Birthday == "" && data.Deathday == "":
		return ""
	case data.Deathday == "":
		return data.Birthday + " -"
	default:
		return data.Birthday + " - " + data.Deathday
	}
}
