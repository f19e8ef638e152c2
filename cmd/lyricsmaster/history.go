package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nao1215/lyricsmaster/internal/config"
	"github.com/nao1215/lyricsmaster/internal/database"
)

// NewHistoryCmd creates the history command.
// It lists past fetches stored in the library database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [artist]",
		Short: "Show past fetches and the size of the library",
		Long: `History lists the fetches recorded by 'lyricsmaster get', most recent first,
and the number of songs stored in the library.

Examples:
  # Last 20 fetches of every artist
  lyricsmaster history

  # Every fetch of one artist, as JSON
  lyricsmaster history --limit 0 --json "Reba McEntire"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum number of fetches to show (0 for all)")
	cmd.Flags().BoolP("json", "j", false, "Output history in JSON format")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the library database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	var artist string
	if len(args) > 0 {
		artist = args[0]
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return fmt.Errorf("no library found (run 'lyricsmaster get' first): %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	records, err := db.History(ctx, artist, limit)
	if err != nil {
		return err
	}
	songs, err := db.CountSongs(ctx, "", artist)
	if err != nil {
		return err
	}

	if asJSON {
		return writeHistoryJSON(cmd.OutOrStdout(), records, songs)
	}
	return writeHistoryText(cmd.OutOrStdout(), records, songs)
}

// historyJSON is the JSON form of the history command output.
type historyJSON struct {
	StoredSongs int             `json:"stored_songs"`
	Fetches     []historyRecord `json:"fetches"`
}

type historyRecord struct {
	ID        int64  `json:"id"`
	Provider  string `json:"provider"`
	Artist    string `json:"artist"`
	Scope     string `json:"scope,omitempty"`
	Albums    int    `json:"albums"`
	Songs     int    `json:"songs"`
	Failures  int    `json:"failures"`
	StartedAt string `json:"started_at"`
}

func writeHistoryJSON(w io.Writer, records []database.FetchRecord, songs int) error {
	out := historyJSON{
		StoredSongs: songs,
		Fetches:     make([]historyRecord, len(records)),
	}
	for i, r := range records {
		out.Fetches[i] = historyRecord{
			ID:        r.ID,
			Provider:  r.Provider,
			Artist:    r.Artist,
			Scope:     r.Scope,
			Albums:    r.Albums,
			Songs:     r.Songs,
			Failures:  r.Failures,
			StartedAt: r.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func writeHistoryText(w io.Writer, records []database.FetchRecord, songs int) error {
	fmt.Fprintf(w, "Songs in library: %d\n\n", songs)
	if len(records) == 0 {
		fmt.Fprintln(w, "No fetches recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tPROVIDER\tARTIST\tSCOPE\tALBUMS\tSONGS\tFAILURES")
	for _, r := range records {
		scope := r.Scope
		if scope == "" {
			scope = "discography"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Provider,
			r.Artist,
			scope,
			r.Albums,
			r.Songs,
			r.Failures,
		)
	}
	return tw.Flush()
}
