package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/idearium/internal/archive"
)

func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived conversation memory",
	}
	cmd.AddCommand(archiveSearchCmd())
	cmd.AddCommand(archiveCountCmd())
	return cmd
}

func openArchive() (*archive.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Logging)
	if cfg.Memory.ArchivePath == "" {
		return nil, fmt.Errorf("memory.archive_path is not configured")
	}
	return archive.Open(cfg.Memory.ArchivePath)
}

func archiveSearchCmd() *cobra.Command {
	var (
		sessionKey string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over archived notions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openArchive()
			if err != nil {
				return err
			}
			defer store.Close()

			results, err := store.Search(cmd.Context(), args[0], archive.SearchOptions{
				MaxResults: limit,
				SessionKey: sessionKey,
			})
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No matches.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCORE\tSESSION\tROLE\tCONTENT")
			for _, r := range results {
				fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\n", r.Score, r.SessionKey, r.Role, truncateLine(r.Content, 80))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&sessionKey, "session", "s", "", "restrict to one session")
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "maximum results")
	return cmd
}

func archiveCountCmd() *cobra.Command {
	var sessionKey string
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count archived notions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openArchive()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Count(cmd.Context(), sessionKey)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionKey, "session", "s", "", "restrict to one session")
	return cmd
}
