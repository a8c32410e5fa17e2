package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/TWRT/sprint-manager/internal/config"
	"github.com/TWRT/sprint-manager/internal/models"
	"github.com/TWRT/sprint-manager/internal/repository"
)

func newDivergencesCmd() *cobra.Command {
	var (
		dbPath  string
		showAll bool
	)

	cmd := &cobra.Command{
		Use:   "divergences",
		Short: "List calendar mutations the task store missed",
		Long: `List journal entries for calendar events that were created, updated or
deleted without the matching change reaching the task store. Only open
entries are shown unless --all is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := openJournal(cmd, dbPath)
			if err != nil {
				return err
			}
			defer closeDB()

			list, err := repo.List(cmd.Context(), !showAll)
			if err != nil {
				return err
			}
			return writeDivergences(cmd.OutOrStdout(), list)
		},
	}

	resolveCmd := &cobra.Command{
		Use:   "resolve ID",
		Short: "Mark a divergence as reconciled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid divergence id %q: %w", args[0], err)
			}

			repo, closeDB, err := openJournal(cmd, dbPath)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := repo.UpdateStatus(cmd.Context(), id, models.DivergenceResolved); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "divergence %d resolved\n", id)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path. Defaults to DB_PATH or the serve default.")
	cmd.Flags().BoolVar(&showAll, "all", false, "Include compensated and resolved entries")
	cmd.AddCommand(resolveCmd)

	return cmd
}

func openJournal(cmd *cobra.Command, dbPath string) (*repository.DivergenceRepository, func(), error) {
	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		dbPath = cfg.DBPath
	}

	db, err := repository.InitDB(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	return repository.NewDivergenceRepository(db), func() { db.Close() }, nil
}

func writeDivergences(w io.Writer, list []models.Divergence) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "no divergences")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOPERATION\tSTATUS\tTASK\tEVENT\tCREATED\tDETAIL")
	for _, d := range list {
		task := "-"
		if d.TaskId != 0 {
			task = strconv.FormatInt(d.TaskId, 10)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Id,
			d.Operation,
			d.Status,
			task,
			d.RemoteEventId,
			d.CreatedAt.UTC().Format(time.RFC3339),
			d.Detail,
		)
	}
	return tw.Flush()
}
