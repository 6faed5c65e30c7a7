package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Aman-02003/portfolio-contact/internal/domain"
	"github.com/Aman-02003/portfolio-contact/internal/repo"
	"github.com/Aman-02003/portfolio-contact/internal/sysutil"
)

func dbFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVar(path, "db", "", "delivery log path (default $DB_PATH or contact.db)")
}

func openLog(path string) (*gorm.DB, error) {
	p := sysutil.FirstNonEmpty(path, os.Getenv("DB_PATH"), "contact.db")
	if _, err := os.Stat(p); err != nil {
		return nil, fmt.Errorf("delivery log %s: %w", p, err)
	}
	return repo.OpenSQLite(p)
}

func newStatsCmd() *cobra.Command {
	var (
		path  string
		since time.Duration
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count dispatch outcomes in the delivery log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openLog(path)
			if err != nil {
				return err
			}
			from := time.Now().UTC().Add(-since)
			counts, latest, err := repo.DeliveryStats(cmd.Context(), db, from)
			if err != nil {
				return fmt.Errorf("delivery stats: %w", err)
			}

			outcomes := []string{domain.DeliverySucceeded, domain.DeliveryDispatchFailed}
			for k := range counts {
				if k != domain.DeliverySucceeded && k != domain.DeliveryDispatchFailed {
					outcomes = append(outcomes, k)
				}
			}
			sort.Strings(outcomes[2:])

			printf(cmd, "since %s\n", from.Format(time.RFC3339))
			for _, o := range outcomes {
				printf(cmd, "  %-16s %d\n", o, counts[o])
			}
			if latest != nil {
				printf(cmd, "latest %s\n", latest.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
	dbFlag(cmd, &path)
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "look-back window")
	return cmd
}

func newDeliveriesCmd() *cobra.Command {
	var (
		path, clientKey string
		limit           int
	)
	cmd := &cobra.Command{
		Use:   "deliveries",
		Short: "List recent deliveries for one client",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if clientKey == "" {
				return errors.New("--client is required (e.g. ip:203.0.113.7)")
			}
			db, err := openLog(path)
			if err != nil {
				return err
			}
			rows, err := repo.ListDeliveries(cmd.Context(), db, clientKey, limit)
			if err != nil {
				return fmt.Errorf("list deliveries: %w", err)
			}
			if len(rows) == 0 {
				printf(cmd, "no deliveries for %s\n", clientKey)
				return nil
			}
			for _, d := range rows {
				step := d.FailedStep
				if step == "" {
					step = "-"
				}
				printf(cmd, "%s  %s  %-16s %-12s %5dms  %s\n",
					d.CreatedAt.UTC().Format(time.RFC3339), d.ID, d.Outcome, step, d.DurationMS, d.RequestID)
			}
			return nil
		},
	}
	dbFlag(cmd, &path)
	cmd.Flags().StringVar(&clientKey, "client", "", "client key as logged by the server")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func newDeliveryCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "delivery <id>",
		Short: "Show one delivery record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openLog(path)
			if err != nil {
				return err
			}
			d, err := repo.GetDelivery(cmd.Context(), db, args[0])
			if errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("delivery %s not found", args[0])
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		},
	}
	dbFlag(cmd, &path)
	return cmd
}
