// Command contact submits the portfolio contact form from a terminal and
// inspects the server's delivery log.
//
//	contact submit --name "Jane Doe" --email jane@example.com \
//	    --subject "Project Inquiry" --message "I'd like to discuss a project."
//	contact stats --db contact.db --since 24h
//	contact deliveries --db contact.db --client ip:203.0.113.7
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Aman-02003/portfolio-contact/internal/sysutil"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "contact",
		Short:         "Portfolio contact form client",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			lvl := "warn"
			if verbose {
				lvl = "debug"
			}
			l, _, err := sysutil.SetupLogger(sysutil.LogOptions{Level: lvl, Pretty: true}, errOut)
			if err != nil {
				return err
			}
			cmd.SetContext(l.WithContext(cmd.Context()))
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(newSubmitCmd(), newStatsCmd(), newDeliveriesCmd(), newDeliveryCmd())
	return root
}

func logger(cmd *cobra.Command) *zerolog.Logger { return zerolog.Ctx(cmd.Context()) }

func printf(cmd *cobra.Command, format string, a ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, a...)
}
