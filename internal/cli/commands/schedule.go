package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/salesdash/internal/api/client"
	"github.com/spf13/cobra"
)

func NewScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule",
		Short:   "Scheduled report commands",
		Aliases: []string{"schedules"},
	}

	cmd.AddCommand(newScheduleCreateCommand())
	cmd.AddCommand(newScheduleListCommand())

	return cmd
}

func newScheduleCreateCommand() *cobra.Command {
	var (
		req     client.ScheduleRequest
		filters filterFlags
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Email a filtered report every week",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := filters.query()
			req.Region, req.Product, req.StartDate, req.EndDate = q.Region, q.Product, q.StartDate, q.EndDate

			id, err := NewClient().CreateSchedule(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to create schedule: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schedule %d created\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.TargetEmail, "to", "t", "", "Recipient email")
	cmd.Flags().StringVar(&req.Freq, "freq", "weekly", "Frequency (weekly)")
	filters.register(cmd)
	cmd.MarkFlagRequired("to")

	return cmd
}

func newScheduleListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List your schedules",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			schedules, err := NewClient().ListSchedules(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list schedules: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tTARGET\tREGION\tPRODUCT\tFROM\tTO\tFREQ\tNEXT RUN")
			for _, s := range schedules {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					s.ID,
					s.TargetEmail,
					orDash(s.Region),
					orDash(s.Product),
					dateOrDash(s.StartDate),
					dateOrDash(s.EndDate),
					s.Frequency,
					timeOrDash(s.NextRunAt),
				)
			}
			return w.Flush()
		},
	}
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func timeOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}
