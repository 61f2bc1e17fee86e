package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/repwatch/internal/store"
)

func newSessionsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"s"},
		Short:   "Inspect recorded sessions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(root, cmd, func(st *store.Store) error {
				sessions, err := st.Sessions().List()
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(root.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tSAMPLES\tEVENTS\tEPISODES\tSOURCE")
				for _, s := range sessions {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
						s.ID, s.StartedAt.Format(time.DateTime), duration(s),
						s.Samples, s.Events, s.Episodes, s.Source)
				}
				return tw.Flush()
			})
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a session and its detections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(root, cmd, func(st *store.Store) error {
				s, err := st.Sessions().GetByID(args[0])
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("session %s not found", args[0])
				}
				if err != nil {
					return err
				}
				detections, err := st.Detections().ListBySession(s.ID)
				if err != nil {
					return err
				}

				out := root.out
				fmt.Fprintf(out, "Session:   %s\n", s.ID)
				fmt.Fprintf(out, "Source:    %s\n", s.Source)
				fmt.Fprintf(out, "Detector:  window=%d threshold=%g mode=%s\n", s.WindowSize, s.Threshold, s.CountMode)
				fmt.Fprintf(out, "Started:   %s\n", s.StartedAt.Format(time.DateTime))
				fmt.Fprintf(out, "Duration:  %s\n", duration(s))
				fmt.Fprintf(out, "Samples:   %d (%d invalid)\n", s.Samples, s.InvalidSamples)
				fmt.Fprintf(out, "Events:    %d\n", s.Events)
				fmt.Fprintf(out, "Episodes:  %d\n", s.Episodes)

				if len(detections) == 0 {
					return nil
				}
				fmt.Fprintln(out)
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SEQ\tSAMPLE\tSTD_DEV\tEPISODE_START\tDETECTED_AT")
				for _, d := range detections {
					fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%t\t%s\n",
						d.Seq, d.Sample, d.StdDev, d.EpisodeStart, d.DetectedAt.Format(time.RFC3339Nano))
				}
				return tw.Flush()
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session and its detections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(root, cmd, func(st *store.Store) error {
				err := st.Sessions().Delete(args[0])
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("session %s not found", args[0])
				}
				return err
			})
		},
	}

	cmd.AddCommand(listCmd, showCmd, deleteCmd)
	return cmd
}

func withStore(root *rootOptions, cmd *cobra.Command, fn func(*store.Store) error) error {
	cfg, err := root.load(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func duration(s *store.Session) string {
	if s.EndedAt == nil {
		return "running"
	}
	return s.EndedAt.Sub(s.StartedAt).Round(time.Millisecond).String()
}
