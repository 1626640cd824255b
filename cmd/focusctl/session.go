package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"focusroom/internal/api/dto"
)

func (a *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the daemon is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			health, err := a.api(cmd).Health(ctx)
			if err != nil {
				return err
			}
			return a.print(cmd, health, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s (%s)\n", health["service"], health["status"], health["version"])
			})
		},
	}
}

func (a *cli) startCmd() *cobra.Command {
	var minutes int
	var goal string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a focus session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			session, err := a.api(cmd).StartSession(ctx, minutes, goal)
			if err != nil {
				return err
			}
			return a.printSession(cmd, session)
		},
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 25, "session length in minutes")
	cmd.Flags().StringVarP(&goal, "goal", "g", "", "what this session is for")
	return cmd
}

func (a *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			session, err := a.api(cmd).GetSession(ctx)
			if err != nil {
				return err
			}
			return a.printSession(cmd, session)
		},
	}
}

func (a *cli) pauseCmd() *cobra.Command {
	var minutes int

	cmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause the running session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			session, err := a.api(cmd).PauseSession(ctx, minutes)
			if err != nil {
				return err
			}
			return a.printSession(cmd, session)
		},
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 5, "intended pause length (informational)")
	return cmd
}

func (a *cli) resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			session, err := a.api(cmd).ResumeSession(ctx)
			if err != nil {
				return err
			}
			return a.printSession(cmd, session)
		},
	}
}

func (a *cli) stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "End the session early",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			session, err := a.api(cmd).StopSession(ctx)
			if err != nil {
				return err
			}
			return a.printSession(cmd, session)
		},
	}
}

func (a *cli) completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete",
		Short: "Complete the session if its time is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			resp, err := a.api(cmd).CompleteSession(ctx)
			if err != nil {
				return err
			}
			return a.print(cmd, resp, func(w io.Writer) {
				if !resp.Completed {
					fmt.Fprintln(w, "session is not due")
					return
				}
				writeSession(w, resp.Session)
			})
		},
	}
}

func (a *cli) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			history, err := a.api(cmd).ListHistory(ctx, limit)
			if err != nil {
				return err
			}
			return a.print(cmd, history, func(w io.Writer) {
				if len(history) == 0 {
					fmt.Fprintln(w, "no finished sessions")
					return
				}
				for _, s := range history {
					start := ""
					if s.StartTime != nil {
						start = s.StartTime.Local().Format("2006-01-02 15:04")
					}
					fmt.Fprintf(w, "%s  %-9s  %-8s  blocked=%d overrides=%d  %s\n",
						start, s.State, seconds(s.ActiveSeconds), s.BlockedAttempts, s.OverrideCount, s.Goal)
				}
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of sessions to show (0 for all)")
	return cmd
}

func (a *cli) printSession(cmd *cobra.Command, s *dto.Session) error {
	return a.print(cmd, s, func(w io.Writer) { writeSession(w, s) })
}

func writeSession(w io.Writer, s *dto.Session) {
	if s == nil || s.ID == "" {
		fmt.Fprintln(w, "no session")
		return
	}
	fmt.Fprintf(w, "session  %s\n", s.ID)
	fmt.Fprintf(w, "state    %s\n", s.State)
	if s.Goal != "" {
		fmt.Fprintf(w, "goal     %s\n", s.Goal)
	}
	fmt.Fprintf(w, "focused  %s of %s\n", seconds(s.ActiveSeconds), seconds(s.PlannedSeconds))
	if s.State == "active" || s.State == "paused" {
		fmt.Fprintf(w, "left     %s\n", seconds(s.RemainingSeconds))
	}
	fmt.Fprintf(w, "blocked  %d\n", s.BlockedAttempts)
	fmt.Fprintf(w, "grants   %d\n", s.OverrideCount)
}

func seconds(n int64) string {
	return (time.Duration(n) * time.Second).String()
}
