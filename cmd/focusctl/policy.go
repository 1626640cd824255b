package main

import (
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/spf13/cobra"

	"focusroom/internal/core"
)

func (a *cli) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check URL",
		Short: "Ask whether a URL would be blocked right now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			verdict, err := a.api(cmd).CheckNavigation(ctx, args[0])
			if err != nil {
				return err
			}
			return a.print(cmd, verdict, func(w io.Writer) {
				if !verdict.Blocked {
					fmt.Fprintf(w, "allowed (%s)\n", verdict.Reason)
					return
				}
				fmt.Fprintf(w, "blocked by %s %s %q\n", verdict.Category, verdict.MatchType, verdict.MatchValue)
			})
		},
	}
}

func (a *cli) lastBlockedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last-blocked",
		Short: "Show the last blocked navigation of this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			reason, err := a.api(cmd).LastBlocked(ctx)
			if err != nil {
				return err
			}
			return a.print(cmd, reason, func(w io.Writer) {
				if reason == nil {
					fmt.Fprintln(w, "nothing blocked yet")
					return
				}
				fmt.Fprintf(w, "%s  %s (%s %q) at %s\n",
					reason.URL, reason.Category, reason.MatchType, reason.MatchValue, reason.At.Local().Format("15:04:05"))
			})
		},
	}
}

func (a *cli) grantCmd() *cobra.Command {
	var minutes int

	cmd := &cobra.Command{
		Use:   "grant URL",
		Short: "Temporarily allow one site for this session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			grant, err := a.api(cmd).GrantAccess(ctx, args[0], minutes)
			if err != nil {
				return err
			}
			return a.print(cmd, grant, func(w io.Writer) {
				fmt.Fprintf(w, "%s allowed until %s\n", grant.Domain, grant.EndTime.Local().Format("15:04:05"))
			})
		},
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 5, "grant length in minutes")
	return cmd
}

func (a *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show rule counts per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			stats, err := a.api(cmd).CatalogStats(ctx)
			if err != nil {
				return err
			}
			return a.print(cmd, stats, func(w io.Writer) {
				for _, s := range stats {
					state := "on"
					if !s.Enabled {
						state = "off"
					}
					loaded := ""
					if !s.Loaded {
						loaded = "  (not loaded)"
					}
					fmt.Fprintf(w, "%-14s %-3s domains=%-5d keywords=%d%s\n", s.Category, state, s.Domains, s.Keywords, loaded)
				}
			})
		},
	}
}

func (a *cli) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the blocking settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editSettings(cmd, nil)
		},
	}

	edit := func(use, short string, apply func(s *core.Settings, value string)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.editSettings(cmd, func(s *core.Settings) { apply(s, args[0]) })
			},
		}
	}

	cmd.AddCommand(
		edit("enable CATEGORY", "Enable a category", func(s *core.Settings, v string) {
			setCategory(s, v, true)
		}),
		edit("disable CATEGORY", "Disable a category", func(s *core.Settings, v string) {
			setCategory(s, v, false)
		}),
		edit("add-domain DOMAIN", "Block a custom domain", func(s *core.Settings, v string) {
			s.CustomDomains = append(s.CustomDomains, v)
		}),
		edit("remove-domain DOMAIN", "Stop blocking a custom domain", func(s *core.Settings, v string) {
			s.CustomDomains = slices.DeleteFunc(s.CustomDomains, func(d string) bool { return d == v })
		}),
		edit("add-keyword KEYWORD", "Block URLs containing a keyword", func(s *core.Settings, v string) {
			s.CustomKeywords = append(s.CustomKeywords, v)
		}),
		edit("remove-keyword KEYWORD", "Stop blocking a keyword", func(s *core.Settings, v string) {
			s.CustomKeywords = slices.DeleteFunc(s.CustomKeywords, func(k string) bool { return k == v })
		}),
	)
	return cmd
}

// editSettings fetches the settings, applies change when non-nil and prints the result
func (a *cli) editSettings(cmd *cobra.Command, change func(s *core.Settings)) error {
	ctx, cancel := a.context(cmd)
	defer cancel()

	api := a.api(cmd)
	settings, err := api.GetSettings(ctx)
	if err != nil {
		return err
	}
	if change != nil {
		change(settings)
		if settings, err = api.UpdateSettings(ctx, *settings); err != nil {
			return err
		}
	}

	return a.print(cmd, settings, func(w io.Writer) {
		categories := make([]string, 0, len(settings.EnabledCategories))
		for id := range settings.EnabledCategories {
			categories = append(categories, id)
		}
		sort.Strings(categories)
		for _, id := range categories {
			state := "on"
			if !settings.EnabledCategories[id] {
				state = "off"
			}
			fmt.Fprintf(w, "%-14s %s\n", id, state)
		}
		fmt.Fprintf(w, "custom domains:  %v\n", settings.CustomDomains)
		fmt.Fprintf(w, "custom keywords: %v\n", settings.CustomKeywords)
	})
}

// setCategory toggles one category. A nil map means every category is on, so it is
// expanded first.
func setCategory(s *core.Settings, id string, enabled bool) {
	if s.EnabledCategories == nil {
		s.EnabledCategories = core.DefaultSettings().EnabledCategories
	}
	s.EnabledCategories[id] = enabled
}
