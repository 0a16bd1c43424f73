package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/lurker/internal/settings"
)

func newSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Turn gesture capture on or off",
		Long: `Read or write the search_enabled flag in the settings file.

A running lurker picks up changes without a restart.`,
	}

	set := func(enabled bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Settings.Path
			if err := settings.Save(path, settings.Settings{SearchEnabled: enabled}); err != nil {
				return err
			}
			a.logger.Info("search enablement saved", "enabled", enabled, "path", path)
			fmt.Fprintf(cmd.OutOrStdout(), "search %s\n", onOff(enabled))
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "on",
			Short: "Enable gesture capture",
			Args:  cobra.NoArgs,
			RunE:  set(true),
		},
		&cobra.Command{
			Use:   "off",
			Short: "Disable gesture capture",
			Args:  cobra.NoArgs,
			RunE:  set(false),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show whether gesture capture is enabled",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path := a.cfg.Settings.Path
				s, err := settings.Load(path)
				source := path
				switch {
				case errors.Is(err, os.ErrNotExist):
					s.SearchEnabled = a.cfg.Capture.Enabled
					source = "config default"
				case err != nil:
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "search %s (%s)\n", onOff(s.SearchEnabled), source)
				return nil
			},
		},
	)
	return cmd
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
