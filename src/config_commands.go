package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, ctx)
		},
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigSetSyncRepoCommand(ctx))
	configCmd.AddCommand(newConfigSetWebDAVCommand(ctx))

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, ctx)
		},
	}
}

func showConfig(cmd *cobra.Command, ctx *commandContext) error {
	manager, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config directory: %s\n", manager.Dir())
	fmt.Fprintf(out, "Config file: %s\n", manager.ConfigFile())
	fmt.Fprintln(out, manager.GetJSON())
	return nil
}

func newConfigSetSyncRepoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-sync-repo URL",
		Short: "Set the shared git repository holding the metadata tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			url := strings.TrimSpace(args[0])
			if url == "" {
				return errors.New("repository URL cannot be empty")
			}
			if err := manager.SetSyncRepo(url); err != nil {
				return fmt.Errorf("save sync repository: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sync repository set to %s\n", url)
			return nil
		},
	}
}

func newConfigSetWebDAVCommand(ctx *commandContext) *cobra.Command {
	var host, user, password string

	cmd := &cobra.Command{
		Use:   "set-webdav",
		Short: "Store WebDAV host and credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := manager.SetWebDAV(host, user, password); err != nil {
				return fmt.Errorf("save webdav settings: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "WebDAV settings saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "WebDAV server URL used by a bare --webdav")
	cmd.Flags().StringVar(&user, "user", "", "WebDAV username")
	cmd.Flags().StringVar(&password, "password", "", "WebDAV password")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
