package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/yuya-takeyama/sure-backup/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the backup set config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configArg(args)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Default().SaveToPath(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Check a config file and list its sets and units",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configArg(args)
			if err != nil {
				return err
			}
			cfg, err := config.LoadFromPath(path)
			if err != nil {
				return err
			}
			return describeConfig(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}

func configArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if path := config.Path(""); path != "" {
		return path, nil
	}
	return "", errors.New("config path required (argument or $" + config.EnvPath + ")")
}

func describeConfig(w io.Writer, cfg *config.Config) error {
	for _, s := range cfg.Sets {
		fmt.Fprintf(w, "%s\n", s.Name)
		if s.Description != "" {
			fmt.Fprintf(w, "  %s\n", s.Description)
		}
		for _, u := range s.Units {
			job, err := u.Job(false)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  - %s: %s -> %s [%s, %s]\n", u.Name, u.Source, u.Target, job.Task.Mode, job.Kind)
		}
	}
	return nil
}
