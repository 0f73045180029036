package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"forge/internal/ipc"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database utilities",
	}

	var jsonOutput bool
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check database integrity and schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DatabaseHealth()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				fmt.Fprintln(stdout, renderStatusLine("Path", healthInfo, resp.DBPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Exists", boolKind(resp.DatabaseExists), yesNo(resp.DatabaseExists), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Readable", boolKind(resp.DatabaseReadable), yesNo(resp.DatabaseReadable), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Integrity", boolKind(resp.IntegrityCheck), yesNo(resp.IntegrityCheck), colorize))
				if len(resp.MissingTables) > 0 {
					fmt.Fprintln(stdout, renderStatusLine("Missing tables", healthError, strings.Join(resp.MissingTables, ", "), colorize))
				}
				if resp.Error != "" {
					fmt.Fprintln(stdout, renderStatusLine("Error", healthError, resp.Error, colorize))
					return fmt.Errorf("database health check failed")
				}
				return nil
			})
		},
	}
	healthCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output health as JSON")

	dbCmd.AddCommand(healthCmd)
	return dbCmd
}

func boolKind(ok bool) healthState {
	if ok {
		return healthOK
	}
	return healthError
}
