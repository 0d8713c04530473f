package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zberg/go-vcontrold/pkg/catalog"
	"github.com/zberg/go-vcontrold/pkg/output"
	"github.com/zberg/go-vcontrold/pkg/vcontrold"
)

func init() {
	getCmd.Flags().StringSliceP("group", "g", nil, "only read commands of these groups")
	getCmd.Flags().Int("max-values", 0, "stop after this many commands, 0 reads all")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(unitsCmd)
	rootCmd.AddCommand(groupsCmd)
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Read all enabled commands, or those of the given groups",
	Long: `Read all enabled catalog commands valid for the identified heating control.

Each command takes vcontrold a few seconds, so a full run can take minutes.
Commands the heating control rejects are disabled in the catalog file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		groups, _ := cmd.Flags().GetStringSlice("group")
		maxValues, _ := cmd.Flags().GetInt("max-values")

		return withClient(cmd.Context(), runGet(groups, maxValues), cmd.OutOrStdout())
	},
}

// runGet returns the batch of the get command.
func runGet(groups []string, maxValues int) func(context.Context, *vcontrold.Client) (*vcontrold.Report, error) {
	return func(ctx context.Context, client *vcontrold.Client) (*vcontrold.Report, error) {
		if err := applyGroups(client, groups); err != nil {
			return &vcontrold.Report{}, err
		}
		return client.Run(ctx, vcontrold.BatchOptions{MaxValues: maxValues})
	}
}

var execCmd = &cobra.Command{
	Use:   "exec [command...]",
	Short: "Read the given catalog commands",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, client *vcontrold.Client) (*vcontrold.Report, error) {
			return client.RunCommands(ctx, args...)
		}, cmd.OutOrStdout())
	},
}

type deviceInfo struct {
	vcontrold.DeviceIdentity `yaml:",inline"`
	Identified               bool   `json:"identified" yaml:"identified"`
	Handshake                string `json:"handshake" yaml:"handshake"`
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Identify the heating control",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.requireHost(); err != nil {
			return err
		}
		client, err := vcontrold.NewClient(cmd.Context(), cfg.Host, vcontrold.NewMemoryCatalog(), cfg.clientOptions()...)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", cfg.Host, err)
		}
		defer client.Close()

		id, ok := client.Identity()
		info := deviceInfo{DeviceIdentity: id, Identified: ok, Handshake: client.HandshakeState().String()}

		w := cmd.OutOrStdout()
		if isStructured(cfg.Format) {
			return writeStructured(w, info)
		}
		return output.WriteTable(w,
			[]string{"Model", "ID", "Protocol", "Handshake"},
			[][]string{{id.Model, strconv.Itoa(id.ID), id.Protocol, info.Handshake}},
			cfg.Output.Color)
	},
}

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List the units used in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := openCatalog()
		if err != nil {
			return err
		}

		units := vcontrold.Units(cat)
		w := cmd.OutOrStdout()
		if isStructured(cfg.Format) {
			return writeStructured(w, units)
		}
		rows := make([][]string, 0, len(units))
		for _, u := range units {
			rows = append(rows, []string{u, strconv.FormatBool(vcontrold.ParseUnit(u).Known())})
		}
		return output.WriteTable(w, []string{"Unit", "Parsed"}, rows, cfg.Output.Color)
	},
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List the catalog groups and their commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := openCatalog()
		if err != nil {
			return err
		}

		perGroup := vcontrold.ItemsPerGroup(cat)
		w := cmd.OutOrStdout()
		if isStructured(cfg.Format) {
			return writeStructured(w, perGroup)
		}
		rows := make([][]string, 0, len(perGroup))
		for _, g := range vcontrold.Groups(cat) {
			items := perGroup[g]
			rows = append(rows, []string{g, strconv.Itoa(items.NumItems), strings.Join(items.Items, ", ")})
		}
		return output.WriteTable(w, []string{"Group", "Items", "Commands"}, rows, cfg.Output.Color)
	},
}

func openCatalog() (*catalog.File, error) {
	return catalog.Open(cfg.CatalogPath, catalog.WithLogger(cfg.Logger))
}

// withClient opens the catalog, connects, runs fn, saves status changes
// and prints the report. A partial report is printed before a run error
// is returned.
func withClient(ctx context.Context, fn func(context.Context, *vcontrold.Client) (*vcontrold.Report, error), w io.Writer) error {
	if err := cfg.requireHost(); err != nil {
		return err
	}
	cat, err := openCatalog()
	if err != nil {
		return err
	}

	client, err := vcontrold.NewClient(ctx, cfg.Host, cat, cfg.clientOptions()...)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Host, err)
	}
	defer client.Close()

	report, runErr := fn(ctx, client)

	if err := cat.Save(); err != nil {
		cfg.Logger.Error("failed to save catalog", "path", cat.Path(), "error", err)
	}
	if runErr == nil || report.Len() > 0 {
		if err := output.WriteReport(w, cfg.Format, report.Record(), cfg.Output); err != nil {
			return err
		}
		if cfg.Format == output.FormatCSV {
			fmt.Fprintln(w)
		}
	}
	return runErr
}

// applyGroups sets the group filter. Requesting only groups the catalog
// does not know is an error instead of an unfiltered run.
func applyGroups(client *vcontrold.Client, groups []string) error {
	if len(groups) == 0 {
		return nil
	}
	if len(client.SetGroups(groups...)) == 0 {
		return fmt.Errorf("no such group: %s", strings.Join(groups, ", "))
	}
	return nil
}

func isStructured(f output.Format) bool {
	return f == output.FormatJSON || f == output.FormatYAML
}

func writeStructured(w io.Writer, v any) error {
	if cfg.Format == output.FormatYAML {
		return output.WriteYAML(w, v)
	}
	return output.WriteJSON(w, v)
}
