package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zberg/go-vcontrold/pkg/catalog"
	"github.com/zberg/go-vcontrold/pkg/output"
	"github.com/zberg/go-vcontrold/pkg/vcontrold"
)

func init() {
	catalogInitCmd.Flags().Bool("force", false, "overwrite an existing catalog")

	catalogCmd.AddCommand(catalogInitCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(statusCmd("enable", vcontrold.StatusEnabled))
	catalogCmd.AddCommand(statusCmd("disable", vcontrold.StatusDisabled))
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and edit the command catalog",
}

var catalogInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		_, err := os.Stat(cfg.CatalogPath)
		switch {
		case err == nil && !force:
			return fmt.Errorf("catalog %s already exists, use --force to overwrite", cfg.CatalogPath)
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return err
		}

		if err := os.WriteFile(cfg.CatalogPath, catalog.DefaultTemplate(), 0o644); err != nil {
			return fmt.Errorf("write catalog: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default catalog written to %s\n", cfg.CatalogPath)
		return nil
	},
}

// commandView is the listing form of a catalog command.
type commandView struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Unit        string   `json:"unit" yaml:"unit"`
	Groups      []string `json:"groups" yaml:"groups"`
	Devices     []int    `json:"devices" yaml:"devices"`
	Status      string   `json:"status" yaml:"status"`
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the catalog commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := openCatalog()
		if err != nil {
			return err
		}

		views := make([]commandView, 0, len(cat.Names()))
		for _, name := range cat.Names() {
			c, _ := cat.Get(name)
			views = append(views, commandView{
				Name:        c.Name,
				Description: c.Description,
				Unit:        c.Unit,
				Groups:      c.Groups,
				Devices:     c.Devices,
				Status:      string(c.Status),
			})
		}

		w := cmd.OutOrStdout()
		if isStructured(cfg.Format) {
			return writeStructured(w, views)
		}
		rows := make([][]string, 0, len(views))
		for _, cv := range views {
			devices := make([]string, len(cv.Devices))
			for i, d := range cv.Devices {
				devices[i] = strconv.Itoa(d)
			}
			rows = append(rows, []string{cv.Name, cv.Unit, strings.Join(cv.Groups, ","), strings.Join(devices, ","), cv.Status, cv.Description})
		}
		return output.WriteTable(w, []string{"Command", "Unit", "Groups", "Devices", "Status", "Description"}, rows, cfg.Output.Color)
	},
}

// statusCmd builds the enable and disable subcommands.
func statusCmd(verb string, status vcontrold.Status) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " [command...]",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " catalog commands",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := openCatalog()
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := cat.SetStatus(name, status); err != nil {
					return err
				}
			}
			if err := cat.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", status, strings.Join(args, ", "))
			return nil
		},
	}
}
