package console

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valkyrjaio/valkyrja"
	"github.com/valkyrjaio/valkyrja/pkg/config"
	"github.com/valkyrjaio/valkyrja/pkg/orm"
)

func (c *Console) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := append(slices.Clone(c.runOpts), valkyrja.WithContext(cmd.Context()))
			return c.app.Run(addr, opts...)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", c.address, "listen address")
	return cmd
}

func (c *Console) newRoutesCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List registered routes",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			var rows [][]string
			for _, r := range c.app.Routes() {
				if filter != "" && !strings.Contains(r.Path, filter) && !strings.Contains(r.Name, filter) {
					continue
				}
				path := r.Path
				if r.Secure {
					path += " (https)"
				}
				if r.RedirectTo != "" {
					path += " -> " + r.RedirectTo
				}
				rows = append(rows, []string{
					strings.Join(r.Methods, "|"),
					path,
					r.Name,
					strings.Join(r.Middleware, ", "),
				})
			}
			if len(rows) == 0 {
				c.io.Warning("No routes found")
				return nil
			}
			c.io.Table([]string{"Method", "Path", "Name", "Middleware"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "only show routes whose path or name contains this")
	return cmd
}

func (c *Console) newContainerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "container",
		Short: "List service identifiers",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			ids := c.app.Container().IDs()
			if len(ids) == 0 {
				c.io.Warning("The container is empty")
				return nil
			}
			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, []string{id})
			}
			c.io.Table([]string{"Service"}, rows)
			return nil
		},
	}
}

func (c *Console) newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: c.withMigrator(func(ctx context.Context, m *orm.Migrator) error {
			if err := m.Up(ctx); err != nil {
				return err
			}
			return c.reportVersion(ctx, m, "Migrated")
		}),
	}

	var force bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		Args:  cobra.NoArgs,
		RunE: c.withMigrator(func(ctx context.Context, m *orm.Migrator) error {
			if !force {
				ok, err := c.io.Confirm("Roll back the latest migration?", false)
				if err != nil {
					return err
				}
				if !ok {
					return ErrAborted
				}
			}
			if err := m.Down(ctx); err != nil {
				return err
			}
			return c.reportVersion(ctx, m, "Rolled back")
		}),
	}
	down.Flags().BoolVar(&force, "force", false, "skip the confirmation prompt")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Args:  cobra.NoArgs,
		RunE: c.withMigrator(func(ctx context.Context, m *orm.Migrator) error {
			if err := m.Status(ctx); err != nil {
				return err
			}
			return c.reportVersion(ctx, m, "Current")
		}),
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func (c *Console) withMigrator(fn func(context.Context, *orm.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if c.db == nil {
			return ErrNoDatabase
		}
		if c.migrations == nil {
			return ErrNoMigrations
		}
		m := orm.NewMigrator(c.db, c.migrations,
			orm.WithMigrationsDir(c.migrDir),
			orm.WithMigrationLogger(c.app.Logger()),
		)
		return fn(cmd.Context(), m)
	}
}

func (c *Console) reportVersion(ctx context.Context, m *orm.Migrator, verb string) error {
	v, err := m.Version(ctx)
	if err != nil {
		return err
	}
	c.io.Success("%s: schema version %d", verb, v)
	return nil
}

func (c *Console) newConfigCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if c.config == nil {
				return ErrNoConfig
			}
			data, err := config.Encode(format, c.config)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = c.io.Out().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or toml")
	return cmd
}
