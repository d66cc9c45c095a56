// Package console builds the cobra command tree that operates a Valkyrja
// application: serving it, inspecting its routes and container, running
// migrations and printing the effective configuration.
//
//	root := console.New(app,
//	    console.WithDB(db),
//	    console.WithMigrations(migrations, "migrations"),
//	    console.WithConfig(&cfg),
//	)
//	if err := root.ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package console

import (
	"errors"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/valkyrjaio/valkyrja"
	"github.com/valkyrjaio/valkyrja/pkg/cli"
	"github.com/valkyrjaio/valkyrja/pkg/orm"
)

// Errors.
var (
	ErrNoDatabase   = errors.New("console: no database configured")
	ErrNoMigrations = errors.New("console: no migrations configured")
	ErrNoConfig     = errors.New("console: no configuration to print")
	ErrAborted      = errors.New("console: aborted")
)

// DefaultAddress is the serve command's default listen address.
const DefaultAddress = ":8080"

// Console holds what the commands operate on.
type Console struct {
	app        *valkyrja.App
	io         *cli.IO
	db         *orm.DB
	migrations fs.FS
	migrDir    string
	config     any
	name       string
	version    string
	address    string
	runOpts    []valkyrja.RunOption
}

// Option configures a Console.
type Option func(*Console)

// WithIO sets the console IO. Defaults to cli.New().
func WithIO(io *cli.IO) Option {
	return func(c *Console) {
		if io != nil {
			c.io = io
		}
	}
}

// WithDB enables the migrate commands.
func WithDB(db *orm.DB) Option {
	return func(c *Console) { c.db = db }
}

// WithMigrations sets the filesystem and directory holding goose migrations.
func WithMigrations(fsys fs.FS, dir string) Option {
	return func(c *Console) {
		c.migrations = fsys
		c.migrDir = dir
	}
}

// WithConfig sets the configuration struct the config command prints.
func WithConfig(cfg any) Option {
	return func(c *Console) { c.config = cfg }
}

// WithName sets the root command name. Default: "valkyrja".
func WithName(name string) Option {
	return func(c *Console) {
		if name != "" {
			c.name = name
		}
	}
}

// WithVersion sets the version reported by --version.
func WithVersion(v string) Option {
	return func(c *Console) { c.version = v }
}

// WithAddress sets the default listen address of the serve command.
func WithAddress(addr string) Option {
	return func(c *Console) {
		if addr != "" {
			c.address = addr
		}
	}
}

// WithRunOptions passes options to App.Run from the serve command.
func WithRunOptions(opts ...valkyrja.RunOption) Option {
	return func(c *Console) { c.runOpts = append(c.runOpts, opts...) }
}

// New returns the root command for app.
func New(app *valkyrja.App, opts ...Option) *cobra.Command {
	c := &Console{
		app:     app,
		name:    "valkyrja",
		address: DefaultAddress,
		migrDir: ".",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.io == nil {
		c.io = cli.New()
	}

	root := &cobra.Command{
		Use:           c.name,
		Short:         "Operate the " + c.name + " application",
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.io.Out())

	root.AddCommand(
		c.newServeCmd(),
		c.newRoutesCmd(),
		c.newContainerCmd(),
		c.newMigrateCmd(),
		c.newConfigCmd(),
	)
	return root
}
