// Command tmpl renders template files from the command line and offers an
// interactive prompt for trying out snippets.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/pkg/profile"

	tmpl "github.com/daios-ai/tmpl"
)

const appName = "tmpl"

type CLI struct {
	Profile string `help:"Write a profile to the current directory (cpu or mem)." enum:"off,cpu,mem" default:"off"`

	Render  renderCmd  `cmd:"" default:"withargs" help:"Render a template file."`
	Repl    replCmd    `cmd:"" help:"Start the interactive prompt."`
	Version versionCmd `cmd:"" help:"Print the version."`
}

type renderCmd struct {
	Template string   `arg:"" help:"Template file to render." type:"existingfile"`
	Vars     []string `short:"f" help:"YAML file(s) with template variables." type:"existingfile"`
	Set      []string `short:"s" help:"Set a string variable as name=value."`
	Out      string   `short:"o" help:"Write output to a file instead of stdout."`
	Root     string   `help:"Template root for includes (defaults to the template's directory)." type:"existingdir"`
}

type replCmd struct {
	Vars []string `short:"f" help:"YAML file(s) with template variables." type:"existingfile"`
	Set  []string `short:"s" help:"Set a string variable as name=value."`
}

type versionCmd struct{}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name(appName),
		kong.Description("Render text templates."),
		kong.UsageOnError(),
	)

	switch cli.Profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	kctx.FatalIfErrorf(kctx.Run())
}

func (c *versionCmd) Run() error {
	fmt.Println(tmpl.Version)
	return nil
}

func (c *renderCmd) Run() error {
	vars, err := loadVars(c.Vars, c.Set)
	if err != nil {
		return err
	}

	root := c.Root
	if root == "" {
		root = filepath.Dir(c.Template)
	}
	rel, err := filepath.Rel(root, c.Template)
	if err != nil {
		return fmt.Errorf("%s is not under root %s: %w", c.Template, root, err)
	}

	env := tmpl.NewEnvironment(tmpl.WithLoader(tmpl.FSLoader{FS: os.DirFS(root)}))
	t, err := env.GetTemplate(filepath.ToSlash(rel))
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := t.RenderTo(ctx, out, vars); err != nil {
		return err
	}
	return nil
}
