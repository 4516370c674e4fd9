package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	tmpl "github.com/daios-ai/tmpl"
)

const (
	historyFile = ".tmpl_history"
	promptMain  = "==> "
)

var banner = fmt.Sprintf("tmpl %s\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit.", tmpl.Version)

var helpText = `
Commands:
  :vars <file>   Load variables from a YAML file
  :help          Show this help
  :quit          Exit

Anything else is rendered as a template snippet.
`

func red(s string) string  { return "\x1b[31m" + s + "\x1b[0m" }
func blue(s string) string { return "\x1b[94m" + s + "\x1b[0m" }

func (c *replCmd) Run() error {
	fmt.Println(banner)

	vars, err := loadVars(c.Vars, c.Set)
	if err != nil {
		return err
	}

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	env := tmpl.NewEnvironment(tmpl.WithLoader(tmpl.FSLoader{FS: os.DirFS(".")}))

	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			continue
		}
		code := strings.TrimSpace(line)
		if code == "" {
			continue
		}

		if strings.HasPrefix(code, ":") {
			switch cmd, arg, _ := strings.Cut(code, " "); strings.ToLower(cmd) {
			case ":quit":
				return nil
			case ":help":
				fmt.Print(helpText)
			case ":vars":
				arg = strings.TrimSpace(arg)
				if arg == "" {
					fmt.Println("usage: :vars <file>")
					continue
				}
				more, err := loadVars([]string{arg}, nil)
				if err != nil {
					fmt.Fprintln(os.Stderr, red(err.Error()))
					continue
				}
				for k, v := range more {
					vars[k] = v
				}
			default:
				fmt.Println("unknown command. Type :help for help.")
			}
			continue
		}

		t, err := env.ParseString("repl", line)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			continue
		}
		res, err := t.Render(context.Background(), vars)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			continue
		}
		fmt.Println(blue(res.Output))
		ln.AppendHistory(line)
	}
}
