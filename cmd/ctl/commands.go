package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cpu_throttle/internal/client"
	"cpu_throttle/internal/config"
	"cpu_throttle/internal/models"
	"cpu_throttle/internal/protocol"
	"cpu_throttle/internal/service"

	"github.com/spf13/cobra"
)

const installedPrefix = "OK: installed "

var errDaemon = errors.New("daemon returned an error")

// settings accepted by "set <setting> <value>", mapped to socket verbs.
var settingVerbs = map[string]string{
	"safe-max":       "set-safe-max",
	"safe-min":       "set-safe-min",
	"temp-max":       "set-temp-max",
	"thermal-zone":   "set-thermal-zone",
	"use-avg-temp":   "set-use-avg-temp",
	"excluded-types": "set-excluded-types",
}

type ctl struct {
	socket  string
	timeout time.Duration
}

func (c *ctl) client() *client.Client {
	cl := client.New(c.socket)
	cl.Timeout = c.timeout
	return cl
}

// send runs one command and prints the reply. Replies starting with ERROR make the
// command fail so scripts can test the exit status.
func (c *ctl) send(cmd *cobra.Command, line string) error {
	out, err := c.client().Send(cmd.Context(), line)
	if err != nil {
		return err
	}
	return c.print(cmd, out)
}

func (c *ctl) print(cmd *cobra.Command, out string) error {
	fmt.Fprint(cmd.OutOrStdout(), out)
	if strings.HasPrefix(out, "ERROR") {
		return errDaemon
	}
	return nil
}

func newRootCmd() *cobra.Command {
	c := &ctl{}
	root := &cobra.Command{
		Use:           "cpu_throttle_ctl",
		Short:         "Control a running cpu_throttle daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.socket, "socket", config.DefaultSocketPath, "control socket path")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "per-command timeout")

	root.AddCommand(
		c.simple("status", "Show temperature, frequency and limits", true),
		c.simple("limits", "Show hardware frequency bounds", true),
		c.simple("zones", "List thermal zones", true),
		c.simple("version", "Show the daemon version", false),
		c.simple("quit", "Stop the daemon", false),
		c.simple("restart", "Restart the daemon", false),
		c.setCmd(),
		c.argCmd("get-profile", "Print a stored profile"),
		c.argCmd("load-profile", "Apply a stored profile"),
		c.putProfileCmd(),
		c.simple("list-profiles", "List stored profiles", true),
		c.skinsCmd(),
	)
	return root
}

// simple builds a verb without arguments; withJSON adds --json.
func (c *ctl) simple(verb, short string, withJSON bool) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   verb,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			line := verb
			if asJSON {
				line += " json"
			}
			return c.send(cmd, line)
		},
	}
	if withJSON {
		cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	}
	return cmd
}

func (c *ctl) argCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.send(cmd, verb+" "+args[0])
		},
	}
}

func (c *ctl) setCmd() *cobra.Command {
	names := make([]string, 0, len(settingVerbs))
	for k := range settingVerbs {
		names = append(names, k)
	}
	return &cobra.Command{
		Use:       "set <setting> <value>",
		Short:     "Change one setting",
		Long:      "Settings: safe-max, safe-min (kHz), temp-max (50-110°C), thermal-zone (-1..100), use-avg-temp (0|1), excluded-types (csv|none|clear).",
		Args:      cobra.ExactArgs(2),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			verb, ok := settingVerbs[args[0]]
			if !ok {
				return fmt.Errorf("unknown setting %q", args[0])
			}
			return c.send(cmd, verb+" "+args[1])
		},
	}
}

func (c *ctl) putProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put-profile <name> <file>",
		Short: "Upload a profile file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.upload(cmd, protocol.VerbPutProfile, args[0], args[1], service.MaxProfileBytes)
			if err != nil {
				return err
			}
			return c.print(cmd, out)
		},
	}
}

// upload streams file under name, refusing files above limit before connecting.
func (c *ctl) upload(cmd *cobra.Command, verb, name, file string, limit int64) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return "", err
	}
	if st.Size() > limit {
		return "", fmt.Errorf("%s is %d bytes, limit is %d", file, st.Size(), limit)
	}
	return c.client().Upload(cmd.Context(), verb, name, f, st.Size())
}

func (c *ctl) skinsCmd() *cobra.Command {
	skins := &cobra.Command{Use: "skins", Short: "Manage web UI skins"}

	var activate bool
	install := &cobra.Command{
		Use:   "install <archive>",
		Short: "Install a skin archive (tar.gz, tar or zip)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.upload(cmd, protocol.VerbPutSkin, filepath.Base(args[0]), args[0], service.MaxSkinBytes)
			if err != nil {
				return err
			}
			if err := c.print(cmd, out); err != nil || !activate {
				return err
			}
			id := strings.TrimSpace(strings.TrimPrefix(strings.SplitN(out, "\n", 2)[0], installedPrefix))
			if !strings.HasPrefix(out, installedPrefix) || id == "" {
				return fmt.Errorf("cannot activate: unexpected reply %q", out)
			}
			return c.send(cmd, "activate-skin "+id)
		},
	}
	install.Flags().BoolVar(&activate, "activate", false, "activate the skin after installing")

	reset := &cobra.Command{
		Use:   "default",
		Short: "Go back to the built-in UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.client().Send(cmd.Context(), "list-skins json")
			if err != nil {
				return err
			}
			var list []models.Skin
			if err := json.Unmarshal([]byte(out), &list); err != nil {
				return c.print(cmd, out)
			}
			for _, s := range list {
				if s.Active {
					return c.send(cmd, "deactivate-skin "+s.ID)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK: default UI already active")
			return nil
		},
	}

	skins.AddCommand(
		install,
		rename(c.simple("list-skins", "List installed skins", true), "list"),
		rename(c.argCmd("activate-skin", "Activate an installed skin"), "activate <id>"),
		rename(c.argCmd("deactivate-skin", "Deactivate the active skin"), "deactivate <id>"),
		rename(c.argCmd("remove-skin", "Remove an installed skin"), "remove <id>"),
		reset,
	)
	return skins
}

func rename(cmd *cobra.Command, use string) *cobra.Command {
	cmd.Use = use
	return cmd
}
