package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// ============================================================================
// kbdlightctl - control client for kbdlightd
// ============================================================================
// Usage:
//   kbdlightctl status
//   kbdlightctl set 2
//   kbdlightctl wake
//   kbdlightctl dim
// ============================================================================

const version = "1.0.0"

type options struct {
	socket  string
	timeout time.Duration
	json    bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "kbdlightctl",
		Short:         "Control a running kbdlightd",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.socket, "socket", "/run/kbdlightd.sock", "kbdlightd control socket")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print the daemon state as JSON")

	root.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show brightness, idle timeout and monitored devices",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return do(out, opts, "status", nil)
			},
		},
		&cobra.Command{
			Use:   "set VALUE",
			Short: "Set the backlight brightness",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid brightness %q: %w", args[0], err)
				}
				return do(out, opts, "set_brightness", setBrightnessData{Value: v})
			},
		},
		&cobra.Command{
			Use:   "wake",
			Short: "Count as input activity and restore the backlight",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return do(out, opts, "wake", nil)
			},
		},
		&cobra.Command{
			Use:   "dim",
			Short: "Turn the backlight off now",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return do(out, opts, "dim", nil)
			},
		},
	)
	return root
}

func do(out io.Writer, opts *options, typ string, data any) error {
	req, err := newRequest(typ, data)
	if err != nil {
		return err
	}
	st, err := sendRequest(opts.socket, opts.timeout, req)
	if err != nil {
		return err
	}
	return printStatus(out, st, opts.json)
}

func printStatus(out io.Writer, st *statusReport, asJSON bool) error {
	if st == nil {
		_, err := fmt.Fprintln(out, "ok")
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(out, "brightness:    %d\n", st.Brightness)
	fmt.Fprintf(out, "original:      %d\n", st.Original)
	fmt.Fprintf(out, "idle timeout:  %s\n", time.Duration(st.IdleTimeoutMs)*time.Millisecond)
	if !st.LastActivity.IsZero() {
		fmt.Fprintf(out, "last activity: %s\n", st.LastActivity.Local().Format(time.RFC3339))
	}
	_, err := fmt.Fprintf(out, "devices:       %s\n", strings.Join(st.Devices, " "))
	return err
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
