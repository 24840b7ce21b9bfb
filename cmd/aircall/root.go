package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/junsooki/AirCall/internal/config"
)

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "aircall",
		Short:         "Live video call between two machines",
		Long:          `aircall streams camera or screen frames to one peer over a single length-prefixed connection. Run without a subcommand to choose the role interactively.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, configPath, "")
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (default: aircall.yaml in ., ./configs or ~/.aircall)")
	config.RegisterFlags(pf)

	root.AddCommand(roleCmd("listen", "Wait for one caller and show its video", &configPath))
	root.AddCommand(roleCmd("call", "Call a listening peer and stream video to it", &configPath))
	return root
}

func roleCmd(role, short string, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:          role,
		Short:        short,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, *configPath, role)
		},
	}
}

// promptRole asks until it gets a valid answer or input ends.
func promptRole(in io.Reader, out io.Writer) (string, error) {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Enter '1' to Listen or '2' to Call: ")
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", fmt.Errorf("read role: %w", err)
			}
			return "", errors.New("no role chosen")
		}
		answer := strings.TrimSpace(sc.Text())
		if role, err := config.NormalizeRole(answer); err == nil {
			return role, nil
		}
		fmt.Fprintf(out, "Invalid choice %q.\n", answer)
	}
}
