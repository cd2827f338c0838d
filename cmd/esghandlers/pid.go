package main

import (
	"fmt"
	"strconv"

	"esghandlers/pkg/cmip6"
	"esghandlers/pkg/config"
	"esghandlers/pkg/handler"

	"github.com/spf13/cobra"
)

// cmip6Handler builds the CMIP6 handler used by the PID commands. The
// returned handler.Config is nil when no esg.ini was loaded.
func cmip6Handler() (*cmip6.Handler, handler.Config, error) {
	logger := setupLogger(verbose)

	cfg, err := loadConfig(logger)
	if err != nil {
		return nil, nil, err
	}

	opts := handlerOptions(cfg, config.LoadFromEnv(), logger, nil)
	return cmip6.New(cmip6.HandlerName, opts), opts.Config, nil
}

func pidConfigCmd() *cobra.Command {
	var (
		section      string
		showPassword bool
	)

	cmd := &cobra.Command{
		Use:   "pid-config",
		Short: "Show the PID messaging configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, cfg, err := cmip6Handler()
			if err != nil {
				return err
			}
			defer h.Logger().Sync()

			pidConfig, err := h.GetPIDConfig(section, cfg)
			if err != nil {
				return err
			}

			t := newTable("PRIORITY", "URL", "PORT", "VHOST", "USER", "PASSWORD", "SSL")
			for _, c := range pidConfig.Credentials {
				password := "****"
				if showPassword {
					password = c.Password
				}
				t.Row(strconv.Itoa(c.Priority), c.URL, c.Port, c.VHost, c.User, password, strconv.FormatBool(c.SSLEnabled))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("PID exchange "+pidConfig.Exchange))
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}

	cmd.Flags().StringVar(&section, "section", config.CMIP6Section, "esg.ini section holding pid_credentials")
	cmd.Flags().BoolVar(&showPassword, "show-password", false, "print passwords in clear")

	return cmd
}

func pidPrefixCmd() *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "pid-prefix [version]",
		Short: "Print the PID prefix for a dataset version",
		Long: `Print the handle prefix used for PIDs. An integer version that is not a
date (YYYYMMDD...) gets no PID and nothing is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, cfg, err := cmip6Handler()
			if err != nil {
				return err
			}
			defer h.Logger().Sync()

			var version any
			if len(args) == 1 {
				version = args[0]
				if n, err := strconv.ParseInt(args[0], 10, 64); err == nil {
					version = n
				}
			}

			if prefix := h.CheckPIDAvail(section, cfg, version); prefix != "" {
				fmt.Fprintln(cmd.OutOrStdout(), prefix)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&section, "section", config.CMIP6Section, "esg.ini section")

	return cmd
}

func citationURLCmd() *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "citation-url <dataset> <version>",
		Short: "Print the citation URL of a dataset version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, cfg, err := cmip6Handler()
			if err != nil {
				return err
			}
			defer h.Logger().Sync()

			fmt.Fprintln(cmd.OutOrStdout(), h.GetCitationURL(section, cfg, args[0], args[1]))
			return nil
		},
	}

	cmd.Flags().StringVar(&section, "section", config.CMIP6Section, "esg.ini section")

	return cmd
}
