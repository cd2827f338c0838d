package main

import (
	"errors"
	"fmt"
	"strings"

	"esghandlers/pkg/config"
	"esghandlers/pkg/format"
	"esghandlers/pkg/handler"
	"esghandlers/pkg/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errValidationFailed = errors.New("validation failed")

func validateCmd() *cobra.Command {
	var (
		offline bool
		prepare string
	)

	cmd := &cobra.Command{
		Use:   "validate <project> <path>...",
		Short: "Validate data files with a project handler",
		Long: `Run the project handler's file validation on each path. A path is read
through its attribute manifest (<path>.attrs.yaml) or is a manifest itself.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			cfg, err := loadConfig(logger)
			if err != nil {
				return err
			}

			rt := config.LoadFromEnv()
			if cmd.Flags().Changed("offline") {
				rt.Offline = offline
			}
			if prepare != "" {
				rt.ValidatorCommand = prepare
			}

			project := args[0]
			opts := handlerOptions(cfg, rt, logger, nil)
			opts.Opener = format.Opener

			h, err := handler.NewProjectHandler(project, opts)
			if err != nil {
				return err
			}

			t := newTable("FILE", "RESULT", "MESSAGE")
			failed := 0

			for _, path := range args[1:] {
				result, message := "passed", ""

				f, err := format.Open(path)
				if err == nil {
					err = h.ValidateFile(cmd.Context(), f)
				}
				if err != nil {
					failed++
					kind := handler.KindOf(err)
					result = kind
					if kind == "" {
						result = "error"
					}
					message = err.Error()
					logger.Debug("File rejected", zap.String("file", path), zap.Error(err))
				}

				t.Row(path, resultStyle(err == nil, handler.KindOf(err)).Render(result), message)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s validation", strings.ToUpper(project))))
			fmt.Fprintln(out, t.Render())
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%d file(s), %d failed", len(args)-1, failed)))

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d file(s)", errValidationFailed, failed, len(args)-1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "do not fetch CMOR table updates")
	cmd.Flags().StringVar(&prepare, "prepare", "", "CV validator executable (default $ESGHANDLERS_PREPARE or PrePARE)")

	return cmd
}

func contextCmd() *cobra.Command {
	var initial map[string]string

	cmd := &cobra.Command{
		Use:   "context <project> <path>",
		Short: "Print the dataset context read from a sample file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			cfg, err := loadConfig(logger)
			if err != nil {
				return err
			}

			opts := handlerOptions(cfg, config.LoadFromEnv(), logger, nil)
			opts.Path = args[1]
			opts.Opener = format.Opener

			h, err := handler.NewProjectHandler(args[0], opts)
			if err != nil {
				return err
			}

			ctx, err := h.GetContext(types.Context(initial))
			if err != nil {
				return err
			}
			if err := h.GenerateDerivedContext(); err != nil {
				return err
			}

			renderMap(cmd.OutOrStdout(), "Context of "+args[1], ctx)
			return nil
		},
	}

	cmd.Flags().StringToStringVar(&initial, "set", nil, "initial context field, e.g. --set model=CanESM2")

	return cmd
}
