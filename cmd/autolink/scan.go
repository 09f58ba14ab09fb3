package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/autolink/autolink/internal/config"
	"github.com/autolink/autolink/internal/logging"
	"github.com/autolink/autolink/internal/patterns"
	"github.com/autolink/autolink/internal/render"
	"github.com/autolink/autolink/internal/scanner"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type scanOptions struct {
	configPath string
	filePath   string
	categories []string
	pattern    string
	format     string
}

func newScanCmd() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan [text]",
		Short: "Scan text for links",
		Long:  "Scan text from the arguments, --file, or stdin and print every match with its byte offsets.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if opts.configPath != "" {
				loaded, err := config.Load(opts.configPath)
				if err != nil {
					return err
				}
				if err := loaded.Validate(); err != nil {
					return err
				}
				cfg = loaded
			}

			logger, err := logging.New(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			text, err := readScanText(cmd, args, opts.filePath)
			if err != nil {
				return err
			}

			categories, err := cfg.ScanCategories()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("category") {
				categories, err = patterns.ParseCategories(opts.categories)
				if err != nil {
					return err
				}
			}
			pattern := cfg.Scan.CustomPattern
			if cmd.Flags().Changed("pattern") {
				pattern = opts.pattern
			}

			result := scanner.New(patterns.NewRegistry(pattern)).Scan(text, categories)
			for _, d := range result.Diagnostics {
				logger.Warn("Scan diagnostic",
					zap.String("category", string(d.Category)),
					zap.String("code", d.Code),
					zap.String("message", d.Message),
				)
			}

			return writeScanResult(cmd.OutOrStdout(), opts.format, cfg, text, result)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Take categories, pattern and colors from this config file")
	cmd.Flags().StringVar(&opts.filePath, "file", "", "Read text from this file")
	cmd.Flags().StringArrayVarP(&opts.categories, "category", "m", nil, "Category to scan for (repeatable)")
	cmd.Flags().StringVar(&opts.pattern, "pattern", "", "Regular expression for the custom category")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text|json|ansi")

	return cmd
}

func readScanText(cmd *cobra.Command, args []string, filePath string) (string, error) {
	switch {
	case len(args) > 0 && filePath != "":
		return "", errors.New("pass text either as arguments or with --file")
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case filePath != "":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
}

func writeScanResult(out io.Writer, format string, cfg *config.Config, text string, result scanner.Result) error {
	switch format {
	case "", "text":
		for _, item := range result.Items {
			if _, err := fmt.Fprintf(out, "%s\t%d\t%d\t%s\n", item.Category, item.Start, item.End, item.Text); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "ansi":
		opts, err := renderOptions(cfg)
		if err != nil {
			return err
		}
		doc := render.NewDocument(text, result.Items, opts)
		_, err = io.WriteString(out, render.ANSI(doc, termenv.EnvColorProfile(), time.Now()))
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func renderOptions(cfg *config.Config) (render.Options, error) {
	palette, err := render.PaletteFromStrings(cfg.Colors)
	if err != nil {
		return render.Options{}, err
	}
	opts := render.Options{Palette: palette, TransitionDuration: cfg.Transition}
	if cfg.LinkColor != "" {
		c, err := render.ParseColor(cfg.LinkColor)
		if err != nil {
			return render.Options{}, fmt.Errorf("linkColor: %w", err)
		}
		opts.LinkColor = &c
	}
	if cfg.SelectedColor != "" {
		c, err := render.ParseColor(cfg.SelectedColor)
		if err != nil {
			return render.Options{}, fmt.Errorf("selectedColor: %w", err)
		}
		opts.SelectedColor = &c
	}
	return opts, nil
}
