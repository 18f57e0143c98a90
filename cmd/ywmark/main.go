package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ywmark/internal"
	"github.com/starford/ywmark/internal/ui"
	pkgconfig "github.com/starford/ywmark/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.Bool("md") {
		cfg.Conversion.MarkdownMode = true
	}
	if cmd.Bool("notitles") {
		cfg.Conversion.SceneTitles = false
	}
	return cfg, nil
}

func sourceArg(cmd *cli.Command, what string) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one %s argument", what)
	}
	return cmd.Args().First(), nil
}

func convert(ctx context.Context, cmd *cli.Command) error {
	source, err := sourceArg(cmd, "source file")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{internal.WithConfig(cfg), internal.WithVersion(version)}
	interactive := !cmd.Bool("silent") && ui.Interactive()
	if interactive {
		opts = append(opts, internal.WithConfirm(ui.NewPrompter(os.Stdin, os.Stdout).Confirm))
	}

	res, err := internal.Convert(ctx, source, opts...)
	if err != nil {
		return err
	}
	if cmd.Bool("silent") {
		return nil
	}
	fmt.Println(ui.Path(res.Message()))
	for _, ref := range res.DroppedRefs {
		fmt.Println(ui.Hint(fmt.Sprintf("  dropped %s %s from scene %s", ref.Kind, ref.ID, ref.SceneID)))
	}
	return nil
}

func inspect(ctx context.Context, cmd *cli.Command) error {
	path, err := sourceArg(cmd, "file")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	d, err := internal.Inspect(ctx, path, internal.WithConfig(cfg))
	if err != nil {
		return err
	}
	fmt.Print(ui.ProjectSummary(d))
	fmt.Println(ui.ProjectTable(d))
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func main() {
	cmd := &cli.Command{
		Name:      "ywmark",
		Usage:     "Convert yWriter projects to Markdown and merge edited Markdown back",
		ArgsUsage: "<source>",
		Version:   version,
		Action:    convert,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "silent",
				Usage: "Suppress messages and overwrite without asking",
			},
			&cli.BoolFlag{
				Name:  "md",
				Usage: "Scene text is already formatted with Markdown",
			},
			&cli.BoolFlag{
				Name:  "notitles",
				Usage: "Do not associate leading comments with scene titles",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "Show chapters, scenes and word counts of a file",
				ArgsUsage: "<file>",
				Action:    inspect,
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and watch the library",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, ui.Error(err))
		}
		os.Exit(1)
	}
}
