package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/othala/internal"
	"github.com/starford/othala/internal/kb"
	"github.com/starford/othala/internal/mcpserver"
	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/storage"
	pkgconfig "github.com/starford/othala/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func openStore(cfg *internal.Config) (*kb.Store, error) {
	cats := kb.NewCategories(cfg.Store.Path, cfg.Store.Categories, cfg.Store.DynamicCategories)
	if err := cats.EnsureDirectories(); err != nil {
		return nil, err
	}
	files, err := storage.NewFS(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	return kb.New(files, cats, cfg.Store.FoldCase), nil
}

func categoryFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "category",
		Aliases: []string{"C"},
		Usage:   "Category partition (empty means all categories, or the default for writes)",
	}
}

func runInit(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("initialized store at %s (categories: %s)\n",
		cfg.Store.Path, strings.Join(store.Categories().All(), ", "))
	return nil
}

func runAdd(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	category := cmd.String("category")

	if file := cmd.String("file"); file != "" {
		ids, err := store.ImportFile(file, category)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println("stored:", id)
		}
		return nil
	}

	text := cmd.String("text")
	if text == "" {
		return fmt.Errorf("either --text or --file is required")
	}
	id, err := store.StoreText(text, cmd.String("name"), category)
	if err != nil {
		return err
	}
	fmt.Println("stored:", id)
	return nil
}

func runView(_ context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: view NAME")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	rec, err := store.Retrieve(name, cmd.String("category"))
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runList(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	sums, skipped, err := store.List(cmd.String("category"))
	if err != nil {
		return err
	}
	for _, sum := range sums {
		line := fmt.Sprintf("%s/%s\t%s", sum.Category, sum.ID, sum.Title)
		if sum.Kind != "" {
			line += " [" + sum.Kind + "]"
		}
		fmt.Println(line)
	}
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "skipped %d corrupt record(s)\n", skipped)
	}
	return nil
}

func runSearch(_ context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("usage: search QUERY")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	results, skipped, err := search.New(store).Search(query, cmd.String("category"))
	if err != nil {
		return err
	}
	for _, res := range results {
		fmt.Printf("%s/%s\t%s\t(matched %d)\n", res.Category, res.ID, res.Title, res.Score)
	}
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "skipped %d corrupt record(s)\n", skipped)
	}
	return nil
}

func runDelete(_ context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: delete NAME")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	category, err := store.Delete(name, cmd.String("category"))
	if err != nil {
		return err
	}
	fmt.Printf("deleted: %s/%s\n", category, store.Normalize(name))
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	return mcpserver.New(store, search.New(store)).ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:  "othala",
		Usage: "Category-partitioned knowledge store with keyword search, HTTP API, and MCP tools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create the store layout (base directory plus category partitions)",
				Action: runInit,
			},
			{
				Name:  "add",
				Usage: "Store a text entry (--text, --name) or import records from a JSON file (--file)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "text", Usage: "Text content to store"},
					&cli.StringFlag{Name: "name", Usage: "Title for the text entry"},
					&cli.StringFlag{Name: "file", Usage: "JSON file with a record or array of records"},
					categoryFlag(),
				},
				Action: runAdd,
			},
			{
				Name:      "view",
				Usage:     "Print the full record for an entry",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{categoryFlag()},
				Action:    runView,
			},
			{
				Name:   "list",
				Usage:  "List entry summaries",
				Flags:  []cli.Flag{categoryFlag()},
				Action: runList,
			},
			{
				Name:      "search",
				Usage:     "Keyword search across entries",
				ArgsUsage: "QUERY",
				Flags:     []cli.Flag{categoryFlag()},
				Action:    runSearch,
			},
			{
				Name:      "delete",
				Usage:     "Delete an entry",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{categoryFlag()},
				Action:    runDelete,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with the summary index, file watcher, and SSE events",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdio",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
