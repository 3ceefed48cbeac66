package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/NaguKun/Analyseur-de-CV/internal/app"
	"github.com/NaguKun/Analyseur-de-CV/internal/config"
	"github.com/NaguKun/Analyseur-de-CV/internal/services"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "skill",
			Aliases: []string{"s"},
			Usage:   "Required skill, repeat for several",
		},
		&cli.StringFlag{
			Name:  "location",
			Usage: "Substring of the candidate location",
		},
		&cli.StringFlag{
			Name:  "degree",
			Usage: "Degree the candidate must hold",
		},
		&cli.Float64Flag{
			Name:  "min-years",
			Usage: "Minimum total years of work experience",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Page size (1-100)",
			Value: services.DefaultPageLimit,
		},
		&cli.IntFlag{
			Name:  "offset",
			Usage: "Page offset",
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "cvctl",
		Usage: "Operate the CV analyser from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema",
				Action: migrateCommand,
			},
			{
				Name:   "ingest",
				Usage:  "Ingest every PDF in a directory",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dir",
						Aliases:  []string{"d"},
						Usage:    "Directory containing CV files",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of files processed at once (defaults to WORKER_CONCURRENCY)",
					},
				},
			},
			{
				Name:  "search",
				Usage: "Search stored candidates",
				Subcommands: []*cli.Command{
					{
						Name:   "filter",
						Usage:  "Structured filter, ordered by id",
						Action: filterCommand,
						Flags:  filterFlags(),
					},
					{
						Name:   "semantic",
						Usage:  "Rank candidates by similarity to a query",
						Action: semanticCommand,
						Flags: append(filterFlags(), &cli.StringFlag{
							Name:     "query",
							Aliases:  []string{"q"},
							Usage:    "Free-text description of the wanted profile",
							Required: true,
						}),
					},
				},
			},
			{
				Name:   "export",
				Usage:  "Write filtered candidates to an Excel workbook",
				Action: exportCommand,
				Flags: append(filterFlags(), &cli.StringFlag{
					Name:     "out",
					Aliases:  []string{"o"},
					Usage:    "Output .xlsx path",
					Required: true,
				}),
			},
			{
				Name:   "reembed",
				Usage:  "Recompute candidate embeddings with the configured model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:  "id",
						Usage: "Only reembed this candidate",
					},
				},
			},
		},
	}
}

func bootstrap(c *cli.Context) (*app.App, error) {
	cfg := config.Load()
	cfg.Log.Level = c.String("log-level")
	logger := config.NewLogger(cfg.Log)

	a, err := app.New(c.Context, cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func criteriaFrom(c *cli.Context) (services.Criteria, services.Page) {
	criteria := services.Criteria{
		Location:       c.String("location"),
		EducationLevel: c.String("degree"),
		Skills:         c.StringSlice("skill"),
	}
	if c.IsSet("min-years") {
		years := c.Float64("min-years")
		criteria.MinExperienceYears = &years
	}
	return criteria, services.Page{Limit: c.Int("limit"), Offset: c.Int("offset")}
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCommand(c *cli.Context) error {
	a, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := config.Migrate(a.DB); err != nil {
		return err
	}
	a.Logger.Info("database migrated")
	return nil
}

// pdfFiles lists the PDF files directly inside dir, in name order.
func pdfFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

func ingestCommand(c *cli.Context) error {
	paths, err := pdfFiles(c.String("dir"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no PDF files found in %s", c.String("dir"))
	}

	a, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer a.Close()

	batch := a.Batch
	if n := c.Int("concurrency"); n > 0 {
		batch = services.NewBatchProcessor(a.Ingestion, n, a.Logger)
	}

	files := make([]services.UploadFile, len(paths))
	for i, p := range paths {
		content, err := os.ReadFile(p)
		files[i] = services.UploadFile{Filename: filepath.Base(p), Content: content, ReadErr: err}
	}

	resp := batch.Process(c.Context, files)
	for _, f := range resp.FailedUploads {
		a.Logger.Warn("ingest failed", "file", f.Filename, "err", f.Error)
	}
	a.Logger.Info("ingest finished", "succeeded", len(resp.SuccessfulUploads), "failed", len(resp.FailedUploads))

	if len(resp.SuccessfulUploads) == 0 {
		return cli.Exit("no file could be ingested", 1)
	}
	return nil
}

func filterCommand(c *cli.Context) error {
	a, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer a.Close()

	criteria, page := criteriaFrom(c)
	candidates, err := a.Search.FilterCandidates(c.Context, criteria, page)
	if err != nil {
		return err
	}
	return printJSON(c, candidates)
}

func semanticCommand(c *cli.Context) error {
	a, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer a.Close()

	criteria, page := criteriaFrom(c)
	ranked, err := a.Search.SemanticSearch(c.Context, c.String("query"), criteria, page)
	if err != nil {
		return err
	}
	return printJSON(c, ranked)
}

func exportCommand(c *cli.Context) error {
	out := c.String("out")
	if !strings.EqualFold(filepath.Ext(out), ".xlsx") {
		return fmt.Errorf("output file must have the .xlsx extension, got %q", out)
	}

	a, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer a.Close()

	criteria, page := criteriaFrom(c)
	candidates, err := a.Search.FilterCandidates(c.Context, criteria, page)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	defer f.Close()

	if err := services.ExportCandidates(f, candidates, time.Now()); err != nil {
		return err
	}
	a.Logger.Info("export written", "file", out, "candidates", len(candidates))
	return nil
}

func reembedCommand(c *cli.Context) error {
	a, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer a.Close()

	if id := c.Uint("id"); id > 0 {
		return a.Profiles.Reembed(c.Context, id)
	}

	return reembedAll(c.Context, a.Profiles, a.Logger)
}

// reembedAll walks every candidate page by page. A failure on one
// candidate is logged and does not stop the run.
func reembedAll(ctx context.Context, profiles services.CandidateService, logger *slog.Logger) error {
	page := services.Page{Limit: services.MaxPageLimit}
	done, failed := 0, 0
	for {
		batch, err := profiles.List(ctx, page)
		if err != nil {
			return err
		}
		for _, cand := range batch {
			if err := profiles.Reembed(ctx, cand.ID); err != nil {
				logger.Warn("reembed failed", "candidate", cand.ID, "err", err)
				failed++
				continue
			}
			done++
		}
		if len(batch) < page.Limit {
			break
		}
		page.Offset += page.Limit
		logger.Info("reembed progress", "done", done, "failed", failed)
	}
	logger.Info("reembed finished", "done", done, "failed", failed)
	return nil
}
