package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"stmigrate/internal/core/config"
	"stmigrate/internal/core/watcher"
	"stmigrate/internal/engine/aicontext"
	"stmigrate/internal/engine/analyzer"
	"stmigrate/internal/ui/report"
)

type appOptions struct {
	Format         string
	OutPath        string
	IncludeContext bool
}

// App wires config, file discovery, the analyzer pipeline and report
// output together. It owns no analysis state; every run is a fresh pass.
type App struct {
	cfg         *config.Config
	opts        appOptions
	excludeDirs []glob.Glob
	extensions  map[string]bool
}

func NewApp(cfg *config.Config, opts appOptions) (*App, error) {
	switch opts.Format {
	case "json", "markdown":
	default:
		return nil, fmt.Errorf("unknown report format %q; supported: json, markdown", opts.Format)
	}

	excludes := make([]glob.Glob, 0, len(cfg.Scan.ExcludeDirs))
	for _, pattern := range cfg.Scan.ExcludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		excludes = append(excludes, g)
	}

	extensions := make(map[string]bool, len(cfg.Scan.Extensions))
	for _, ext := range cfg.Scan.Extensions {
		extensions[strings.ToLower(ext)] = true
	}

	return &App{cfg: cfg, opts: opts, excludeDirs: excludes, extensions: extensions}, nil
}

// RunOnce discovers, analyzes and reports on all configured roots.
func (a *App) RunOnce(ctx context.Context) error {
	inputs, err := a.discover()
	if err != nil {
		return err
	}
	slog.Info("analyzing", "files", len(inputs), "roots", a.cfg.Scan.Roots)

	result, err := analyzer.AnalyzeProject(ctx, inputs, a.cfg)
	if err != nil {
		return err
	}

	doc := report.Document{Result: result}
	if meta := a.projectInfo(); meta != nil {
		doc.Project = meta
	}
	if a.opts.IncludeContext {
		pkg, err := a.buildContext(result)
		if err != nil {
			return err
		}
		doc.Context = &pkg
	}

	s := result.Summary
	slog.Info("analysis complete",
		"pous", s.POUCount,
		"interlocks", interlockTotal(s),
		"bypassed", s.BypassedCount,
		"blockers", s.Blockers)

	return a.write(doc)
}

// WatchLoop re-runs the analysis whenever ST sources change. It blocks
// until ctx is cancelled.
func (a *App) WatchLoop(ctx context.Context) error {
	trigger := make(chan []string, 1)
	w, err := watcher.New(a.cfg.Watch.Debounce, a.cfg.Scan.Extensions, a.cfg.Scan.ExcludeDirs, func(paths []string) {
		select {
		case trigger <- paths:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(a.cfg.Scan.Roots); err != nil {
		return err
	}
	slog.Info("watching for changes", "roots", a.cfg.Scan.Roots, "debounce", a.cfg.Watch.Debounce)

	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-trigger:
			slog.Info("change detected", "files", len(paths))
			if err := a.RunOnce(ctx); err != nil {
				slog.Error("re-analysis failed", "error", err)
			}
		}
	}
}

// discover walks the scan roots and reads every matching source file.
// Results are sorted by path so analysis order is stable.
func (a *App) discover() ([]analyzer.FileInput, error) {
	var inputs []analyzer.FileInput
	seen := map[string]bool{}

	for _, root := range a.cfg.Scan.Roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if a.shouldExcludeDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !a.extensions[strings.ToLower(filepath.Ext(path))] || seen[path] {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("skipping unreadable file", "path", path, "error", err)
				return nil
			}
			seen[path] = true
			inputs = append(inputs, analyzer.FileInput{Path: path, Source: string(data)})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan root %q: %w", root, err)
		}
	}
	return inputs, nil
}

func (a *App) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range a.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (a *App) buildContext(result analyzer.ProjectResult) (aicontext.Package, error) {
	target, err := aicontext.ParseTarget(a.cfg.AI.TargetLanguage)
	if err != nil {
		return aicontext.Package{}, err
	}

	var in aicontext.Inputs
	for _, fr := range result.Files {
		in.POUs = append(in.POUs, fr.POUs...)
		in.Docstrings = append(in.Docstrings, fr.Docstrings...)
		in.StateMachines = append(in.StateMachines, fr.StateMachines...)
		in.Interlocks = append(in.Interlocks, fr.Interlocks...)
		in.Tribal = append(in.Tribal, fr.Tribal...)
	}
	return aicontext.Generate(in, target, a.projectInfo())
}

func (a *App) projectInfo() *aicontext.ProjectInfo {
	meta := a.cfg.AI.Project
	if meta.Name == "" && meta.Description == "" && meta.Vendor == "" {
		return nil
	}
	return &aicontext.ProjectInfo{
		Name:        meta.Name,
		Description: meta.Description,
		Vendor:      meta.Vendor,
	}
}

func (a *App) write(doc report.Document) error {
	var out io.Writer = os.Stdout
	if a.opts.OutPath != "" {
		f, err := os.Create(a.opts.OutPath)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if a.opts.Format == "markdown" {
		return report.WriteMarkdown(out, doc)
	}
	return report.WriteJSON(out, doc)
}

func interlockTotal(s analyzer.ProjectSummary) int {
	total := 0
	for _, n := range s.InterlocksByType {
		total += n
	}
	return total
}
