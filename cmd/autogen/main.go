// Autogen analyzes and maintains Home Assistant configuration.
//
// It validates automation and dashboard YAML, reviews deployed
// automations with deterministic rules plus an optional LLM pass,
// surfaces automation opportunities from the entity inventory, and
// deploys generated automations into automations.yaml with backups.
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	autogen validate <file>            Validate automation YAML
//	autogen validate-dashboard <file>  Validate dashboard YAML
//	autogen review                     Review deployed automations
//	autogen analyze                    Analyze the entity inventory
//	autogen deploy <file>              Deploy an automation
//	autogen templates <subcommand>     Manage prompt templates
//	autogen version                    Print version and build information
//	autogen -o json version            Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/haforge/autogen/internal/buildinfo"
	"github.com/haforge/autogen/internal/config"
	"github.com/haforge/autogen/internal/deploy"
	"github.com/haforge/autogen/internal/homeassistant"
	"github.com/haforge/autogen/internal/inventory"
	"github.com/haforge/autogen/internal/llm"
	"github.com/haforge/autogen/internal/reviewer"
	"github.com/haforge/autogen/internal/templates"
	"github.com/haforge/autogen/internal/validator"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// every subcommand can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the autogen command. All OS-level
// dependencies are injected as parameters: ctx controls the process
// lifetime, stdout and stderr receive all output, and args is
// os.Args[1:]. We parse arguments by hand rather than using the flag
// package to avoid global state that interferes with parallel tests.
//
// run returns nil on success and a non-nil error for any failure. The
// caller (main) is responsible for printing the error and exiting.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var areaID string
	var noBackup bool
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-area" && i+1 < len(args):
			areaID = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-area="):
			areaID = strings.TrimPrefix(args[i], "-area=")
		case args[i] == "-no-backup":
			noBackup = true
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "validate":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: autogen validate <file.yaml>")
		}
		return runValidate(ctx, stdout, stderr, configPath, outputFmt, cmdArgs[0], false)
	case "validate-dashboard":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: autogen validate-dashboard <file.yaml>")
		}
		return runValidate(ctx, stdout, stderr, configPath, outputFmt, cmdArgs[0], true)
	case "review":
		return runReview(ctx, stdout, stderr, configPath, outputFmt, areaID)
	case "analyze":
		return runAnalyze(ctx, stdout, stderr, configPath, outputFmt)
	case "deploy":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: autogen deploy <file.yaml>")
		}
		return runDeploy(ctx, stdout, stderr, configPath, cmdArgs[0], !noBackup)
	case "templates":
		return runTemplates(stdout, stderr, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w. It is called when
// autogen is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Autogen - Home Assistant Configuration Analysis")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: autogen [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  validate <file>            Validate automation YAML against the entity registry")
	fmt.Fprintln(w, "  validate-dashboard <file>  Validate dashboard YAML (schema, cards, entities)")
	fmt.Fprintln(w, "  review                     Review deployed automations (rules + LLM)")
	fmt.Fprintln(w, "  analyze                    Analyze entity inventory for automation opportunities")
	fmt.Fprintln(w, "  deploy <file>              Deploy an automation into automations.yaml")
	fmt.Fprintln(w, "  templates <subcommand>     Manage prompt templates (list, add, show, delete)")
	fmt.Fprintln(w, "  version                    Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w, "  -area <id>        Limit review to one area")
	fmt.Fprintln(w, "  -no-backup        Skip the automations.yaml backup on deploy")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./autogen.yaml, ~/.config/autogen/autogen.yaml, /etc/autogen/autogen.yaml")
	return nil
}

// runValidate handles "autogen validate <file>" and its dashboard
// variant. The known-entity set comes from the Home Assistant state
// API; when Home Assistant is unreachable the pipeline still runs, with
// every entity reference reported as unknown.
func runValidate(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath, outputFmt, filePath string, dashboard bool) error {
	logger := newLogger(stderr, slog.LevelWarn, "text")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}

	known := fetchKnownEntities(ctx, cfg, logger)

	var result validator.Result
	if dashboard {
		result = validator.ValidateDashboard(string(data), known)
	} else {
		result = validator.Validate(string(data), known)
	}

	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printValidation(stdout, filePath, result)
	}

	if !result.Valid {
		return fmt.Errorf("%s: validation failed", filePath)
	}
	return nil
}

// fetchKnownEntities builds the known-entity set from the Home
// Assistant state API. Failures degrade to an empty set so validation
// stays useful offline.
func fetchKnownEntities(ctx context.Context, cfg *config.Config, logger *slog.Logger) map[string]struct{} {
	if cfg.HomeAssistant.Token == "" {
		logger.Warn("Home Assistant token not configured, entity references will not be checked against the registry")
		return nil
	}

	ha := homeassistant.NewClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, logger)
	states, err := ha.GetStates(ctx)
	if err != nil {
		logger.Warn("could not fetch entity states", "error", err)
		return nil
	}

	known := make(map[string]struct{}, len(states))
	for _, s := range states {
		known[s.EntityID] = struct{}{}
	}
	return known
}

func printValidation(w io.Writer, filePath string, result validator.Result) {
	if result.Valid {
		fmt.Fprintf(w, "%s: valid", filePath)
	} else {
		fmt.Fprintf(w, "%s: INVALID", filePath)
	}
	fmt.Fprintf(w, " (%d issue(s))\n", len(result.Issues))

	for _, issue := range result.Issues {
		fmt.Fprintf(w, "  [%s] %s: %s", issue.Severity, issue.CheckName, issue.Message)
		if issue.Line > 0 {
			fmt.Fprintf(w, " (line %d)", issue.Line)
		}
		fmt.Fprintln(w)
		if issue.Suggestion != "" {
			fmt.Fprintf(w, "      %s\n", issue.Suggestion)
		}
	}
}

// runReview handles "autogen review". It fetches every deployed
// automation over the WebSocket API, optionally narrows the set to one
// area, and runs the review engine. The LLM pass is skipped when no
// backend is configured.
func runReview(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath, outputFmt, areaID string) error {
	logger := newLogger(stderr, slog.LevelInfo, "text")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger = configuredLogger(stderr, cfg)

	ws, entities, err := connectWS(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer ws.Close()

	automations, err := ws.FetchAutomations(ctx, activeAutomationIDs(entities))
	if err != nil {
		return fmt.Errorf("fetch automations: %w", err)
	}

	if areaID != "" {
		entityAreas := make(map[string]string, len(entities))
		for _, e := range entities {
			if e.AreaID != "" {
				entityAreas[e.EntityID] = e.AreaID
			}
		}
		automations = reviewer.FilterAutomationsByArea(automations, areaID, entityAreas)
		logger.Info("scoped review to area", "area", areaID, "automations", len(automations))
	}

	engine := reviewer.NewEngine(buildBackend(cfg, logger), logger)
	result := engine.ReviewAutomations(ctx, automations)

	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(stdout, result.Summary)
	if len(result.Findings) > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, reviewer.FormatFindings(result.Findings))
	}
	return nil
}

// runAnalyze handles "autogen analyze". It fetches the area and entity
// registries plus deployed automations, then reports coverage, area
// profiles, and matched automation patterns.
func runAnalyze(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath, outputFmt string) error {
	logger := newLogger(stderr, slog.LevelInfo, "text")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger = configuredLogger(stderr, cfg)

	ws, entities, err := connectWS(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer ws.Close()

	areas, err := ws.GetAreaRegistry(ctx)
	if err != nil {
		return fmt.Errorf("fetch area registry: %w", err)
	}

	automations, err := ws.FetchAutomations(ctx, activeAutomationIDs(entities))
	if err != nil {
		return fmt.Errorf("fetch automations: %w", err)
	}

	analysis := inventory.Analyze(entities, areas, automations)

	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	}

	printAnalysis(stdout, analysis)
	return nil
}

func printAnalysis(w io.Writer, a *inventory.Analysis) {
	fmt.Fprintf(w, "Entities: %d active in %d area(s), %d automation(s)\n",
		a.TotalEntities, a.TotalAreas, a.TotalAutomations)
	fmt.Fprintf(w, "Automation coverage: %.1f%% (%d automated, %d unautomated)\n",
		a.CoveragePercent, len(a.AutomatedEntityIDs), len(a.UnautomatedEntityIDs))

	if len(a.AreaProfiles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Areas by opportunity:")
		for _, p := range a.AreaProfiles {
			domains := make([]string, 0, len(p.Domains))
			for d := range p.Domains {
				domains = append(domains, d)
			}
			sort.Strings(domains)
			fmt.Fprintf(w, "  %-20s %3d entities, %d opportunity(ies)  [%s]\n",
				p.AreaName, p.EntityCount, p.Opportunities, strings.Join(domains, ", "))
		}
	}

	if len(a.MatchedPatterns) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Suggested automations:")
		for _, p := range a.MatchedPatterns {
			fmt.Fprintf(w, "  %s: %s\n", p.AreaName, p.Title)
			fmt.Fprintf(w, "    triggers: %s\n", strings.Join(p.TriggerEntities, ", "))
			fmt.Fprintf(w, "    targets:  %s\n", strings.Join(p.TargetEntities, ", "))
		}
	}
}

// runDeploy handles "autogen deploy <file>". The automation is
// validated first; deployment is refused on validation errors (warnings
// are allowed through). After a successful write the automations are
// reloaded so Home Assistant picks up the change without a restart.
func runDeploy(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath, filePath string, backup bool) error {
	logger := newLogger(stderr, slog.LevelInfo, "text")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger = configuredLogger(stderr, cfg)

	if cfg.Deploy.ConfigDir == "" {
		return fmt.Errorf("deploy.config_dir is not configured")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}

	known := fetchKnownEntities(ctx, cfg, logger)
	result := validator.Validate(string(data), known)
	if !result.Valid {
		printValidation(stderr, filePath, result)
		return fmt.Errorf("%s: refusing to deploy invalid automation", filePath)
	}
	for _, issue := range result.Issues {
		logger.Warn("validation warning", "check", issue.CheckName, "message", issue.Message)
	}

	engine := deploy.NewEngine(cfg.Deploy, logger)
	deployed, err := engine.Deploy(string(data), backup)
	if err != nil {
		return fmt.Errorf("deploy: %w", err)
	}

	verb := "added"
	if deployed.Replaced {
		verb = "replaced"
	}
	fmt.Fprintf(stdout, "Automation %s (%s)\n", deployed.AutomationID, verb)
	if deployed.BackupPath != "" {
		fmt.Fprintf(stdout, "Backup: %s\n", deployed.BackupPath)
	}

	if cfg.HomeAssistant.Token == "" {
		logger.Warn("Home Assistant not configured, skipping automation reload")
		return nil
	}
	ha := homeassistant.NewClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, logger)
	if err := ha.ReloadAutomations(ctx); err != nil {
		return fmt.Errorf("automation deployed but reload failed: %w", err)
	}
	fmt.Fprintln(stdout, "Automations reloaded")
	return nil
}

// runTemplates handles "autogen templates <list|add|show|delete>".
// Templates live in a SQLite database under the data directory and are
// applied around generation and review prompts.
func runTemplates(stdout io.Writer, stderr io.Writer, configPath string, args []string) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	store, err := templates.NewStore(cfg.DataDir + "/templates.db")
	if err != nil {
		return fmt.Errorf("open template store: %w", err)
	}
	defer store.Close()

	sub := ""
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "list", "":
		all, err := store.List()
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Fprintln(stdout, "No templates")
			return nil
		}
		for _, t := range all {
			state := "enabled"
			if !t.Enabled {
				state = "disabled"
			}
			fmt.Fprintf(stdout, "%s  %-20s %s/%s (%s)\n", t.ID, t.Name, t.Target, t.Position, state)
		}
		return nil
	case "add":
		// autogen templates add <name> <target> <position> <content>
		if len(args) < 5 {
			return fmt.Errorf("usage: autogen templates add <name> <automation|dashboard|review> <prepend|append> <content>")
		}
		created, err := store.Create(templates.Template{
			Name:     args[1],
			Target:   args[2],
			Position: args[3],
			Content:  templates.SanitizeContent(args[4]),
			Enabled:  true,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Created template %s\n", created.ID)
		return nil
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("usage: autogen templates show <id>")
		}
		id, err := parseTemplateID(args[1])
		if err != nil {
			return err
		}
		t, err := store.Get(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s (%s/%s)\n\n%s\n", t.Name, t.Target, t.Position, t.Content)
		return nil
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: autogen templates delete <id>")
		}
		id, err := parseTemplateID(args[1])
		if err != nil {
			return err
		}
		deleted, err := store.Delete(id)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("template not found: %s", args[1])
		}
		fmt.Fprintln(stdout, "Deleted")
		return nil
	default:
		return fmt.Errorf("unknown templates subcommand: %s", sub)
	}
}

func parseTemplateID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid template id %q: %w", s, err)
	}
	return id, nil
}

// activeAutomationIDs returns the entity IDs of enabled, visible
// automations from a registry snapshot.
func activeAutomationIDs(entities []homeassistant.EntityRegistryEntry) []string {
	var ids []string
	for _, e := range entities {
		if homeassistant.Domain(e.EntityID) == "automation" && e.IsActive() {
			ids = append(ids, e.EntityID)
		}
	}
	return ids
}

// connectWS opens the WebSocket connection and fetches the entity
// registry, which every registry-driven command needs first.
func connectWS(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*homeassistant.WSClient, []homeassistant.EntityRegistryEntry, error) {
	if cfg.HomeAssistant.Token == "" {
		return nil, nil, fmt.Errorf("homeassistant.token is not configured")
	}

	ws := homeassistant.NewWSClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, logger)
	if err := ws.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("connect to Home Assistant: %w", err)
	}

	entities, err := ws.GetEntityRegistryWS(ctx)
	if err != nil {
		ws.Close()
		return nil, nil, fmt.Errorf("fetch entity registry: %w", err)
	}
	return ws, entities, nil
}

// buildBackend constructs the configured LLM backend, or nil when no
// backend is configured. A nil backend makes reviews rule-only.
func buildBackend(cfg *config.Config, logger *slog.Logger) llm.Backend {
	switch cfg.LLM.Backend {
	case "ollama":
		return llm.NewOllamaBackend(cfg.LLM.BaseURL, cfg.LLM.Model, logger)
	case "openai":
		return llm.NewOpenAIBackend(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.APIKey, logger)
	case "", "none":
		logger.Info("no LLM backend configured, reviews are rule-only")
		return nil
	default:
		logger.Warn("unknown LLM backend, reviews are rule-only", "backend", cfg.LLM.Backend)
		return nil
	}
}

// configuredLogger rebuilds the logger once the config is known.
// Unknown level strings fall back to info.
func configuredLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return newLogger(w, level, cfg.LogFormat)
}

// newLogger creates a structured logger that writes to w at the given
// level. format selects the slog handler: "json" or text (default).
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadConfig discovers and loads the config file, returning the parsed
// config and the path it was loaded from.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
