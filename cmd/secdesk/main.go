package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zen-systems/secdesk/pkg/adapter"
	"github.com/zen-systems/secdesk/pkg/budget"
	"github.com/zen-systems/secdesk/pkg/conclude"
	"github.com/zen-systems/secdesk/pkg/config"
	"github.com/zen-systems/secdesk/pkg/knowledge"
	"github.com/zen-systems/secdesk/pkg/orchestrate"
	"github.com/zen-systems/secdesk/pkg/route"
	"github.com/zen-systems/secdesk/pkg/specialist"
	"github.com/zen-systems/secdesk/pkg/thread"
)

var (
	configFile string
	mockFlag   bool
	debugFlag  bool
	aliases    *config.ModelAliases
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "secdesk",
		Short: "Security analysis helpdesk with multi-round specialist routing",
		Long: `Secdesk answers security questions by classifying each query,
	dispatching it to the right specialist (threat analysis, network
	security, account security), and looping until the dialog reaches a
	conclusion or falls back to the general assistant.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to specialists config file")
	rootCmd.PersistentFlags().BoolVar(&mockFlag, "mock", false, "use the mock adapter for every call")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(kbCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func askCmd() *cobra.Command {
	var jsonFlag bool
	var stepsFlag bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single security question",
		Long: `Classifies the question, dispatches it to the matching specialist,
	and prints the final answer. The dialog runs up to the configured
	round limit before falling back to the general assistant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			coordinator, cleanup, err := buildCoordinator(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			out := coordinator.Run(context.Background(), args[0])

			if jsonFlag {
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			if stepsFlag {
				for _, step := range out.Steps {
					fmt.Fprintln(os.Stderr, step)
				}
			}
			fmt.Fprintf(os.Stderr, "Answered by %s (confidence %.2f)\n", out.Route.Target, out.Route.Confidence)

			if !out.Result.OK() {
				return fmt.Errorf("specialist failed: %s", out.Result.Err)
			}
			fmt.Println(out.Result.Response)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the full run record as JSON")
	cmd.Flags().BoolVar(&stepsFlag, "steps", false, "print orchestration steps to stderr")

	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive security dialog",
		Long: `Opens a dialog that keeps its thread and summary history across
	questions. Type "exit" or press Ctrl-D to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			coordinator, cleanup, err := buildCoordinator(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			state, err := coordinator.StartDialog(ctx)
			if err != nil {
				return fmt.Errorf("failed to start dialog: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Dialog %s started. Type \"exit\" to leave.\n", state.ThreadID)

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Fprint(os.Stderr, "> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}

				out := coordinator.Continue(ctx, state, line)
				if !out.Result.OK() {
					fmt.Fprintf(os.Stderr, "[%s] error: %s\n", out.Route.Target, out.Result.Err)
					continue
				}
				fmt.Printf("[%s] %s\n", out.Route.Target, out.Result.Response)
			}
			return scanner.Err()
		},
	}
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show specialist routing rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			sp := cfg.Specialists

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TARGET\tADAPTER\tMODEL\tTRIGGERS")

			var names []string
			for name := range sp.Targets {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				target := sp.Targets[name]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, target.Adapter, target.Model, formatList(target.Triggers))
			}

			fmt.Fprintln(w)
			fmt.Fprintf(w, "confidence threshold\t%.2f\n", sp.ConfidenceThreshold)
			fmt.Fprintf(w, "max rounds\t%d\n", sp.MaxRounds)
			fmt.Fprintf(w, "classifier\t%s/%s (%d req, %d tokens)\n",
				sp.Classifier.Adapter, sp.Classifier.Model, sp.Classifier.RequestLimit, sp.Classifier.TokenLimit)
			fmt.Fprintf(w, "summarizer\t%s/%s (%d req, %d tokens)\n",
				sp.Summarizer.Adapter, sp.Summarizer.Model, sp.Summarizer.RequestLimit, sp.Summarizer.TokenLimit)

			return w.Flush()
		},
	}
}

func modelsCmd() *cobra.Command {
	var resolveFlag bool
	var validateFlag bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List available adapters, models, and aliases",
		Long: `Lists adapters and their available models.

	Use --resolve to show aliases and what they resolve to.
	Use --validate to check all configured specialist models are valid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if resolveFlag {
				return showAliases()
			}

			if validateFlag {
				return validateModels(cfg)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODELS\tSTATUS")

			providers := aliases.ListProviders()
			if len(providers) == 0 {
				providers = []string{"anthropic", "deepseek", "google", "openai", "mock"}
			}

			for _, provider := range providers {
				models := formatList(aliases.GetProviderModels(provider))
				status := "no key"
				if cfg.HasAdapter(provider) {
					status = "ready"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", provider, models, status)
			}

			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&resolveFlag, "resolve", false, "show aliases and what they resolve to")
	cmd.Flags().BoolVar(&validateFlag, "validate", false, "check all specialist models resolve to valid models")

	return cmd
}

func showAliases() error {
	if aliases == nil {
		fmt.Println("No model aliases configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ALIAS\tMODEL\tPROVIDER")

	aliasMap := aliases.ListAliases()
	var aliasNames []string
	for name := range aliasMap {
		aliasNames = append(aliasNames, name)
	}
	sort.Strings(aliasNames)

	for _, alias := range aliasNames {
		model := aliasMap[alias]
		provider := aliases.GetProviderForModel(model)
		fmt.Fprintf(w, "%s\t%s\t%s\n", alias, model, provider)
	}

	return w.Flush()
}

func validateModels(cfg *config.Config) error {
	if aliases == nil {
		fmt.Println("No model aliases configured - nothing to validate.")
		return nil
	}

	errors := aliases.ValidateSpecialists(cfg.Specialists)
	if len(errors) == 0 {
		fmt.Println("All specialist models are valid.")
		return nil
	}

	fmt.Fprintf(os.Stderr, "Found %d validation errors:\n", len(errors))
	for _, err := range errors {
		fmt.Fprintf(os.Stderr, "  - %s\n", err)
	}
	return fmt.Errorf("validation failed")
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [specialists.yaml]",
		Short: "Validate a specialists config file",
		Long:  "Validates specialist routing YAML without running anything.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadSpecialistsConfig(args[0]); err != nil {
				return err
			}
			fmt.Println("Specialists config is valid.")
			return nil
		},
	}
}

func kbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the knowledge base",
	}
	cmd.AddCommand(kbIngestCmd())
	cmd.AddCommand(kbSearchCmd())
	return cmd
}

func kbIngestCmd() *cobra.Command {
	var titleFlag string
	var categoryFlag string
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Add a document to the knowledge base",
		RunE: func(cmd *cobra.Command, args []string) error {
			if titleFlag == "" || categoryFlag == "" {
				return fmt.Errorf("--title and --category are required")
			}

			var content string
			if fileFlag != "" {
				data, err := os.ReadFile(fileFlag)
				if err != nil {
					return err
				}
				content = string(data)
			} else {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				content = string(data)
			}
			content = strings.TrimSpace(content)
			if content == "" {
				return fmt.Errorf("document content is empty")
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			index, err := knowledge.OpenSQLite(knowledgePath(cfg))
			if err != nil {
				return fmt.Errorf("failed to open knowledge base: %w", err)
			}
			defer index.Close()

			id, err := index.Ingest(context.Background(), titleFlag, categoryFlag, content)
			if err != nil {
				return err
			}
			fmt.Printf("Ingested document %d (%s)\n", id, categoryFlag)
			return nil
		},
	}

	cmd.Flags().StringVar(&titleFlag, "title", "", "document title (required)")
	cmd.Flags().StringVar(&categoryFlag, "category", "", "document category (required)")
	cmd.Flags().StringVar(&fileFlag, "file", "", "read content from a file (defaults to stdin)")

	return cmd
}

func kbSearchCmd() *cobra.Command {
	var categoryFlag []string
	var topFlag int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			index, err := knowledge.OpenSQLite(knowledgePath(cfg))
			if err != nil {
				return fmt.Errorf("failed to open knowledge base: %w", err)
			}
			defer index.Close()

			docs, err := index.Search(context.Background(), args[0], categoryFlag, topFlag)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Println("No matching documents.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SCORE\tCATEGORY\tTITLE")
			for _, doc := range docs {
				fmt.Fprintf(w, "%.1f\t%s\t%s\n", doc.Score, doc.Category, doc.Title)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringSliceVar(&categoryFlag, "category", nil, "restrict to categories")
	cmd.Flags().IntVar(&topFlag, "top", 3, "maximum number of results")

	return cmd
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadWithSpecialistsFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	aliases, _ = config.LoadAliasesWithFallback("configs/models.yaml")

	return cfg, nil
}

// buildCoordinator wires adapters, specialists, storage, and the round
// loop from the loaded configuration. The returned cleanup closes the
// underlying stores.
func buildCoordinator(cfg *config.Config) (*orchestrate.Coordinator, func(), error) {
	adapters, err := createAdapters(cfg)
	if err != nil {
		return nil, nil, err
	}

	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	threads, err := thread.OpenSQLite(filepath.Join(cfg.ConfigDir, "threads.db"))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to open thread store: %w", err)
	}
	closers = append(closers, threads)

	sp := cfg.Specialists
	var handlers []specialist.Handler
	for name, target := range sp.Targets {
		a := pickAdapter(adapters, target.Adapter)
		model := aliases.Resolve(target.Model)
		handlers = append(handlers, specialist.NewAdapterHandler(name, a, model, target.Instructions,
			specialist.WithThreadStore(threads),
			specialist.WithHandlerDebug(debugFlag)))
	}

	registry, err := specialist.NewRegistry(handlers...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	dispatcherOpts := []specialist.DispatcherOption{specialist.WithDispatcherDebug(debugFlag)}
	kbPath := knowledgePath(cfg)
	if _, err := os.Stat(kbPath); err == nil {
		index, err := knowledge.OpenSQLite(kbPath)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to open knowledge base: %w", err)
		}
		closers = append(closers, index)
		dispatcherOpts = append(dispatcherOpts, specialist.WithRetriever(index))
	}
	dispatcher := specialist.NewDispatcher(registry, sp, dispatcherOpts...)

	classifierFactory := func(b *budget.Budget) route.Classifier {
		a, ok := adapters[sp.Classifier.Adapter]
		if mockFlag {
			a, ok = adapters["mock"]
		}
		if !ok {
			// No classifier model available; trigger matching still routes.
			return route.NewRuleClassifier(sp)
		}
		return route.NewLLMClassifier(a, aliases.Resolve(sp.Classifier.Model), sp, b)
	}
	detectorFactory := func(b *budget.Budget) conclude.Detector {
		a := pickAdapter(adapters, sp.Summarizer.Adapter)
		return conclude.NewLLMDetector(a, aliases.Resolve(sp.Summarizer.Model), b,
			conclude.WithDetectorDebug(debugFlag))
	}

	coordinator, err := orchestrate.NewCoordinator(sp, dispatcher, classifierFactory, detectorFactory,
		orchestrate.WithThreadStore(threads),
		orchestrate.WithEvidenceDir(filepath.Join(cfg.ConfigDir, "runs")),
		orchestrate.WithCoordinatorDebug(debugFlag))
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return coordinator, cleanup, nil
}

// pickAdapter returns the named adapter, the mock when --mock is set,
// and the mock again when the named one has no key configured.
func pickAdapter(adapters map[string]adapter.Adapter, name string) adapter.Adapter {
	if mockFlag {
		return adapters["mock"]
	}
	if a, ok := adapters[name]; ok {
		return a
	}
	return adapters["mock"]
}

func knowledgePath(cfg *config.Config) string {
	return filepath.Join(cfg.ConfigDir, "knowledge.db")
}

func createAdapters(cfg *config.Config) (map[string]adapter.Adapter, error) {
	adapters := make(map[string]adapter.Adapter)

	if cfg.AnthropicAPIKey != "" {
		a, err := adapter.NewAnthropicAdapter(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic adapter: %w", err)
		}
		adapters["anthropic"] = a
	}

	if cfg.OpenAIAPIKey != "" {
		a, err := adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai adapter: %w", err)
		}
		adapters["openai"] = a
	}

	if cfg.GoogleAPIKey != "" {
		a, err := adapter.NewGoogleAdapter(cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create google adapter: %w", err)
		}
		adapters["google"] = a
	}

	if cfg.DeepSeekAPIKey != "" {
		a, err := adapter.NewDeepSeekAdapter(cfg.DeepSeekAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create deepseek adapter: %w", err)
		}
		adapters["deepseek"] = a
	}

	adapters["mock"] = adapter.NewMockAdapter()

	return adapters, nil
}

func formatList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return strings.Join(items, ", ")
}
