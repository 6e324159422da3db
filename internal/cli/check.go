package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ppiankov/refcheck/internal/config"
	"github.com/ppiankov/refcheck/internal/domain"
	"github.com/ppiankov/refcheck/internal/engine"
	"github.com/ppiankov/refcheck/internal/llm"
	"github.com/ppiankov/refcheck/internal/progress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	checkOutJSON      string
	checkOutMD        string
	checkBatchTimeout time.Duration
	checkCachePath    string
	checkNumWorkers   int
	checkDisabledDBs  []string
	checkSearxNGURL   string
	checkLLMEnabled   bool
	checkLLMProvider  string
	checkLLMModel     string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <references.json>",
	Short: "Validate a batch of parsed references against the backend bank",
	Long: `Check reads an ordered batch of parsed reference records (title,
authors, optional DOI/arXiv ID) from a JSON file and concurrently
queries the configured academic-database backends to verify each one.

Input is a JSON array of reference objects, e.g.:

  [
    {"title": "Attention Is All You Need", "authors": ["Vaswani"]},
    {"doi": "10.1000/xyz123", "authors": ["Smith", "Jones"]}
  ]

Output is an ordered JSON array of validation verdicts, one per input
reference.

Example:
  refcheck check refs.json
  refcheck check refs.json --json out.json --md out.md
  refcheck check refs.json --disabled-db "Semantic Scholar" --num-workers 8`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkOutJSON, "json", "results.json", "output JSON path")
	checkCmd.Flags().StringVar(&checkOutMD, "md", "", "output Markdown summary path (optional)")
	checkCmd.Flags().DurationVar(&checkBatchTimeout, "timeout", 10*time.Minute, "overall batch timeout")
	checkCmd.Flags().StringVar(&checkCachePath, "cache-path", "", "persistent cache path (enables layer 2; a path with a file extension selects a bbolt file, one without selects a directory of blobs)")
	checkCmd.Flags().IntVar(&checkNumWorkers, "num-workers", 0, "number of coordinator tasks (0 = config default)")
	checkCmd.Flags().StringSliceVar(&checkDisabledDBs, "disabled-db", nil, "backend name to disable (repeatable, case-sensitive)")
	checkCmd.Flags().StringVar(&checkSearxNGURL, "searxng-url", "", "SearxNG instance URL for the last-resort web-search fallback")

	checkCmd.Flags().BoolVar(&checkLLMEnabled, "llm", false, "explain NotFound/AuthorMismatch verdicts using an LLM (never changes the verdict itself)")
	checkCmd.Flags().StringVar(&checkLLMProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	checkCmd.Flags().StringVar(&checkLLMModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

func runCheck(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	refs, err := loadReferences(inputPath)
	if err != nil {
		return fmt.Errorf("load references: %w", err)
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if checkCachePath != "" {
		cfg.CachePath = checkCachePath
	}
	if checkNumWorkers > 0 {
		cfg.NumWorkers = checkNumWorkers
	}
	if len(checkDisabledDBs) > 0 {
		cfg.DisabledDBs = append(cfg.DisabledDBs, checkDisabledDBs...)
	}
	if checkSearxNGURL != "" {
		cfg.SearxNGURL = checkSearxNGURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkBatchTimeout)
	defer cancel()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d references from %s\n", len(refs), inputPath)
		fmt.Fprintf(os.Stderr, "Workers: %d, cache: %s\n\n", cfg.NumWorkers, describeCache(cfg.CachePath))
	}

	sink := buildProgressSink(verbose)

	results, err := engine.Run(ctx, refs, cfg, sink)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if checkLLMEnabled {
		explainResults(ctx, refs, results)
	}

	if err := writeJSON(checkOutJSON, results); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	if checkOutMD != "" {
		if err := writeMarkdownSummary(checkOutMD, refs, results); err != nil {
			return fmt.Errorf("write Markdown: %w", err)
		}
	}

	printSummary(results)

	return nil
}

func describeCache(path string) string {
	if path == "" {
		return "memory only"
	}
	return path
}

func loadReferences(path string) ([]domain.Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var refs []domain.Reference
	if err := json.NewDecoder(f).Decode(&refs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for i := range refs {
		refs[i].Index = i
	}
	return refs, nil
}

func writeJSON(path string, results []domain.ValidationResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func buildProgressSink(verbose bool) progress.Sink {
	if !verbose {
		return func(ev progress.Event) {
			if ev.Kind == progress.EventWarning {
				fmt.Fprintf(os.Stderr, "warning: reference %d (%q): %s\n", ev.Index, ev.Title, ev.Message)
			}
		}
	}
	return func(ev progress.Event) {
		switch ev.Kind {
		case progress.EventChecking:
			fmt.Fprintf(os.Stderr, "[%d/%d] checking %q\n", ev.Index+1, ev.Total, ev.Title)
		case progress.EventDatabaseQueryComplete:
			fmt.Fprintf(os.Stderr, "  ref %d: %s -> %s (%dms)\n", ev.RefIndex, ev.Backend, ev.DBStatus, ev.ElapsedMS)
		case progress.EventRateLimitWait:
			fmt.Fprintf(os.Stderr, "  %s: waiting %s for a rate-limit token\n", ev.Backend, ev.Wait)
		case progress.EventWarning:
			fmt.Fprintf(os.Stderr, "warning: reference %d (%q): %s (failed: %s)\n", ev.Index, ev.Title, ev.Message, strings.Join(ev.FailedDBs, ", "))
		case progress.EventResult:
			fmt.Fprintf(os.Stderr, "[%d/%d] result: %s\n", ev.Index+1, ev.Total, ev.Value.Status)
		case progress.EventRetryPass:
			fmt.Fprintf(os.Stderr, "retry pass: %d reference(s)\n", ev.Count)
		}
	}
}

func printSummary(results []domain.ValidationResult) {
	counts := map[domain.Status]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	fmt.Printf("Checked %d references:\n", len(results))
	fmt.Printf("  verified:        %d\n", counts[domain.StatusVerified])
	fmt.Printf("  author mismatch: %d\n", counts[domain.StatusAuthorMismatch])
	fmt.Printf("  not found:       %d\n", counts[domain.StatusNotFound])
}

// explainResults attaches a best-effort natural-language explanation
// to each NotFound/AuthorMismatch result by calling the configured LLM
// provider. It never mutates Status - failures are logged and
// skipped, not fatal.
func explainResults(ctx context.Context, refs []domain.Reference, results []domain.ValidationResult) {
	llmCfg := llm.DefaultConfig()
	llmCfg.Provider = checkLLMProvider
	llmCfg.Model = checkLLMModel
	llmCfg.StrictEvidence = true

	switch strings.ToLower(checkLLMProvider) {
	case "openai":
		llmCfg.APIKey = os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		llmCfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case "ollama":
		if base := os.Getenv("OLLAMA_BASE_URL"); base != "" {
			llmCfg.BaseURL = base
		}
	}

	provider, err := llm.NewProvider(llmCfg)
	if err != nil || provider == nil {
		if err != nil {
			fmt.Fprintf(os.Stderr, "llm explainer disabled: %v\n", err)
		}
		return
	}

	for i := range results {
		r := &results[i]
		if r.Status == domain.StatusVerified {
			continue
		}
		urls := evidenceURLs(*r)
		resp, err := provider.Summarize(ctx, llm.SummarizeRequest{
			Reference:    refs[r.Index],
			Result:       *r,
			EvidenceURLs: urls,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "llm explain failed for reference %d: %v\n", r.Index, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "reference %d explanation: %s\n", r.Index, resp.Summary)
	}
}

func evidenceURLs(r domain.ValidationResult) []string {
	var urls []string
	if r.PaperURL != "" {
		urls = append(urls, r.PaperURL)
	}
	for _, db := range r.DbResults {
		if db.PaperURL != "" {
			urls = append(urls, db.PaperURL)
		}
	}
	return urls
}
