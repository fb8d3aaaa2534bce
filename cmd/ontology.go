package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/ai"
	"github.com/lavoro-tech/reranker/internal/ai/gemini"
	"github.com/lavoro-tech/reranker/internal/ontology"
	"github.com/lavoro-tech/reranker/internal/secrets"
	"github.com/lavoro-tech/reranker/internal/utils"
)

const (
	PromptManual = "Enter manually"
	PromptSkip   = "Skip"
	PromptExit   = "Exit review"
	PromptYes    = "Yes"
	PromptNo     = "No"

	// Pause between consecutive AI suggestion calls, to stay clear of
	// per-minute quota on interactive sessions.
	suggestInterval = 2 * time.Second
)

var ontologyCmd = &cobra.Command{
	Use:   "ontology",
	Short: "Manage the skill ontology",
}

var ontologyReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review unmapped skills and curate canonical mappings interactively",
	Run: func(cmd *cobra.Command, _ []string) {
		reviewOntology(cmd)
	},
}

func init() {
	rootCmd.AddCommand(ontologyCmd)
	ontologyCmd.AddCommand(ontologyReviewCmd)

	ontologyReviewCmd.Flags().Bool("ai-suggest", false, "ask the configured AI provider for canonical suggestions")
}

func reviewOntology(cmd *cobra.Command) {
	ctx := context.Background()
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	ont, err := ontology.Load(config.Ontology, log)
	if err != nil {
		log.Fatal("loading ontology", zap.Error(err))
	}

	backlog := ont.Backlog()
	if len(backlog) == 0 {
		log.Info("exiting", zap.String("reason", "no unmapped skills to review"))
		return
	}

	var suggester ai.Suggester
	if cmd.Flag("ai-suggest").Value.String() == "true" {
		suggester, err = newAISuggester(ctx, config.AI, log)
		if err != nil {
			log.Warn("ai suggestions disabled", zap.Error(err))
		}
	}

	log.Info("starting ontology review", zap.Int("unmapped_skills", len(backlog)))

	curated := 0
	for i, item := range backlog {
		suggestion := suggestCanonical(ctx, suggester, ont, item, i > 0, log)

		items := []string{
			fmt.Sprintf("Map to %q", suggestion),
			PromptManual,
			PromptSkip,
			PromptExit,
		}
		prompt := promptui.Select{
			Label: fmt.Sprintf("Skill %q (seen %d times)", item.Skill, item.Frequency),
			Items: items,
		}

		_, action, err := prompt.Run()
		if err != nil {
			log.Fatal("exiting", zap.Error(err))
		}

		switch action {
		case PromptSkip:
			continue
		case PromptExit:
		case PromptManual:
			manual := promptui.Prompt{
				Label: fmt.Sprintf("Canonical name for %q", item.Skill),
				Validate: func(input string) error {
					if strings.TrimSpace(input) == "" {
						return errors.New("canonical name must not be empty")
					}
					return nil
				},
			}
			canonical, err := manual.Run()
			if err != nil {
				log.Fatal("exiting", zap.Error(err))
			}
			ont.AddMapping(item.Skill, strings.TrimSpace(canonical))
			curated++
			continue
		default:
			ont.AddMapping(item.Skill, suggestion)
			curated++
			continue
		}
		break
	}

	if curated == 0 {
		log.Info("exiting", zap.String("reason", "no mappings curated"))
		return
	}

	confirm := promptui.Select{
		Label: fmt.Sprintf("Save %d new mappings to %s?", curated, config.Ontology),
		Items: []string{PromptYes, PromptNo},
	}
	_, answer, err := confirm.Run()
	if err != nil {
		log.Fatal("exiting", zap.Error(err))
	}
	if answer != PromptYes {
		log.Info("exiting", zap.String("reason", "changes discarded"))
		return
	}

	if err := ont.Save(); err != nil {
		log.Fatal("saving ontology", zap.Error(err))
	}
	log.Info("ontology updated",
		zap.Int("curated", curated),
		zap.Int("skill_mappings", ont.SkillCount()),
	)
}

// suggestCanonical asks the AI suggester when available and falls back to the
// capitalized raw skill.
func suggestCanonical(ctx context.Context, suggester ai.Suggester, ont *ontology.Ontology, item ontology.UnmappedSkill, pace bool, log *zap.Logger) string {
	if suggester == nil {
		return item.SuggestedCanonical
	}

	if pace {
		if err := utils.WaitFor(ctx, suggestInterval); err != nil {
			return item.SuggestedCanonical
		}
	}

	suggestion, err := suggester.Suggest(ctx, item.Skill, ont.Canonicals())
	if err != nil {
		log.Warn("ai suggestion failed", zap.String("skill", item.Skill), zap.Error(err))
		return item.SuggestedCanonical
	}
	if suggestion.Canonical == "" {
		return item.SuggestedCanonical
	}

	log.Debug("ai suggestion",
		zap.String("skill", item.Skill),
		zap.String("canonical", suggestion.Canonical),
		zap.Float64("confidence", suggestion.Confidence),
		zap.String("reason", suggestion.Reason),
	)
	return suggestion.Canonical
}

func newAISuggester(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Suggester, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, errors.New("ai.gemini configuration is required for suggestions")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := log.With(
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Gemini.Model),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	minConfidence := cfg.MinConfidence
	if minConfidence < 0 {
		minConfidence = 0
	}

	return gemini.NewSuggester(generator, genLogger, minConfidence, cfg.Gemini.MaxLogLength), nil
}
