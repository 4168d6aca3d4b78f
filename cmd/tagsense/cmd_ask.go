package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tagsense/tagsense/llm"
	"github.com/tagsense/tagsense/llm/anthropic"
	"github.com/tagsense/tagsense/llm/openai"
	"github.com/tagsense/tagsense/memory"
	"github.com/tagsense/tagsense/prompts"
	"github.com/tagsense/tagsense/providers/aws"
	"github.com/tagsense/tagsense/retry"
	"github.com/tagsense/tagsense/scanner"
	"github.com/tagsense/tagsense/types"
)

var (
	askRegion      string
	askScanTypes   string
	askInteractive bool
)

var askCmd = &cobra.Command{
	Use:   "ask \"question\"",
	Short: "Ask the compliance assistant about your resources",
	Long: `Ask a question about tag compliance. With --scan, the listed
resource types are scanned first and the results are handed to the
assistant as context. With --interactive, questions are read from
stdin and the session keeps its conversation history, so follow-ups
can refer back to earlier answers.`,
	Example: `  tagsense ask "which tags should I require for cost allocation?"
  tagsense ask --scan ec2,rds "what is my biggest compliance gap?"
  tagsense ask --interactive --scan ec2`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&askRegion, "region", "r", "", "AWS region for --scan (defaults to configured region)")
	askCmd.Flags().StringVar(&askScanTypes, "scan", "", "Comma-separated resource types to scan for context")
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "Read questions from stdin, keeping conversation history")
}

func runAsk(cmd *cobra.Command, args []string) error {
	orch, err := buildOrchestrator()
	if err != nil {
		return err
	}

	tracker := scanner.NewContextTracker(0)
	if askScanTypes != "" {
		if err := scanForContext(cmd, tracker); err != nil {
			return err
		}
	}

	conversation := memory.NewConversation(0)

	if askInteractive {
		return askLoop(cmd, orch, conversation, tracker)
	}
	if len(args) == 0 {
		return fmt.Errorf("a question is required unless --interactive is set")
	}

	resp, err := askOnce(cmd.Context(), orch, conversation, tracker, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Content)
	return nil
}

// askOnce records the question in the conversation, sends the full
// retained history to the orchestrator, and records the answer.
func askOnce(ctx context.Context, orch *llm.Orchestrator, conversation *memory.Conversation, tracker *scanner.ContextTracker, question string) (*llm.Response, error) {
	conversation.AddTurn(llm.RoleUser, question)

	resp, err := orch.Generate(ctx, prompts.Thread(conversation.History(), tracker.RecentContext()), llm.Options{
		Model:       settings.LLM.Model,
		Temperature: settings.LLM.Temperature,
		MaxTokens:   settings.LLM.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	conversation.AddTurn(llm.RoleAssistant, resp.Content)

	logger.Debug().
		Str("provider", resp.Provider).
		Int("input_tokens", resp.InputTokens).
		Int("output_tokens", resp.OutputTokens).
		Bool("cached", resp.Cached).
		Msg("generation complete")
	return resp, nil
}

// askLoop reads questions from stdin until EOF or "exit". The shared
// conversation carries earlier turns into each generation.
func askLoop(cmd *cobra.Command, orch *llm.Orchestrator, conversation *memory.Conversation, tracker *scanner.ContextTracker) error {
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	fmt.Fprintln(out, `Ask about tag compliance ("exit" to leave).`)
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			break
		}
		question := strings.TrimSpace(in.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		resp, err := askOnce(cmd.Context(), orch, conversation, tracker, question)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, resp.Content)
	}
	return in.Err()
}

// buildOrchestrator wires adapters from settings. The primary must
// have a key; a fallback without one is silently dropped.
func buildOrchestrator() (*llm.Orchestrator, error) {
	primary, err := adapterFor(settings.LLM.Primary)
	if err != nil {
		return nil, err
	}
	if !primary.IsAvailable() {
		return nil, fmt.Errorf("no API key for primary provider %s", primary.Provider())
	}

	opts := []llm.OrchestratorOption{
		llm.WithRetryPolicy(retry.Policy{
			MaxAttempts: settings.Retry.MaxAttempts,
			BaseDelay:   settings.Retry.BaseDelay,
			MaxDelay:    settings.Retry.MaxDelay,
			Multiplier:  settings.Retry.Multiplier,
		}),
	}
	if settings.LLM.Fallback != "" && settings.LLM.Fallback != settings.LLM.Primary {
		fallback, err := adapterFor(settings.LLM.Fallback)
		if err != nil {
			return nil, err
		}
		if fallback.IsAvailable() {
			opts = append(opts, llm.WithFallback(fallback))
		}
	}
	if settings.LLM.CacheOn {
		opts = append(opts, llm.WithCache(llm.NewResponseCache(settings.LLM.CacheTTL)))
	}

	return llm.NewOrchestrator(primary, logger, opts...), nil
}

func adapterFor(name string) (llm.Adapter, error) {
	switch name {
	case openai.ProviderName:
		return openai.New(settings.LLM.OpenAIKey, settings.LLM.Model), nil
	case anthropic.ProviderName:
		return anthropic.New(settings.LLM.AnthropicKey, settings.LLM.Model), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", name)
}

func scanForContext(cmd *cobra.Command, tracker *scanner.ContextTracker) error {
	region := askRegion
	if region == "" {
		region = settings.Region
	}
	ctx := cmd.Context()

	provider, err := aws.NewProvider(ctx, region, logger)
	if err != nil {
		return err
	}
	for _, name := range strings.Split(askScanTypes, ",") {
		rt, err := types.ParseResourceType(strings.TrimSpace(name))
		if err != nil {
			return err
		}
		s, err := provider.Scanner(rt)
		if err != nil {
			return err
		}
		result, err := s.Scan(ctx, scanner.Filter{})
		if err != nil {
			return fmt.Errorf("context scan for %s: %w", rt, err)
		}
		tracker.RecordScan(result)
	}
	return nil
}
