package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/relaycode/relay/internal/command"
	"github.com/relaycode/relay/internal/config"
	"github.com/relaycode/relay/internal/event"
	"github.com/relaycode/relay/internal/handoff"
	"github.com/relaycode/relay/internal/mcp"
	"github.com/relaycode/relay/internal/permission"
	"github.com/relaycode/relay/internal/provider"
	"github.com/relaycode/relay/internal/session"
	"github.com/relaycode/relay/internal/storage"
	"github.com/relaycode/relay/internal/tool"
	"github.com/relaycode/relay/internal/ui"
	"github.com/relaycode/relay/pkg/types"
)

var (
	runModel        string
	runAgent        string
	runContinue     bool
	runSession      string
	runFiles        []string
	runTitle        string
	runPrompt       string
	runPromptFile   string
	runPromptInline string
	runDir          string
)

var runCmd = &cobra.Command{
	Use:   "run [message...]",
	Short: "Send a message to a Relay session",
	Long: `Send a message to a Relay session and stream the response.

Examples:
  relay run "Fix the bug in main.go"
  relay run --model anthropic/claude-sonnet-4 "Explain this code"
  relay run --continue  # Continue last session
  relay run --file main.go "Review this file"`,
	RunE: runInteractive,
}

func init() {
	runCmd.Flags().StringVarP(&runModel, "model", "m", "", "Model to use (provider/model format)")
	runCmd.Flags().StringVar(&runAgent, "agent", "", "Agent to use")
	runCmd.Flags().BoolVarP(&runContinue, "continue", "c", false, "Continue the last session")
	runCmd.Flags().StringVarP(&runSession, "session", "s", "", "Session file to continue")
	runCmd.Flags().StringArrayVarP(&runFiles, "file", "f", nil, "File(s) to attach to message")
	runCmd.Flags().StringVar(&runTitle, "title", "", "Session title")
	runCmd.Flags().StringVar(&runPrompt, "prompt", "", "Custom prompt template")
	runCmd.Flags().StringVar(&runPromptFile, "prompt-file", "", "Custom prompt from file")
	runCmd.Flags().StringVar(&runPromptInline, "prompt-inline", "", "Custom prompt as inline text")
	runCmd.Flags().StringVar(&runDir, "directory", "", "Working directory")
}

func runInteractive(cmd *cobra.Command, args []string) error {
	// Determine working directory
	workDir, err := GetWorkDir(runDir)
	if err != nil {
		return err
	}

	// Initialize paths
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	// Load configuration
	appConfig, err := config.Load(workDir)
	if err != nil {
		return err
	}

	// Override model if specified
	if runModel != "" {
		appConfig.Model = runModel
	}

	// Operator tuning for context pressure
	if hcfg, err := config.LoadHandoff(workDir); err == nil {
		session.DefaultCompactionConfig.ContextThreshold = hcfg.Compaction.ContextThreshold
		session.DefaultCompactionConfig.MinMessagesToKeep = hcfg.Compaction.MinMessagesToKeep
		session.DefaultCompactionConfig.SummaryMaxTokens = hcfg.Compaction.SummaryMaxTokens
	}

	// Build message from args
	message := strings.Join(args, " ")
	if message == "" && !runContinue && runSession == "" {
		return fmt.Errorf("message required. Usage: relay run \"your message\"")
	}

	// Initialize storage and providers
	store := storage.New(paths.StoragePath())
	ctx := context.Background()
	providerReg, err := provider.InitializeProviders(ctx, appConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize providers: %w", err)
	}

	// Tool registry and permission checker
	toolReg := tool.DefaultRegistry(workDir, store)
	permChecker := permission.NewChecker()

	// Configured MCP servers contribute tools alongside the built-ins
	if len(appConfig.MCP) > 0 {
		mcpClient := mcp.Connect(ctx, appConfig.MCP)
		defer mcpClient.Close()
		mcp.RegisterMCPTools(mcpClient, toolReg)
	}

	// Session journal, hook bus, handoff engine
	journal := session.NewManager(filepath.Join(paths.StoragePath(), "sessions"))
	defer journal.Close()
	hooks := event.NewHookBus()
	term := ui.NewTerminal(os.Stdin, os.Stdout)
	engine := handoff.NewEngine(hooks, journal, term, providerReg)
	engine.Register()
	toolReg.Register(handoff.NewTool(engine))
	toolReg.Register(handoff.NewSessionQueryTool(providerReg))

	// Handle custom prompt
	var systemPrompt string
	if runPromptFile != "" {
		data, err := os.ReadFile(runPromptFile)
		if err != nil {
			return fmt.Errorf("failed to read prompt file: %w", err)
		}
		systemPrompt = string(data)
	} else if runPromptInline != "" {
		systemPrompt = runPromptInline
	} else if runPrompt != "" {
		// Try to read as file first, then use as inline
		if data, err := os.ReadFile(runPrompt); err == nil {
			systemPrompt = string(data)
		} else {
			systemPrompt = runPrompt
		}
	}

	// Handle file attachments - read and include in message
	var fileContent strings.Builder
	for _, file := range runFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", file, err)
		}
		fileContent.WriteString(fmt.Sprintf("\n\n--- File: %s ---\n%s", file, string(content)))
	}
	if fileContent.Len() > 0 {
		message = message + fileContent.String()
	}

	// Parse default provider and model from config
	defaultProviderID, defaultModelID := provider.ParseModelString(appConfig.Model)

	// Service owns the metadata store; the processor drives the loop
	svc := session.NewServiceWithProcessor(store, providerReg, toolReg, permChecker, defaultProviderID, defaultModelID)
	proc := svc.GetProcessor()
	proc.SetWorkDir(workDir)
	proc.SetHooks(hooks)
	proc.SetJournal(journal)

	// Open or create the journal session
	sessionFile := runSession
	if sessionFile == "" && runContinue {
		sessionFile = latestSessionFile(filepath.Join(paths.StoragePath(), "sessions"))
	}
	if sessionFile != "" {
		if err := journal.Open(sessionFile); err != nil {
			return fmt.Errorf("failed to open session: %w", err)
		}
	} else {
		if _, err := journal.NewSession(session.NewSessionOptions{}); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
	}

	// Session metadata record
	sess, err := svc.Create(ctx, workDir, runTitle)
	if err != nil {
		return err
	}

	// Slash commands dispatch before anything reaches the model
	executor := command.NewExecutor(workDir, appConfig)
	cctx := &command.Context{
		WorkDir:  workDir,
		Sessions: journal,
		Hooks:    hooks,
		UI:       term,
	}
	executor.RegisterHandler("handoff", func(ctx context.Context, cctx *command.Context, args string) {
		engine.HandleCommand(ctx, cctx, args)
	})
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go executor.Watch(watchCtx)

	if name, cmdArgs, ok := splitSlashCommand(message); ok {
		if executor.Dispatch(ctx, cctx, name, cmdArgs) {
			printPendingPrompt(term, journal)
			return nil
		}
		if result, err := executor.Execute(ctx, name, cmdArgs); err == nil {
			message = result.Prompt
		}
	}

	// Submitted input passes the input hook; collapsed handoff markers
	// expand here.
	inputResult := hooks.Run(&event.HookEvent{Type: event.Input, Data: &event.InputPayload{
		Text:   message,
		Source: "cli",
	}})
	if inputResult.Text != nil {
		message = *inputResult.Text
	}

	var modelRef *types.ModelRef
	if defaultProviderID != "" && defaultModelID != "" {
		modelRef = &types.ModelRef{ProviderID: defaultProviderID, ModelID: defaultModelID}
	}

	// Stream text parts to stdout as they arrive
	var printed int
	onUpdate := func(msg *types.Message, parts []types.Part) {
		for _, part := range parts {
			if p, ok := part.(*types.TextPart); ok {
				if len(p.Text) > printed {
					fmt.Print(p.Text[printed:])
					printed = len(p.Text)
				}
			}
		}
	}

	agent := session.DefaultAgent()
	if runAgent != "" {
		agent.Name = runAgent
	}
	agent.Prompt = systemPrompt

	if _, _, err := svc.ProcessMessage(ctx, sess, message, modelRef, agent, onUpdate); err != nil {
		return fmt.Errorf("processing error: %w", err)
	}

	fmt.Println()

	// A handoff tool call mid-turn lands its prompt after agent_end
	printPendingPrompt(term, journal)
	return nil
}

// splitSlashCommand parses "/name rest" into its pieces.
func splitSlashCommand(message string) (name, args string, ok bool) {
	if !strings.HasPrefix(message, "/") {
		return "", "", false
	}
	body := strings.TrimPrefix(message, "/")
	fields := strings.SplitN(body, " ", 2)
	name = fields[0]
	if name == "" {
		return "", "", false
	}
	if len(fields) > 1 {
		args = fields[1]
	}
	return name, args, true
}

// printPendingPrompt surfaces editor text a handoff staged.
func printPendingPrompt(term *ui.Terminal, journal *session.Manager) {
	text := term.TakeEditorText()
	if text == "" {
		return
	}
	fmt.Printf("\nNew session: %s\n", journal.SessionFile())
	fmt.Println("--- prompt (edit if needed, then submit with 'relay run') ---")
	fmt.Println(text)
}
