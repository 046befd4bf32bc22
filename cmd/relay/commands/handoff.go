package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/relaycode/relay/internal/command"
	"github.com/relaycode/relay/internal/config"
	"github.com/relaycode/relay/internal/event"
	"github.com/relaycode/relay/internal/handoff"
	"github.com/relaycode/relay/internal/provider"
	"github.com/relaycode/relay/internal/session"
	"github.com/relaycode/relay/internal/ui"
)

var handoffSessionFile string

var handoffCmd = &cobra.Command{
	Use:   "handoff <goal>",
	Short: "Hand the current session off to a new focused session",
	Long: `Generate a goal-directed summary of a session and start a new session
carrying it, parented to the old one.

The new session's prompt is printed for review; submit it with 'relay run'.

Examples:
  relay handoff "implement OAuth"
  relay handoff --session ~/.local/share/relay/sessions/ses_x.jsonl "fix the tests"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHandoff,
}

var handoffLogCmd = &cobra.Command{
	Use:   "log [session-file]",
	Short: "Show a session's handoff ancestry",
	Long:  `Walk a session's parent chain and print each ancestor, newest first.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHandoffLog,
}

func init() {
	handoffCmd.Flags().StringVarP(&handoffSessionFile, "session", "s", "", "Session file to hand off (default: most recent)")
	handoffCmd.AddCommand(handoffLogCmd)
}

// sessionsDir is where the journal store keeps session files.
func sessionsDir() string {
	return filepath.Join(config.GetPaths().StoragePath(), "sessions")
}

// latestSessionFile picks the newest session file; ULID-named files sort by
// creation time.
func latestSessionFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "ses_") && strings.HasSuffix(name, ".jsonl") {
			files = append(files, name)
		}
	}
	if len(files) == 0 {
		return ""
	}
	sort.Strings(files)
	return filepath.Join(dir, files[len(files)-1])
}

func runHandoff(cmd *cobra.Command, args []string) error {
	goal := strings.Join(args, " ")

	workDir, err := GetWorkDir("")
	if err != nil {
		return err
	}
	appConfig, err := config.Load(workDir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	providerReg, err := provider.InitializeProviders(ctx, appConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize providers: %w", err)
	}

	dir := sessionsDir()
	sessionFile := handoffSessionFile
	if sessionFile == "" {
		sessionFile = latestSessionFile(dir)
	}
	if sessionFile == "" {
		return fmt.Errorf("no session to hand off; start one with 'relay run'")
	}

	mgr := session.NewManager(dir)
	if err := mgr.Open(sessionFile); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer mgr.Close()

	hooks := event.NewHookBus()
	term := ui.NewTerminal(os.Stdin, os.Stdout)
	engine := handoff.NewEngine(hooks, mgr, term, providerReg)
	engine.Register()

	cctx := &command.Context{
		WorkDir:  workDir,
		Sessions: mgr,
		Hooks:    hooks,
		UI:       term,
	}

	engine.HandleCommand(ctx, cctx, goal)

	prompt := term.TakeEditorText()
	if prompt == "" {
		return nil
	}

	fmt.Printf("\nNew session: %s\n", mgr.SessionFile())
	fmt.Println("--- prompt (edit if needed, then submit with 'relay run') ---")
	fmt.Println(prompt)
	return nil
}

func runHandoffLog(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		path = latestSessionFile(sessionsDir())
	}
	if path == "" {
		return fmt.Errorf("no session file given and none found")
	}

	chain := handoff.Ancestry(path)
	for i, p := range chain {
		header, err := session.ReadHeader(p)
		switch {
		case err != nil:
			fmt.Printf("%d  %s  (unreadable: %v)\n", i, p, err)
		case header.ParentSession != "":
			fmt.Printf("%d  %s  <- %s\n", i, p, filepath.Base(header.ParentSession))
		default:
			fmt.Printf("%d  %s  (root)\n", i, p)
		}
	}
	return nil
}
