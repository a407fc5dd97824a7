package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/specgate/specgate/internal/logging"
	"github.com/specgate/specgate/internal/sddpolicy"
	"github.com/specgate/specgate/internal/session"
)

// #region main

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var exitCode int
	switch os.Args[1] {
	case "open":
		exitCode = runOpen(os.Args[2:])
	case "refresh":
		exitCode = runRefresh(os.Args[2:])
	case "close":
		exitCode = runClose(os.Args[2:])
	case "status":
		exitCode = runStatus(os.Args[2:])
	case "eval":
		exitCode = runEval(os.Args[2:])
	default:
		usage()
		exitCode = 2
	}
	os.Exit(exitCode)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: sddctl open --change <id> [--ttl minutes] [--repo .]")
	fmt.Fprintln(os.Stderr, "       sddctl refresh [--ttl minutes] [--repo .]")
	fmt.Fprintln(os.Stderr, "       sddctl close [--repo .]")
	fmt.Fprintln(os.Stderr, "       sddctl status [--repo .] [--json]")
	fmt.Fprintln(os.Stderr, "       sddctl eval --stage PRE_COMMIT [--repo .] [--json]")
}

// #endregion main

// #region store-setup

func openStore(repoRoot string) (*session.Store, *session.SQLiteKV, error) {
	dbPath := envOr("SPECGATE_DB", filepath.Join(repoRoot, ".specgate.db"))
	kv, err := session.OpenKV(dbPath, repoRoot)
	if err != nil {
		return nil, nil, err
	}
	return session.NewStore(kv, repoRoot), kv, nil
}

// #endregion store-setup

// #region session-commands

func runOpen(args []string) int {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	repoRoot := fs.String("repo", ".", "repository root")
	changeID := fs.String("change", "", "change id under openspec/changes")
	ttl := fs.Int("ttl", 0, "session TTL in minutes (default 45)")
	fs.Parse(args)

	if *changeID == "" {
		fmt.Fprintln(os.Stderr, "usage: sddctl open --change <id> [--ttl minutes] [--repo .]")
		return 2
	}

	store, kv, err := openStore(*repoRoot)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer kv.Close()

	state, err := store.Open(time.Now().UTC(), *changeID, *ttl)
	if err != nil {
		return renderSessionError(err)
	}
	fmt.Printf("session open for change %s (expires %s)\n", state.ChangeID, state.ExpiresAt)
	return 0
}

func runRefresh(args []string) int {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	repoRoot := fs.String("repo", ".", "repository root")
	ttl := fs.Int("ttl", 0, "session TTL in minutes (default: previous TTL)")
	fs.Parse(args)

	store, kv, err := openStore(*repoRoot)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer kv.Close()

	state, err := store.Refresh(time.Now().UTC(), *ttl)
	if err != nil {
		return renderSessionError(err)
	}
	fmt.Printf("session refreshed for change %s (expires %s)\n", state.ChangeID, state.ExpiresAt)
	return 0
}

func runClose(args []string) int {
	fs := flag.NewFlagSet("close", flag.ExitOnError)
	repoRoot := fs.String("repo", ".", "repository root")
	fs.Parse(args)

	store, kv, err := openStore(*repoRoot)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer kv.Close()

	if _, err := store.Close(time.Now().UTC()); err != nil {
		fmt.Fprintf(os.Stderr, "close session: %v\n", err)
		return 1
	}
	fmt.Println("session closed")
	return 0
}

func renderSessionError(err error) int {
	switch {
	case errors.Is(err, session.ErrChangeNotFound),
		errors.Is(err, session.ErrChangeArchived),
		errors.Is(err, session.ErrNoActiveSession):
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	default:
		fmt.Fprintf(os.Stderr, "session store: %v\n", err)
		return 1
	}
}

// #endregion session-commands

// #region status-eval

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	repoRoot := fs.String("repo", ".", "repository root")
	jsonOut := fs.Bool("json", false, "output status as JSON")
	fs.Parse(args)

	store, kv, err := openStore(*repoRoot)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer kv.Close()

	engine := sddpolicy.NewEngine(*repoRoot, sddpolicy.NewCLITool(), store)
	status := engine.Status(time.Now().UTC())

	if *jsonOut {
		return printJSON(status)
	}

	fmt.Printf("repo:     %s\n", status.RepoRoot)
	fmt.Printf("openspec: installed=%v version=%s compatible=%v project=%v\n",
		status.OpenSpec.Installed, orDash(status.OpenSpec.Version),
		status.OpenSpec.Compatible, status.OpenSpec.ProjectInitialized)
	if status.Session.Active {
		remaining := "expired"
		if status.Session.RemainingSeconds != nil && *status.Session.RemainingSeconds > 0 {
			remaining = fmt.Sprintf("%ds left", *status.Session.RemainingSeconds)
		}
		fmt.Printf("session:  change=%s valid=%v (%s)\n",
			status.Session.ChangeID, status.Session.Valid, remaining)
	} else {
		fmt.Println("session:  none")
	}
	return 0
}

func runEval(args []string) int {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	repoRoot := fs.String("repo", ".", "repository root")
	stageArg := fs.String("stage", string(sddpolicy.StagePreCommit), "policy stage (PRE_WRITE|PRE_COMMIT|PRE_PUSH|CI)")
	jsonOut := fs.Bool("json", false, "output the full result as JSON")
	fs.Parse(args)

	stage, ok := parseStage(*stageArg)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown stage %q\n", *stageArg)
		return 2
	}

	store, kv, err := openStore(*repoRoot)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer kv.Close()

	engine := sddpolicy.NewEngine(*repoRoot, sddpolicy.NewCLITool(), store)
	now := time.Now().UTC()
	result := engine.Evaluate(now, stage)

	logEval(*repoRoot, result)

	if *jsonOut {
		if code := printJSON(result); code != 0 {
			return code
		}
	} else {
		verdict := color.New(color.FgRed, color.Bold).Sprint("BLOCKED")
		if result.Decision.Allowed {
			verdict = color.GreenString("ALLOWED")
		}
		fmt.Printf("[%s] %s %s\n", result.Stage, verdict, result.Decision.Code)
		fmt.Printf("  %s\n", result.Decision.Message)
		if result.Validation != nil {
			fmt.Printf("  validation: passed=%d failed=%d errors=%d warnings=%d\n",
				result.Validation.Totals.Passed, result.Validation.Totals.Failed,
				result.Validation.Issues.Errors, result.Validation.Issues.Warnings)
		}
	}

	if !result.Decision.Allowed {
		return 1
	}
	return 0
}

func parseStage(arg string) (sddpolicy.Stage, bool) {
	switch stage := sddpolicy.Stage(arg); stage {
	case sddpolicy.StagePreWrite, sddpolicy.StagePreCommit, sddpolicy.StagePrePush, sddpolicy.StageCI:
		return stage, true
	default:
		return "", false
	}
}

// logEval records the policy decision; logging failures never change the
// verdict.
func logEval(repoRoot string, result sddpolicy.Result) {
	dbPath := envOr("SPECGATE_DB", filepath.Join(repoRoot, ".specgate.db"))
	db, err := logging.Open(dbPath)
	if err != nil {
		log.Printf("logging error: %v", err)
		return
	}
	defer db.Close()

	detail, _ := json.Marshal(result.Decision.Details)
	err = logging.LogDecision(db, logging.DecisionEntry{
		RunID:      uuid.New().String(),
		Pipeline:   "sdd",
		Stage:      string(result.Stage),
		Outcome:    string(result.Decision.Code),
		Reason:     result.Decision.Message,
		DetailJSON: string(detail),
	})
	if err != nil {
		log.Printf("logging error: %v", err)
	}
}

// #endregion status-eval

// #region helpers

func printJSON(v interface{}) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal json: %v\n", err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
