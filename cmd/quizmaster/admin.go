package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/quizmasterpro/quizmaster/internal/apiclient"
	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/validate"
)

// adminFlags are shared by the commands that act on the API as an admin.
func adminFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("api-url", "http://localhost:5000", "Quiz Master API base URL")
	f.Duration("api-timeout", 30*time.Second, "Timeout for a single API call")
	f.StringP("username", "u", "admin", "Admin username")
	f.StringP("password", "p", "", "Admin password (prompted when empty, or set QUIZMASTER_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func exportScoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-scores",
		Short: "Download all quiz scores as JSON",
		RunE:  runExportScores,
	}
	adminFlags(cmd)
	f := cmd.Flags()
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.Bool("trigger", false, "Also start the server-side CSV export job")
	return cmd
}

func importQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-questions",
		Short: "Create quiz questions from a YAML question bank",
		RunE:  runImportQuestions,
	}
	adminFlags(cmd)
	f := cmd.Flags()
	f.Int64("quiz-id", 0, "Quiz that receives the questions (required)")
	f.StringP("file", "f", "", "YAML question bank (required)")

	_ = cmd.MarkFlagRequired("quiz-id")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// readPassword prompts on the terminal without echo, or reads a line when
// stdin is not a terminal.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// adminClient logs in through the admin endpoint and returns a client
// carrying the token.
func adminClient(ctx context.Context, v *viper.Viper) (*apiclient.Client, error) {
	api := apiclient.New(strings.TrimRight(v.GetString("api-url"), "/"),
		apiclient.WithTimeout(v.GetDuration("api-timeout")))

	cred := model.Credentials{Username: v.GetString("username"), Password: v.GetString("password")}
	if cred.Password == "" {
		pw, err := readPassword(fmt.Sprintf("Password for %s: ", cred.Username))
		if err != nil {
			return nil, err
		}
		cred.Password = pw
	}
	if err := validate.Struct(cred); err != nil {
		return nil, err
	}

	resp, err := api.AdminLogin(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("admin login: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("admin login: reply carries no access token")
	}
	slog.Info("logged in", "username", resp.Username)
	return api.WithToken(resp.AccessToken), nil
}

func runExportScores(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	api, err := adminClient(ctx, v)
	if err != nil {
		return err
	}

	scores, err := api.AllScores(ctx)
	if err != nil {
		return fmt.Errorf("fetch scores: %w", err)
	}

	export := model.ScoresExport{
		ExportedAt: time.Now().UTC(),
		APIURL:     v.GetString("api-url"),
		Count:      len(scores),
		Subjects:   model.SummarizeScores(scores),
		Scores:     scores,
	}

	if v.GetBool("trigger") {
		job, err := api.ExportScores(ctx)
		if err != nil {
			return fmt.Errorf("start CSV export: %w", err)
		}
		slog.Info("CSV export started", "task_id", job.TaskID)
		export.TaskID = job.TaskID
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	slog.Info("exported scores", "count", len(scores), "subjects", len(export.Subjects))
	return nil
}

// loadQuestionBank parses and validates a YAML question bank. Every entry
// is checked before anything is sent to the API.
func loadQuestionBank(data []byte) ([]model.QuestionImport, error) {
	var bank []model.QuestionImport
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if len(bank) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}
	for i, qi := range bank {
		if err := validate.Struct(qi); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return bank, nil
}

func runImportQuestions(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	quizID := v.GetInt64("quiz-id")
	if quizID <= 0 {
		return fmt.Errorf("--quiz-id must be positive")
	}

	path := v.GetString("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	bank, err := loadQuestionBank(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	api, err := adminClient(ctx, v)
	if err != nil {
		return err
	}

	for i, qi := range bank {
		q, err := api.CreateQuestion(ctx, qi.Question(quizID))
		if err != nil {
			return fmt.Errorf("create question %d of %s: %w", i+1, path, err)
		}
		slog.Debug("created question", "id", q.ID, "quiz_id", quizID)
	}
	slog.Info("imported questions", "path", path, "quiz_id", quizID, "count", len(bank))
	return nil
}
