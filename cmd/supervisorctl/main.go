// Command supervisorctl is the operator's inspection tool: a "workers"
// TUI listing every worker this caller can see, and a "tail" command
// printing a worker's recent log lines. Built on the bubbletea
// Model/Update/View pattern, narrowed from a live market table to a
// periodically-refreshed worker status table; the two subcommands
// mirror a supervisor CLI's typical inspection commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "supervisorctl",
		Usage: "operator inspection tool for a running supervisor",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://127.0.0.1:8080", Usage: "supervisor base URL"},
			&cli.StringFlag{Name: "token", Value: "", Usage: "bearer token (or SUPERVISORCTL_TOKEN env)"},
		},
		Commands: []*cli.Command{
			workersCommand(),
			tailCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bearerToken(cmd *cli.Command) string {
	if t := cmd.String("token"); t != "" {
		return t
	}

	return os.Getenv("SUPERVISORCTL_TOKEN")
}

func workersCommand() *cli.Command {
	return &cli.Command{
		Name:  "workers",
		Usage: "show a live table of every worker this token can see",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			model := newWorkerTableModel(cmd.String("url"), bearerToken(cmd))
			program := tea.NewProgram(model)

			_, err := program.Run()

			return err
		},
	}
}

func tailCommand() *cli.Command {
	return &cli.Command{
		Name:      "tail",
		Usage:     "print the last N log lines for a worker key",
		ArgsUsage: "<worker_key>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "lines", Value: 50, Usage: "number of trailing lines"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key := cmd.Args().First()
			if key == "" {
				return fmt.Errorf("tail requires a worker_key argument")
			}

			url := fmt.Sprintf("%s/api/workers/%s/logs?tail=%d", cmd.String("url"), key, cmd.Int("lines"))

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}

			if token := bearerToken(cmd); token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)

				return fmt.Errorf("supervisor returned %s: %s", resp.Status, body)
			}

			var payload struct {
				Lines []string `json:"lines"`
			}

			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return err
			}

			for _, line := range payload.Lines {
				fmt.Println(line)
			}

			return nil
		},
	}
}

// refreshInterval is how often the workers TUI re-polls /api/workers.
const refreshInterval = 2 * time.Second
