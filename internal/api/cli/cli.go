// Package cli implements the pixelforge command-line client. It talks to
// a running server over its HTTP API.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pixelforge/pixelforge/pkg/errors"
)

var (
	serverURL      string
	requestTimeout time.Duration
	outputFormat   string

	versionLine = "dev"
)

// SetVersionInfo injects build-time version details into the root command
func SetVersionInfo(version, buildTime, gitCommit string) {
	versionLine = fmt.Sprintf("%s (built %s, commit %s)", version, buildTime, gitCommit)
}

var rootCmd = &cobra.Command{
	Use:   "pixelforge",
	Short: "PixelForge - UI code generation client",
	Long: `PixelForge CLI is a command-line client for a running PixelForge server.

It provides:
 - Component generation from a text prompt or a design image
 - Model inventory, status, and performance inspection
 - Server health checks`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	rootCmd.Version = versionLine
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "server base URL")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 60*time.Second, "request timeout")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table|json)")

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newModelCmd())
	rootCmd.AddCommand(newHealthCmd())
}

// getJSON issues a GET against the server and decodes the response body
// into out. Non-2xx responses surface the server's error payload.
func getJSON(path string, out interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL+path, nil)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "build request")
	}
	return doJSON(req, out)
}

// postJSON issues a POST with a JSON body and decodes the response
func postJSON(path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	encoded, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL+path, bytes.NewReader(encoded))
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON(req, out)
}

func doJSON(req *http.Request, out interface{}) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CodeInfrastructure, "reach server at "+serverURL)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.CodeInfrastructure, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error *errors.AppError `json:"error"`
		}
		if json.Unmarshal(payload, &envelope) == nil && envelope.Error != nil {
			return envelope.Error
		}
		return errors.Newf(errors.CodeInfrastructure, errors.ErrorTypeInfrastructure, resp.StatusCode,
			"server returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(payload, out)
}

// printJSON renders any payload as indented JSON on stdout
func printJSON(w io.Writer, payload interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
