package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github/itish2003/docsearch/models"
)

// CommandEmbedder runs the embedding model as a subprocess:
//
//	<command> embeddings --model <model> --prompt <text>
//
// and parses the JSON it prints on stdout.
type CommandEmbedder struct {
	command string
	model   string
}

func NewCommandEmbedder(command, model string) *CommandEmbedder {
	return &CommandEmbedder{command: command, model: model}
}

func (c *CommandEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	cmd := exec.CommandContext(ctx, c.command, "embeddings", "--model", c.model, "--prompt", text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s exited with code %d: %s", c.command, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("failed to run %s: %w", c.command, err)
	}
	return parseCommandOutput(stdout.Bytes())
}

func parseCommandOutput(out []byte) ([]float32, error) {
	var parsed models.CommandEmbedOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("malformed embedding output: %w", err)
	}
	if len(parsed.Vector) > 0 {
		return parsed.Vector, nil
	}
	if len(parsed.Embedding) > 0 {
		return parsed.Embedding, nil
	}
	return nil, errors.New("embedding output has no vector field")
}
