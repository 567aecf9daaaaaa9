package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/docsearch/config"
	"github/itish2003/docsearch/models"
)

func TestGuardedEmbedder(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("model crashed")

	tests := []struct {
		name    string
		inner   EmbedderFunc
		wantErr error
	}{
		{
			name:  "exact dimension",
			inner: func(context.Context, string) ([]float32, error) { return make([]float32, 4), nil },
		},
		{
			name:    "inner error",
			inner:   func(context.Context, string) ([]float32, error) { return nil, cause },
			wantErr: cause,
		},
		{
			name:    "empty vector",
			inner:   func(context.Context, string) ([]float32, error) { return []float32{}, nil },
			wantErr: models.ErrEmbedding,
		},
		{
			name:    "too short",
			inner:   func(context.Context, string) ([]float32, error) { return make([]float32, 3), nil },
			wantErr: models.ErrEmbedding,
		},
		{
			name:    "too long",
			inner:   func(context.Context, string) ([]float32, error) { return make([]float32, 5), nil },
			wantErr: models.ErrEmbedding,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, err := NewGuardedEmbedder(tt.inner, 4, 0).Embed(ctx, "text")
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Len(t, vec, 4)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrEmbedding)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, vec)
		})
	}
}

func TestGuardedEmbedder_Timeout(t *testing.T) {
	slow := EmbedderFunc(func(ctx context.Context, _ string) ([]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, err := NewGuardedEmbedder(slow, 4, 10*time.Millisecond).Embed(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, models.ErrEmbedding)
}

func TestOllamaEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req models.OllamaEmbedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		switch req.Prompt {
		case "fail":
			http.Error(w, "model not found", http.StatusNotFound)
		case "garbage":
			w.Write([]byte("{not json"))
		default:
			json.NewEncoder(w).Encode(models.OllamaEmbedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
		}
	}))
	defer server.Close()

	e := NewOllamaEmbedder(server.Client(), server.URL+"/", "nomic-embed-text")

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)

	_, err = e.Embed(context.Background(), "fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = e.Embed(context.Background(), "garbage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestOllamaAPIEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"embedding":[0.5,-0.25]}`))
	}))
	defer server.Close()

	e, err := NewOllamaAPIEmbedder(server.URL, "nomic-embed-text")
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25}, vec)
}

func TestParseCommandOutput(t *testing.T) {
	vec, err := parseCommandOutput([]byte(`{"vector":[1,2,3]}`))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)

	vec, err = parseCommandOutput([]byte(`{"embedding":[4,5]}`))
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5}, vec)

	_, err = parseCommandOutput([]byte(`{"other":[1]}`))
	assert.Error(t, err)

	_, err = parseCommandOutput([]byte(`Error: model "x" not found`))
	assert.Error(t, err)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-ollama")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestCommandEmbedder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	ok := writeScript(t, `[ "$1" = "embeddings" ] && [ "$3" = "nomic-embed-text" ] && echo '{"vector":[0.1,0.2]}'`)
	vec, err := NewCommandEmbedder(ok, "nomic-embed-text").Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)

	failing := writeScript(t, `echo "model not found" >&2; exit 3`)
	_, err = NewCommandEmbedder(failing, "nomic-embed-text").Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code 3")
	assert.Contains(t, err.Error(), "model not found")

	_, err = NewCommandEmbedder(filepath.Join(t.TempDir(), "missing"), "m").Embed(context.Background(), "hello")
	assert.Error(t, err)
}

func TestNewEmbedder(t *testing.T) {
	ctx := context.Background()
	for _, typ := range []string{"ollama", "ollama-api", "command"} {
		t.Run(typ, func(t *testing.T) {
			cfg := config.Default().Embedder
			cfg.Type = typ
			e, err := NewEmbedder(ctx, cfg, 768)
			require.NoError(t, err)
			assert.IsType(t, &guardedEmbedder{}, e)
		})
	}

	cfg := config.Default().Embedder
	cfg.Type = "bert"
	_, err := NewEmbedder(ctx, cfg, 768)
	assert.Error(t, err)
}
