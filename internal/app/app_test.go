package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	artifactmemory "github.com/JakeFAU/site-cloner/internal/artifact/memory"
	"github.com/JakeFAU/site-cloner/internal/app"
	"github.com/JakeFAU/site-cloner/internal/config"
	publishermemory "github.com/JakeFAU/site-cloner/internal/publisher/memory"
	queuememory "github.com/JakeFAU/site-cloner/internal/queue/memory"
	storememory "github.com/JakeFAU/site-cloner/internal/store/memory"
)

func memoryConfig() config.Config {
	var cfg config.Config
	cfg.Store.Provider = "memory"
	cfg.Queue.Provider = "memory"
	cfg.Queue.Depth = 8
	cfg.Artifacts.Provider = "memory"
	cfg.Publisher.Provider = "memory"
	return cfg
}

func TestNewMemoryProviders(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	require.IsType(t, &storememory.JobStore{}, a.JobStore())
	require.IsType(t, &queuememory.Queue{}, a.Queue())
	require.IsType(t, &artifactmemory.Store{}, a.Artifacts())
	require.IsType(t, &publishermemory.Publisher{}, a.Publisher())
}

func TestNewLocalArtifacts(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.Artifacts.Provider = "local"
	cfg.Artifacts.BaseDir = t.TempDir()

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	ref, err := a.Artifacts().Put(context.Background(), "clones/x/a.html", "text/html", []byte("<html></html>"))
	require.NoError(t, err)
	body, err := a.Artifacts().Get(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(body))
}

func TestNewProviderErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr string
	}{
		{
			name:    "unknown store provider",
			mutate:  func(cfg *config.Config) { cfg.Store.Provider = "etcd" },
			wantErr: `unknown store provider "etcd"`,
		},
		{
			name:    "unknown queue provider",
			mutate:  func(cfg *config.Config) { cfg.Queue.Provider = "sqs" },
			wantErr: `unknown queue provider "sqs"`,
		},
		{
			name:    "unknown artifacts provider",
			mutate:  func(cfg *config.Config) { cfg.Artifacts.Provider = "s3" },
			wantErr: `unknown artifacts provider "s3"`,
		},
		{
			name:    "unknown publisher provider",
			mutate:  func(cfg *config.Config) { cfg.Publisher.Provider = "kafka" },
			wantErr: `unknown publisher provider "kafka"`,
		},
		{
			name:    "local artifacts without base dir",
			mutate:  func(cfg *config.Config) { cfg.Artifacts.Provider = "local" },
			wantErr: "local artifact store",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := memoryConfig()
			tc.mutate(&cfg)
			_, err := app.New(context.Background(), cfg, nil)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	a.Close()
	a.Close()
}
