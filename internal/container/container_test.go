package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Database.Path = ":memory:"
	cfg.Storage.BaseDir = t.TempDir()
	cfg.Server.Port = 0
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"zero response window", func(c *Config) { c.Workflow.ResponseWindow = 0 }, "response_window"},
		{"negative org cap", func(c *Config) { c.Workflow.OrgCap = -1 }, "org_cap"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "ftp" }, "unknown storage driver"},
		{"s3 without credentials", func(c *Config) {
			c.Storage.Driver = StorageDriverS3
			c.Storage.S3.Endpoint = "localhost:9000"
			c.Storage.S3.Bucket = "reimbursements"
		}, "credentials"},
		{"lark enabled without app id", func(c *Config) { c.Lark.Enabled = true }, "lark.app_id"},
		{"lark enabled", func(c *Config) {
			c.Lark.Enabled = true
			c.Lark.AppID = "cli_a"
			c.Lark.AppSecret = "secret"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewContainer_RejectsBadInput(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Workflow.OrgCap = 0
	_, err = NewContainer(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "invalid config")
}

func TestContainer_StartAndClose(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Ready())
	assert.ErrorContains(t, c.Start(context.Background()), "already started")

	health := c.Health()
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.True(t, health.Components["workers"].Healthy)

	assert.NotNil(t, c.WorkflowEngine())
	assert.NotNil(t, c.Server())
	assert.NotNil(t, c.Services().Statement)
	assert.Equal(t, 1, c.Workers().GetWorkerCount())

	user, err := c.Repositories().Users.GetByUsername(context.Background(), "mary-khan")
	require.NoError(t, err)
	require.NotNil(t, user)

	requests, err := c.WorkflowEngine().ListRequestsForUser(context.Background(), "mary-khan")
	require.NoError(t, err)
	assert.Empty(t, requests)

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.ErrorContains(t, c.Start(context.Background()), "closed")
}

func TestContainer_StartFailsOnBadMigrations(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.MigrationsDir = t.TempDir() + "/missing"

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)

	err = c.Start(context.Background())
	require.Error(t, err)
	assert.False(t, c.Ready())
	assert.False(t, c.Health().Overall)
}
