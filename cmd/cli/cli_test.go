package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/touristsafety/cmd/cli"
	"github.com/turtacn/touristsafety/internal/application/dto"
	"github.com/turtacn/touristsafety/internal/config"
	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/internal/infrastructure/crypto"
	"github.com/turtacn/touristsafety/pkg/constants"
)

const testSecret = "cli-test-secret"

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
database:
  driver: sqlite
  path: %s
model:
  model_path: %s
  scaler_path: %s
  n_estimators: 10
  max_depth: 6
  synthetic_samples: 300
providers:
  crime:
    enabled: false
auth:
  jwt_secret: %s
`, filepath.Join(dir, "test.db"), filepath.Join(dir, "model.json"), filepath.Join(dir, "scaler.json"), testSecret)
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	return file
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := cli.NewRootCommand(&out)
	root.SetArgs(args)
	root.SetErr(&bytes.Buffer{})
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, constants.ModelVersion)
}

func TestGenerateTrainPredict(t *testing.T) {
	cfgFile := writeConfig(t)
	dataFile := filepath.Join(t.TempDir(), "samples.json")

	out, err := runCLI(t, "generate", "--samples", "250", "--seed", "3", "--out", dataFile)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 250 samples")

	raw, err := os.ReadFile(dataFile)
	require.NoError(t, err)
	var samples []models.LabeledSample
	require.NoError(t, json.Unmarshal(raw, &samples))
	require.Len(t, samples, 250)

	out, err = runCLI(t, "--config", cfgFile, "train", "--data", dataFile)
	require.NoError(t, err)
	var trained dto.TrainResponse
	require.NoError(t, json.Unmarshal([]byte(out), &trained))
	assert.Equal(t, "supplied", trained.DataSource)
	assert.Equal(t, 250, trained.TrainingSamples+trained.TestSamples)

	out, err = runCLI(t, "--config", cfgFile, "predict", "--age", "70", "--group-size", "1", "--experience", "beginner")
	require.NoError(t, err)
	var a models.Assessment
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.NotEqual(t, models.OutcomeFailed, a.Outcome)
	assert.GreaterOrEqual(t, a.SafetyScore, 1)
	assert.LessOrEqual(t, a.SafetyScore, 10)

	_, err = runCLI(t, "--config", cfgFile, "predict", "--lat", "28.6")
	assert.Error(t, err)
}

func TestPredictWithoutModelFails(t *testing.T) {
	out, err := runCLI(t, "--config", writeConfig(t), "predict", "--age", "30")
	require.Error(t, err)
	assert.Contains(t, out, `"outcome": "failed"`)
}

func TestTrainRejectsInvalidData(t *testing.T) {
	dataFile := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(dataFile, []byte(`[{"tourist_data":{},"safety_score":11}]`), 0o600))

	_, err := runCLI(t, "--config", writeConfig(t), "train", "--data", dataFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestTripLifecycleWithoutChain(t *testing.T) {
	cfgFile := writeConfig(t)

	out, err := runCLI(t, "--config", cfgFile, "trip", "register", "--data", `{"destination":"Goa"}`, "--hours", "2")
	require.NoError(t, err)
	var reg models.TripRegistration
	require.NoError(t, json.Unmarshal([]byte(out), &reg))
	assert.True(t, strings.HasPrefix(reg.TripID, "TRIP_"))
	assert.Equal(t, models.TripLocalRegistered, reg.Status)
	assert.Equal(t, models.LocalFallbackTxHash, reg.TxHash)

	out, err = runCLI(t, "--config", cfgFile, "trip", "status", reg.TripID)
	require.NoError(t, err)
	var state models.TripState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, models.TripLocalActive, state.Status)
	assert.True(t, state.IsActive)

	out, err = runCLI(t, "--config", cfgFile, "trip", "delete", reg.TripID)
	require.NoError(t, err)
	assert.Contains(t, out, string(models.TripLocalDeleted))

	_, err = runCLI(t, "--config", cfgFile, "trip", "register", "--data", `not json`)
	assert.Error(t, err)
}

func TestCachePurge(t *testing.T) {
	cfgFile := writeConfig(t)

	out, err := runCLI(t, "--config", cfgFile, "cache", "purge")
	require.NoError(t, err)
	var res struct {
		Status  string         `json:"status"`
		Removed map[string]int `json:"removed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "purged", res.Status)
	assert.Empty(t, res.Removed, "crime and weather providers are disabled")
}

func TestTokenIssue(t *testing.T) {
	out, err := runCLI(t, "--config", writeConfig(t), "token", "issue", "--subject", "ops@example.com", "--ttl", "1h")
	require.NoError(t, err)

	tokens, err := crypto.NewJWTManager(config.AuthConfig{JWTSecret: testSecret, Issuer: "touristsafety"})
	require.NoError(t, err)
	claims, err := tokens.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, constants.AdminRole, claims.Role)
}
