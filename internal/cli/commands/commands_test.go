package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/docjoin/internal/cli/config"
	"github.com/leapstack-labs/docjoin/internal/cli/output"
	"github.com/leapstack-labs/docjoin/internal/sfauth"
	"github.com/leapstack-labs/docjoin/pkg/core"
)

// run executes cmd standalone with a fresh configuration.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestCommandMetadata(t *testing.T) {
	export := NewExportCommand(ExportDeps{})
	assert.Equal(t, "export", export.Use)
	assert.NotEmpty(t, export.Short)
	assert.NotEmpty(t, export.Example)
	for _, flag := range []string{
		"alias", "sitetracker-csv", "docid-col", "out", "out-files-only", "api-version",
		"login-url", "sitetracker-columns", "bulk-max-records", "encoding", "poll-interval",
		"interactive-login", "cli-path",
	} {
		assert.NotNil(t, export.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "merged_sitetracker_files.csv", export.Flags().Lookup("out").DefValue)
	assert.Equal(t, "sitetracker_files_only.csv", export.Flags().Lookup("out-files-only").DefValue)
	assert.Equal(t, "50000", export.Flags().Lookup("bulk-max-records").DefValue)

	id := NewIDCommand()
	assert.Equal(t, "id <id>...", id.Use)
	assert.NotEmpty(t, id.Example)

	initCmd := NewInitCommand()
	assert.NotNil(t, initCmd.Flags().Lookup("force"))
}

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantOut []string
	}{
		{name: "release", version: "1.2.3", wantOut: []string{"docjoin v1.2.3", "commit abc123"}},
		{name: "dev", version: "dev", wantOut: []string{"docjoin vdev"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, NewVersionCommand(tt.version, "2026-01-01", "abc123"))
			require.NoError(t, err)
			for _, want := range tt.wantOut {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestDescribeIDs(t *testing.T) {
	infos := DescribeIDs([]string{"001D000000IqhSL", " 001d000000iqhslIAZ ", "not-an-id"})
	require.Len(t, infos, 3)

	assert.Equal(t, output.IDInfo{Input: "001D000000IqhSL", ID15: "001D000000IqhSL", ID18: "001D000000IqhSLIAZ", Valid: true}, infos[0])
	assert.Equal(t, "001D000000IqhSL", infos[1].ID15)
	assert.Equal(t, "001D000000IqhSLIAZ", infos[1].ID18)
	assert.False(t, infos[2].Valid)
	assert.Empty(t, infos[2].ID18)
}

func TestIDCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := run(t, NewIDCommand(), "001D000000IqhSL")
	require.NoError(t, err)
	assert.Contains(t, out, "| Input | 15-char | 18-char | Valid |")
	assert.Contains(t, out, "| 001D000000IqhSL | 001D000000IqhSL | 001D000000IqhSLIAZ | yes |")

	t.Setenv("DOCJOIN_OUTPUT", "json")
	out, _, err = run(t, NewIDCommand(), "bogus")
	require.NoError(t, err)
	var infos []output.IDInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 1)
	assert.False(t, infos[0].Valid)

	_, _, err = run(t, NewIDCommand())
	assert.Error(t, err)
}

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name     string
		setupDir func(t *testing.T, dir string)
		args     []string
		wantErr  bool
		want     string
	}{
		{
			name: "init empty directory",
			want: "alias: my-org",
		},
		{
			name: "existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "docjoin.yaml"), []byte("existing"), 0o600))
			},
			wantErr: true,
		},
		{
			name: "existing config with force and alias",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "docjoin.yaml"), []byte("existing"), 0o600))
			},
			args: []string{"--force", "--alias", "prod"},
			want: "alias: prod",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.setupDir != nil {
				tt.setupDir(t, dir)
			}

			_, _, err := run(t, NewInitCommand(), append([]string{dir}, tt.args...)...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			data, err := os.ReadFile(filepath.Join(dir, "docjoin.yaml"))
			require.NoError(t, err)
			assert.Contains(t, string(data), tt.want)
			assert.Contains(t, string(data), "docid_col: Document_ID__c")

			// The file must load back through the config layer.
			config.ResetConfig()
			cfg, err := config.Load(filepath.Join(dir, "docjoin.yaml"), nil)
			require.NoError(t, err)
			assert.Equal(t, config.DefaultPollInterval, cfg.PollInterval)
			assert.Equal(t, "sitetracker_attachments.csv", cfg.SiteTrackerCSV)
		})
	}
}

const results = `"ContentDocumentId","Title","FileType","FileExtension","ContentSize","CreatedDate","CreatedById","CreatedBy.Name","LastModifiedDate","OwnerId"
"069XXXXXXXXXXXXAAA","plan.pdf","PDF","pdf","2097152","2024-03-01T10:00:00.000Z","005A","Ann","2024-03-02T10:00:00.000Z","005A"
`

func fakeOrg(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /services/data/v60.0/jobs/query", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"750C","state":"UploadComplete"}`))
	})
	mux.HandleFunc("GET /services/data/v60.0/jobs/query/750C", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"750C","state":"JobComplete"}`))
	})
	mux.HandleFunc("GET /services/data/v60.0/jobs/query/750C/results", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(results))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExportCommand(t *testing.T) {
	srv := fakeOrg(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("attachments.csv", []byte("Id,Doc\nA1,069XXXXXXXXXXXXAAA\nA2,\n"), 0o600))

	deps := ExportDeps{
		Tokens:     sfauth.Static(core.Credentials{AccessToken: "tok", InstanceURL: srv.URL}),
		HTTPClient: srv.Client(),
	}

	out, _, err := run(t, NewExportCommand(deps),
		"--alias", "prod",
		"--sitetracker-csv", "attachments.csv",
		"--docid-col", "Doc",
		"--poll-interval", "1ms",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "# Export complete")
	assert.Contains(t, out, "- **SiteTracker rows:** 2")
	assert.Contains(t, out, "- **Files:** 1 (2.00 MB)")
	assert.Contains(t, out, "- **Rows with no matched file size:** 1")
	assert.FileExists(t, filepath.Join(dir, "merged_sitetracker_files.csv"))
	assert.FileExists(t, filepath.Join(dir, "sitetracker_files_only.csv"))
}

func TestExportCommandJSON(t *testing.T) {
	srv := fakeOrg(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("in.csv", []byte("Doc\n069XXXXXXXXXXXXAAA\n"), 0o600))
	t.Setenv("DOCJOIN_OUTPUT", "json")
	t.Setenv("DOCJOIN_ALIAS", "prod")

	deps := ExportDeps{
		Tokens:     sfauth.Static(core.Credentials{AccessToken: "tok", InstanceURL: srv.URL}),
		HTTPClient: srv.Client(),
	}
	out, _, err := run(t, NewExportCommand(deps),
		"--sitetracker-csv", "in.csv", "--docid-col", "Doc", "--poll-interval", "1ms",
		"--out", "reports/merged.csv", "--out-files-only", "reports/files.csv")
	require.NoError(t, err)

	var sum output.ExportSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, 1, sum.FilesOnlyRows)
	assert.Equal(t, int64(2097152), sum.TotalBytes)
	assert.Equal(t, "2024-03-01T10:00:00Z", sum.EarliestCreated)
	assert.Equal(t, "reports/merged.csv", sum.MergedPath)
	assert.FileExists(t, filepath.Join(dir, "reports", "files.csv"))
}

func TestExportCommandErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("in.csv", []byte("Doc\n069XXXXXXXXXXXXAAA\n"), 0o600))

	authFail := sfauth.Func(func(context.Context, string) (core.Credentials, error) {
		return core.Credentials{}, &core.AuthError{Command: "sf org display --json --target-org prod", Stderr: "NamedOrgNotFound", Err: errors.New("exit status 1")}
	})

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantMsg  string
	}{
		{
			name:     "missing alias",
			args:     []string{"--sitetracker-csv", "in.csv", "--docid-col", "Doc"},
			wantCode: core.ExitConfig,
			wantMsg:  "alias",
		},
		{
			name:     "missing id column",
			args:     []string{"--alias", "prod", "--sitetracker-csv", "in.csv", "--docid-col", "Nope"},
			wantCode: core.ExitConfig,
			wantMsg:  "Nope",
		},
		{
			name:     "bad login url",
			args:     []string{"--alias", "prod", "--sitetracker-csv", "in.csv", "--docid-col", "Doc", "--login-url", "login.salesforce.com"},
			wantCode: core.ExitConfig,
			wantMsg:  "login_url",
		},
		{
			name:     "auth failure",
			args:     []string{"--alias", "prod", "--sitetracker-csv", "in.csv", "--docid-col", "Doc"},
			wantCode: core.ExitAuth,
			wantMsg:  "NamedOrgNotFound",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, NewExportCommand(ExportDeps{Tokens: authFail}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, core.ExitCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.NoFileExists(t, "merged_sitetracker_files.csv")
			assert.False(t, strings.Contains(err.Error(), "panic"))
		})
	}
}
