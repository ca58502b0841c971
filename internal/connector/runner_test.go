package connector_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorewood/patchbay/internal/catalog"
	"github.com/gorewood/patchbay/internal/config"
	"github.com/gorewood/patchbay/internal/connector"
	"github.com/gorewood/patchbay/internal/credentials"
	"github.com/gorewood/patchbay/internal/fakeapi"
	"github.com/gorewood/patchbay/internal/output"
	"github.com/gorewood/patchbay/internal/rest"
	"github.com/gorewood/patchbay/internal/rest/resttest"
)

const (
	clickupToken = "pk_test_token"
	hubspotToken = "pat-test-token"
)

type harness struct {
	fake   *fakeapi.Server
	runner *connector.Runner
	timer  *resttest.Timer
	loader *credentials.Loader
	env    map[string]string
}

func newHarness(t *testing.T, pageSize int) *harness {
	t.Helper()
	fake := fakeapi.New(fakeapi.Config{
		ClickUpToken: clickupToken,
		HubSpotToken: hubspotToken,
		Teams: []fakeapi.Team{
			{ID: "9001", Name: "Acme"},
			{ID: "9002", Name: "Side Projects"},
		},
		PageSize: pageSize,
	})
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	// Every run shares one environment, so file values are not exported;
	// otherwise the first account loaded would shadow the rest.
	env := map[string]string{}
	loader := &credentials.Loader{
		Root:   t.TempDir(),
		Getenv: func(key string) string { return env[key] },
		Setenv: func(string, string) error { return nil },
	}
	settings := &config.Settings{
		HTTP: config.HTTPSettings{Timeout: 5 * time.Second, UserAgent: "patchbay/test"},
		Retry: config.RetrySettings{
			MaxRetries:      3,
			InitialInterval: time.Second,
			MaxInterval:     30 * time.Second,
			Multiplier:      2,
		},
		Connectors: map[string]config.ConnectorSettings{
			"clickup": {BaseURL: srv.URL + fakeapi.ClickUpPrefix},
			"hubspot": {BaseURL: srv.URL + fakeapi.HubSpotPrefix},
		},
	}
	timer := resttest.NewTimer()

	return &harness{
		fake:   fake,
		timer:  timer,
		loader: loader,
		env:    env,
		runner: &connector.Runner{
			Loader:     loader,
			Settings:   settings,
			HTTPClient: srv.Client(),
			Logger:     zerolog.Nop(),
			Timer:      timer,
		},
	}
}

func (h *harness) writeCreds(t *testing.T, conn, account, content string) {
	t.Helper()
	path := h.loader.Path(conn, account)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func (h *harness) withClickUp(t *testing.T) *harness {
	t.Helper()
	h.writeCreds(t, "clickup", "", "CLICKUP_API_TOKEN="+clickupToken+"\n")
	return h
}

func (h *harness) run(t *testing.T, name string, inv connector.Invocation) (*connector.Result, error) {
	t.Helper()
	parts := strings.Fields(name)
	require.Len(t, parts, 3, "target name")
	target, ok := catalog.Find(parts[0], parts[1], parts[2])
	require.True(t, ok, "unknown target %q", name)
	return h.runner.Run(context.Background(), target, inv)
}

// validInvocation fills every positional arg and required flag.
func validInvocation(op *connector.Operation) connector.Invocation {
	inv := connector.Invocation{Flags: map[string]string{}, Force: true}
	for range op.Args {
		inv.Args = append(inv.Args, "1")
	}
	for _, p := range op.Flags() {
		if !p.Required || p.FromKey != "" {
			continue
		}
		switch p.Kind {
		case connector.Int:
			inv.Flags[p.Flag] = "1"
		case connector.Bool:
			inv.Flags[p.Flag] = "true"
		case connector.JSON:
			inv.Flags[p.Flag] = "{}"
		default:
			inv.Flags[p.Flag] = "value"
		}
	}
	return inv
}

func TestRunWithoutCredentialFileMakesNoRequest(t *testing.T) {
	h := newHarness(t, 0)

	for _, conn := range catalog.All() {
		for ri := range conn.Resources {
			res := &conn.Resources[ri]
			for oi := range res.Operations {
				op := &res.Operations[oi]
				target := connector.Target{Connector: conn, Resource: res, Operation: op}
				t.Run(target.Name(), func(t *testing.T) {
					_, err := h.runner.Run(context.Background(), target, validInvocation(op))
					require.Error(t, err)

					var missing *credentials.MissingCredentialError
					require.ErrorAs(t, err, &missing)
					assert.True(t, missing.FileMissing)
					assert.Equal(t, output.ExitConfigError, output.GetExitCode(err))
				})
			}
		}
	}
	assert.Zero(t, h.fake.Count(), "no request may reach a vendor without credentials")
}

func TestRunMissingKeyIsConfigError(t *testing.T) {
	h := newHarness(t, 0)
	h.writeCreds(t, "clickup", "", "# token goes here\nCLICKUP_API_TOKEN=\n")

	_, err := h.run(t, "clickup workspaces list", connector.Invocation{})
	var missing *credentials.MissingCredentialError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "CLICKUP_API_TOKEN", missing.Key)
	assert.False(t, missing.FileMissing)
	assert.Zero(t, h.fake.Count())
}

func TestRunEnvironmentOverridesFile(t *testing.T) {
	h := newHarness(t, 0)
	h.writeCreds(t, "clickup", "", "CLICKUP_API_TOKEN=stale\n")
	h.env["CLICKUP_API_TOKEN"] = clickupToken

	_, err := h.run(t, "clickup workspaces list", connector.Invocation{})
	require.NoError(t, err)
	assert.Equal(t, clickupToken, h.fake.Requests()[0].Header.Get("Authorization"))
}

func TestRunRetriesRateLimit(t *testing.T) {
	h := newHarness(t, 0).withClickUp(t)
	h.fake.RateLimit(2, "")

	result, err := h.run(t, "clickup workspaces list", connector.Invocation{})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 3, h.fake.Count())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.timer.Delays())
}

func TestRunSurfacesRateLimitWhenBudgetExhausted(t *testing.T) {
	h := newHarness(t, 0).withClickUp(t)
	h.fake.RateLimit(100, "")

	_, err := h.run(t, "clickup workspaces list", connector.Invocation{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rest.ErrRateLimited))
	assert.Equal(t, output.ExitVendorError, output.GetExitCode(err))

	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, "APP_002", apiErr.Code)

	assert.Equal(t, 4, h.fake.Count(), "one call plus three retries")
	delays := h.timer.Delays()
	require.Len(t, delays, 3)
	for i := 1; i < len(delays); i++ {
		assert.Greater(t, delays[i], delays[i-1])
	}
}

func TestRunHonorsRetryAfter(t *testing.T) {
	h := newHarness(t, 0).withClickUp(t)
	h.fake.RateLimit(1, "7")

	_, err := h.run(t, "clickup workspaces list", connector.Invocation{})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{7 * time.Second}, h.timer.Delays())
}

func TestRunDestructiveRequiresApproval(t *testing.T) {
	tests := []struct {
		name        string
		confirm     connector.Confirmer
		force       bool
		wantErr     error
		wantCode    int
		wantDeletes int
	}{
		{
			name:     "no confirmer refuses",
			wantCode: output.ExitUserError,
		},
		{
			name:     "declined",
			confirm:  connector.ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil }),
			wantErr:  connector.ErrCancelled,
			wantCode: output.ExitUserError,
		},
		{
			name:     "confirmer fails",
			confirm:  connector.ConfirmFunc(func(context.Context, string) (bool, error) { return false, errors.New("no tty") }),
			wantCode: output.ExitUserError,
		},
		{
			name:        "approved",
			confirm:     connector.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil }),
			wantDeletes: 1,
		},
		{
			name: "forced",
			confirm: connector.ConfirmFunc(func(context.Context, string) (bool, error) {
				return false, errors.New("confirmer must not be asked")
			}),
			force:       true,
			wantDeletes: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 0).withClickUp(t)
			h.runner.Confirm = tt.confirm
			id := h.fake.AddTask("L1", "Old task")

			_, err := h.run(t, "clickup tasks delete", connector.Invocation{Args: []string{id}, Force: tt.force})
			if tt.wantDeletes == 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, output.GetExitCode(err))
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantDeletes, h.fake.CountMethod(http.MethodDelete))
		})
	}
}

func TestRunConfirmPromptNamesTheCall(t *testing.T) {
	h := newHarness(t, 0).withClickUp(t)
	var prompt string
	h.runner.Confirm = connector.ConfirmFunc(func(_ context.Context, p string) (bool, error) {
		prompt = p
		return false, nil
	})

	_, err := h.run(t, "clickup tasks delete", connector.Invocation{Args: []string{"abc123"}})
	require.ErrorIs(t, err, connector.ErrCancelled)
	assert.Contains(t, prompt, "clickup tasks delete abc123")
	assert.Contains(t, prompt, "cannot be undone")
}

func TestRunCreateThenList(t *testing.T) {
	h := newHarness(t, 0).withClickUp(t)

	created, err := h.run(t, "clickup tasks create", connector.Invocation{
		Args:  []string{"L1"},
		Flags: map[string]string{"name": "Write report", "priority": "2"},
		Data:  `{"description": "quarterly", /* tags below */ "tags": ["ops"],}`,
	})
	require.NoError(t, err)
	id, _ := created.Object()["id"].(string)
	require.NotEmpty(t, id)

	listed, err := h.run(t, "clickup tasks list", connector.Invocation{Args: []string{"L1"}})
	require.NoError(t, err)
	assert.Contains(t, listed.Summaries(), connector.Summary{ID: id, Name: "Write report"})

	got, err := h.run(t, "clickup tasks get", connector.Invocation{Args: []string{id}})
	require.NoError(t, err)
	task := got.Object()
	assert.Equal(t, "quarterly", task["description"])
	assert.Equal(t, []any{"ops"}, task["tags"])
}

func TestRunCacheServesReadsUntilWrite(t *testing.T) {
	h := newHarness(t, 0).withClickUp(t)
	// The vendor marks every read fresh for a minute.
	cached := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set("Cache-Control", "max-age=60")
		}
		h.fake.ServeHTTP(w, r)
	}))
	t.Cleanup(cached.Close)
	h.runner.Settings.Connectors["clickup"] = config.ConnectorSettings{BaseURL: cached.URL + fakeapi.ClickUpPrefix}
	h.runner.Cache = true

	list := connector.Invocation{Args: []string{"L1"}}
	before, err := h.run(t, "clickup tasks list", list)
	require.NoError(t, err)
	assert.Empty(t, before.Items)

	_, err = h.run(t, "clickup tasks list", list)
	require.NoError(t, err)
	assert.Equal(t, 1, h.fake.CountMethod(http.MethodGet), "second read comes from the cache")

	created, err := h.run(t, "clickup tasks create", connector.Invocation{
		Args:  []string{"L1"},
		Flags: map[string]string{"name": "Fresh task"},
	})
	require.NoError(t, err)
	id, _ := created.Object()["id"].(string)
	require.NotEmpty(t, id)

	after, err := h.run(t, "clickup tasks list", list)
	require.NoError(t, err)
	assert.Contains(t, after.Summaries(), connector.Summary{ID: id, Name: "Fresh task"})
	assert.Equal(t, 2, h.fake.CountMethod(http.MethodGet))
}

func TestRunWorkspacesList(t *testing.T) {
	h := newHarness(t, 0).withClickUp(t)

	result, err := h.run(t, "clickup workspaces list", connector.Invocation{})
	require.NoError(t, err)
	assert.True(t, result.IsList())
	assert.Equal(t, []connector.Summary{
		{ID: "9001", Name: "Acme"},
		{ID: "9002", Name: "Side Projects"},
	}, result.Summaries())
	assert.Equal(t, [][]string{{"9001", "Acme"}, {"9002", "Side Projects"}}, result.Rows())
}

func TestRunGetMissingTaskIsNotFound(t *testing.T) {
	h := newHarness(t, 0).withClickUp(t)

	_, err := h.run(t, "clickup tasks get", connector.Invocation{Args: []string{"nope"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, rest.ErrNotFound)
	assert.Equal(t, output.ExitVendorError, output.GetExitCode(err))

	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "ITEM_017", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "Task not found")
	assert.Equal(t, 1, h.fake.Count(), "not-found is never retried")
}

func TestRunBadTokenIsUnauthorized(t *testing.T) {
	h := newHarness(t, 0)
	h.writeCreds(t, "clickup", "", "CLICKUP_API_TOKEN=pk_wrong\n")

	_, err := h.run(t, "clickup workspaces list", connector.Invocation{})
	assert.ErrorIs(t, err, rest.ErrUnauthorized)
	assert.Equal(t, 1, h.fake.Count())
}

func TestRunValidatesBeforeLoadingCredentials(t *testing.T) {
	h := newHarness(t, 0)

	tests := []struct {
		name string
		inv  connector.Invocation
		want string
	}{
		{"missing arg", connector.Invocation{}, "requires exactly 1 arg"},
		{"missing required flag", connector.Invocation{Args: []string{"L1"}}, "--name"},
		{"unknown flag", connector.Invocation{Args: []string{"L1"}, Flags: map[string]string{"name": "x", "colour": "red"}}, "colour"},
		{"bad int", connector.Invocation{Args: []string{"L1"}, Flags: map[string]string{"name": "x", "priority": "high"}}, "not an integer"},
		{"bad data", connector.Invocation{Args: []string{"L1"}, Flags: map[string]string{"name": "x"}, Data: "{"}, "not valid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.run(t, "clickup tasks create", tt.inv)
			require.Error(t, err)
			assert.Equal(t, output.ExitUserError, output.GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.Zero(t, h.fake.Count())
}

func TestRunAllPages(t *testing.T) {
	h := newHarness(t, 2).withClickUp(t)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		h.fake.AddTask("L1", name)
	}

	first, err := h.run(t, "clickup tasks list", connector.Invocation{Args: []string{"L1"}})
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)

	all, err := h.run(t, "clickup tasks list", connector.Invocation{Args: []string{"L1"}, All: true})
	require.NoError(t, err)
	assert.Len(t, all.Items, 5)
	assert.Equal(t, 3, all.Pages)
	assert.JSONEq(t, string(all.Body), "["+joinRaw(all.Items)+"]")
}

func joinRaw(items []json.RawMessage) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = string(item)
	}
	return strings.Join(parts, ",")
}

func TestRunHubSpotAccounts(t *testing.T) {
	h := newHarness(t, 2)
	h.writeCreds(t, "hubspot", "", "HUBSPOT_ACCESS_TOKEN=pat-default\n")
	h.writeCreds(t, "hubspot", "client-a", "HUBSPOT_ACCESS_TOKEN="+hubspotToken+"\n")

	_, err := h.run(t, "hubspot contacts list", connector.Invocation{})
	assert.ErrorIs(t, err, rest.ErrUnauthorized, "default account uses its own token")

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := h.run(t, "hubspot contacts create", connector.Invocation{
			Account: "client-a",
			Flags:   map[string]string{"email": email},
		})
		require.NoError(t, err)
	}

	all, err := h.run(t, "hubspot contacts list", connector.Invocation{Account: "client-a", All: true})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Pages)
	var emails []string
	for _, s := range all.Summaries() {
		emails = append(emails, s.Name)
	}
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, emails)

	last := h.fake.Requests()[h.fake.Count()-1]
	assert.Equal(t, "Bearer "+hubspotToken, last.Header.Get("Authorization"))
}

func TestRunHubSpotConflict(t *testing.T) {
	h := newHarness(t, 0)
	h.writeCreds(t, "hubspot", "", "HUBSPOT_ACCESS_TOKEN="+hubspotToken+"\n")
	h.fake.AddContact("dup@example.com")

	_, err := h.run(t, "hubspot contacts create", connector.Invocation{Flags: map[string]string{"email": "dup@example.com"}})
	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "CONFLICT", apiErr.Code)
}

func TestRunHubSpotAssociations(t *testing.T) {
	h := newHarness(t, 0)
	h.writeCreds(t, "hubspot", "", "HUBSPOT_ACCESS_TOKEN="+hubspotToken+"\n")
	h.runner.Confirm = connector.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

	_, err := h.run(t, "hubspot associations create", connector.Invocation{Args: []string{"contacts", "101", "companies", "202"}})
	require.NoError(t, err)

	listed, err := h.run(t, "hubspot associations list", connector.Invocation{Args: []string{"contacts", "101", "companies"}})
	require.NoError(t, err)
	require.Len(t, listed.Rows(), 1)
	assert.Equal(t, "202", listed.Rows()[0][0])

	_, err = h.run(t, "hubspot associations remove", connector.Invocation{Args: []string{"contacts", "101", "companies", "202"}})
	require.NoError(t, err)

	listed, err = h.run(t, "hubspot associations list", connector.Invocation{Args: []string{"contacts", "101", "companies"}})
	require.NoError(t, err)
	assert.Empty(t, listed.Items)
}

func TestRunAccountOnSingleAccountConnector(t *testing.T) {
	h := newHarness(t, 0).withClickUp(t)

	_, err := h.run(t, "clickup workspaces list", connector.Invocation{Account: "other"})
	require.Error(t, err)
	assert.Equal(t, output.ExitUserError, output.GetExitCode(err))
	assert.Zero(t, h.fake.Count())
}

func TestRunInvalidAccountName(t *testing.T) {
	h := newHarness(t, 0)

	_, err := h.run(t, "hubspot contacts list", connector.Invocation{Account: "../clickup"})
	require.Error(t, err)
	assert.Equal(t, output.ExitUserError, output.GetExitCode(err))
}

func TestRunDefaultAccountFromSettings(t *testing.T) {
	h := newHarness(t, 0)
	h.writeCreds(t, "hubspot", "client-b", "HUBSPOT_ACCESS_TOKEN="+hubspotToken+"\n")
	conf := h.runner.Settings.Connectors["hubspot"]
	conf.Account = "client-b"
	h.runner.Settings.Connectors["hubspot"] = conf

	_, err := h.run(t, "hubspot contacts list", connector.Invocation{})
	require.NoError(t, err)
}

func TestRunSendsUserAgent(t *testing.T) {
	h := newHarness(t, 0).withClickUp(t)

	_, err := h.run(t, "clickup workspaces list", connector.Invocation{})
	require.NoError(t, err)
	assert.Equal(t, "patchbay/test", h.fake.Requests()[0].Header.Get("User-Agent"))
}
