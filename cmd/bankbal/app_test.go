package main

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

	"github.com/alicebob/miniredis/v2"
	"github.com/matsen/bankbal/internal/config"
	"github.com/matsen/bankbal/internal/dispatch"
	"github.com/matsen/bankbal/internal/gocardless"
	"github.com/matsen/bankbal/internal/logging"
	"github.com/matsen/bankbal/internal/spreadsheet"
	"github.com/matsen/bankbal/internal/tokencache"
)

// fakeSheet records sheet writes.
type fakeSheet struct {
	spreadsheetID string
	a1Range       string
	rows          [][]string
	err           error
}

func (f *fakeSheet) Update(_ context.Context, spreadsheetID, a1Range string, rows [][]string) error {
	f.spreadsheetID, f.a1Range, f.rows = spreadsheetID, a1Range, rows
	return f.err
}

// fakeBank serves the subset of the Bank Account Data API used by the actions.
func fakeBank(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		isToken := strings.HasPrefix(r.URL.Path, "/token/")
		if !isToken && r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"summary":"Invalid token","detail":"missing bearer","status_code":401}`))
			return
		}
		switch r.URL.Path {
		case "/token/new/":
			_, _ = w.Write([]byte(`{"access":"access-1","access_expires":86400,"refresh":"refresh-1","refresh_expires":2592000}`))
		case "/token/refresh/":
			_, _ = w.Write([]byte(`{"access":"access-1","access_expires":86400}`))
		case "/institutions/":
			_, _ = w.Write([]byte(`[
				{"id":"ACTIVOBANK_ACTVPTPL","name":"ActivoBank"},
				{"id":"BANCOCTT_CTTVPTPL","name":"Banco CTT"},
				{"id":"MILLENNIUM_BCOMPTPL","name":"Millennium BCP"}
			]`))
		case "/requisitions/":
			_, _ = w.Write([]byte(`{"id":"req-1","status":"CR","link":"https://ob.example/req-1","accounts":[]}`))
		case "/requisitions/req-1/":
			_, _ = w.Write([]byte(`{"id":"req-1","status":"LN","accounts":["acc-1"]}`))
		case "/accounts/acc-1/balances/":
			_, _ = w.Write([]byte(`{"balances":[
				{"balanceAmount":{"amount":"12.30","currency":"EUR"},"balanceType":"expected","referenceDate":"2026-10-01"},
				{"balanceAmount":{"amount":"10.50","currency":"EUR"},"balanceType":"interimBooked","referenceDate":"2026-10-02"}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"summary":"Not found.","detail":"Not found.","status_code":404}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	app    *app
	cfg    *config.Config
	sheet  *fakeSheet
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	srv := fakeBank(t)

	gcbad := filepath.Join(dir, "gcbad")
	gsheets := filepath.Join(dir, "gsheets")
	for _, d := range []string{gcbad, gsheets} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(gcbad, "user.json"), []byte(`{"secret_id":"sid","secret_key":"skey"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(gsheets, "sa.json"), []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.GCBADSecretsDir = gcbad
	cfg.GSheetsSecretsDir = gsheets
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.BaseURL = srv.URL
	cfg.AccountID = "acc-1"
	cfg.SpreadsheetID = "sheet-1"
	cfg.SheetRange = "Balances!A2"

	h := &harness{cfg: cfg, sheet: &fakeSheet{}}
	h.app = newApp(&h.stdout, &h.stderr, logging.NewNop())
	h.app.cfg = cfg
	h.app.newUpdater = func(context.Context, string) (spreadsheet.Updater, error) {
		return h.sheet, nil
	}
	return h
}

func (h *harness) run(args ...string) int {
	h.stdout.Reset()
	h.stderr.Reset()
	return h.app.run(context.Background(), args)
}

func TestRun_EmptyInvocationWritesBalance(t *testing.T) {
	h := newHarness(t)

	if code := h.run(); code != dispatch.ExitSuccess {
		t.Fatalf("exit = %d, stderr = %q", code, h.stderr.String())
	}

	if h.sheet.spreadsheetID != "sheet-1" || h.sheet.a1Range != "Balances!A2" {
		t.Errorf("sheet target = %q %q", h.sheet.spreadsheetID, h.sheet.a1Range)
	}
	if len(h.sheet.rows) != 1 || len(h.sheet.rows[0]) != 5 {
		t.Fatalf("rows = %v", h.sheet.rows)
	}
	row := h.sheet.rows[0]
	if row[0] != "10.50" || row[1] != "EUR" || row[2] != "interimBooked" || row[3] != "2026-10-02" {
		t.Errorf("row = %v", row)
	}
	if want := "Wrote 10.50 EUR (interimBooked) to sheet range Balances!A2\n"; h.stdout.String() != want {
		t.Errorf("stdout = %q, want %q", h.stdout.String(), want)
	}
	if h.stderr.Len() != 0 {
		t.Errorf("stderr = %q, want empty", h.stderr.String())
	}
}

func TestRun_RecordsHistory(t *testing.T) {
	h := newHarness(t)
	if code := h.run("run"); code != 0 {
		t.Fatalf("run exit = %d, stderr = %q", code, h.stderr.String())
	}

	if code := h.run("history", "--json"); code != 0 {
		t.Fatalf("history exit = %d, stderr = %q", code, h.stderr.String())
	}
	var snaps []map[string]any
	if err := json.Unmarshal(h.stdout.Bytes(), &snaps); err != nil {
		t.Fatalf("history output: %v\n%s", err, h.stdout.String())
	}
	if len(snaps) != 1 || snaps[0]["amount"] != "10.50" || snaps[0]["account_id"] != "acc-1" {
		t.Errorf("snapshots = %v", snaps)
	}
}

func TestRun_MissingSettingIsOneLine(t *testing.T) {
	h := newHarness(t)
	h.cfg.SpreadsheetID = ""

	if code := h.run(); code != dispatch.ExitRuntime {
		t.Fatalf("exit = %d, want %d", code, dispatch.ExitRuntime)
	}
	if want := "error: run: missing env GSHEET_ID\n"; h.stderr.String() != want {
		t.Errorf("stderr = %q, want %q", h.stderr.String(), want)
	}
	if h.sheet.rows != nil {
		t.Error("sheet must not be written")
	}
}

func TestRun_SheetFailure(t *testing.T) {
	h := newHarness(t)
	h.sheet.err = errors.New("permission denied")

	if code := h.run("run"); code != dispatch.ExitRuntime {
		t.Fatalf("exit = %d", code)
	}
	if !strings.HasPrefix(h.stderr.String(), "error: run: ") || strings.Count(h.stderr.String(), "\n") != 1 {
		t.Errorf("stderr = %q", h.stderr.String())
	}
	if h.stdout.Len() != 0 {
		t.Errorf("stdout = %q, want empty", h.stdout.String())
	}
}

func TestUnknownAction(t *testing.T) {
	h := newHarness(t)

	if code := h.run("frobnicate", "--x"); code != dispatch.ExitUsage {
		t.Fatalf("exit = %d, want %d", code, dispatch.ExitUsage)
	}
	msg := h.stderr.String()
	if !strings.Contains(msg, `"frobnicate"`) {
		t.Errorf("stderr %q does not name the action", msg)
	}
	want := "balance, create-requisition, help, history, institutions, requisition, run, version"
	if !strings.Contains(msg, want) {
		t.Errorf("stderr %q does not list %q", msg, want)
	}
	if h.sheet.rows != nil {
		t.Error("no handler may run")
	}
}

func TestInstitutions(t *testing.T) {
	h := newHarness(t)

	if code := h.run("institutions", "--search", "ctt"); code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, h.stderr.String())
	}
	if want := "BANCOCTT_CTTVPTPL\tBanco CTT\n"; h.stdout.String() != want {
		t.Errorf("stdout = %q, want %q", h.stdout.String(), want)
	}

	if code := h.run("institutions", "--json"); code != 0 {
		t.Fatalf("exit = %d", code)
	}
	var insts []map[string]any
	if err := json.Unmarshal(h.stdout.Bytes(), &insts); err != nil || len(insts) != 3 {
		t.Errorf("json = %v (%v)", insts, err)
	}
}

func TestBalance(t *testing.T) {
	h := newHarness(t)

	if code := h.run("balance", "--account-id", "acc-1"); code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, h.stderr.String())
	}
	if want := "10.50 EUR\tbalanceType=interimBooked\tref=2026-10-02\n"; h.stdout.String() != want {
		t.Errorf("stdout = %q, want %q", h.stdout.String(), want)
	}
	if h.sheet.rows != nil {
		t.Error("balance must not write the sheet")
	}
}

func TestRequisitions(t *testing.T) {
	h := newHarness(t)

	code := h.run("create-requisition", "--institution-id", "BANCOCTT_CTTVPTPL", "--redirect", "https://example.org/done")
	if code != 0 {
		t.Fatalf("create exit = %d, stderr = %q", code, h.stderr.String())
	}
	if !strings.Contains(h.stdout.String(), `"link": "https://ob.example/req-1"`) {
		t.Errorf("stdout = %s", h.stdout.String())
	}

	if code := h.run("requisition", "--requisition-id", "req-1"); code != 0 {
		t.Fatalf("requisition exit = %d, stderr = %q", code, h.stderr.String())
	}
	if !strings.Contains(h.stdout.String(), `"acc-1"`) {
		t.Errorf("stdout = %s", h.stdout.String())
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing required flag", []string{"balance"}},
		{"missing both flags", []string{"create-requisition"}},
		{"unknown flag", []string{"institutions", "--bogus"}},
		{"stray positional", []string{"run", "extra"}},
		{"bad limit", []string{"history", "--limit", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if code := h.run(tt.args...); code != dispatch.ExitUsage {
				t.Fatalf("exit = %d, want %d (stderr %q)", code, dispatch.ExitUsage, h.stderr.String())
			}
			prefix := "error: " + tt.args[0] + ": "
			if !strings.HasPrefix(h.stderr.String(), prefix) || strings.Count(h.stderr.String(), "\n") != 1 {
				t.Errorf("stderr = %q", h.stderr.String())
			}
		})
	}
}

func TestNotFoundIsRuntimeError(t *testing.T) {
	h := newHarness(t)

	if code := h.run("requisition", "--requisition-id", "missing"); code != dispatch.ExitRuntime {
		t.Fatalf("exit = %d, want %d", code, dispatch.ExitRuntime)
	}
	if !strings.Contains(h.stderr.String(), "404") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestConfigErrorOnlyAffectsActionsThatNeedIt(t *testing.T) {
	h := newHarness(t)
	h.app.cfg, h.app.cfgErr = nil, errors.New("parsing config file: bad yaml")

	if code := h.run("version"); code != 0 {
		t.Fatalf("version exit = %d", code)
	}
	if code := h.run("balance", "--account-id", "acc-1"); code != dispatch.ExitRuntime {
		t.Fatalf("balance exit = %d", code)
	}
	if !strings.Contains(h.stderr.String(), "bad yaml") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestHelpAndVersion(t *testing.T) {
	h := newHarness(t)

	if code := h.run("help"); code != 0 {
		t.Fatalf("help exit = %d", code)
	}
	for _, want := range []string{"Usage: bankbal", "create-requisition", "Start linking a bank account"} {
		if !strings.Contains(h.stdout.String(), want) {
			t.Errorf("help missing %q:\n%s", want, h.stdout.String())
		}
	}

	if code := h.run("version"); code != 0 || h.stdout.String() != "bankbal dev\n" {
		t.Errorf("version: exit %d, stdout %q", code, h.stdout.String())
	}

	if code := h.run("balance", "--help"); code != 0 || !strings.Contains(h.stdout.String(), "--account-id") {
		t.Errorf("balance --help: exit %d, stdout %q", code, h.stdout.String())
	}
}

func TestHistoryWithoutDatabase(t *testing.T) {
	h := newHarness(t)

	if code := h.run("history"); code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, h.stderr.String())
	}
	if h.stdout.String() != "No balances recorded\n" {
		t.Errorf("stdout = %q", h.stdout.String())
	}
	if _, err := os.Stat(h.cfg.HistoryPath()); !os.IsNotExist(err) {
		t.Error("history must not create the database")
	}
}

func TestMetricsTextfile(t *testing.T) {
	h := newHarness(t)
	h.cfg.MetricsTextfile = filepath.Join(t.TempDir(), "bankbal.prom")

	if code := h.run(); code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, h.stderr.String())
	}
	data, err := os.ReadFile(h.cfg.MetricsTextfile)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	for _, want := range []string{
		`bankbal_action_last_status{action="run"} 0`,
		`bankbal_balance_amount{account="acc-1",balance_type="interimBooked",currency="EUR"} 10.5`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}

func TestFilterInstitutions(t *testing.T) {
	insts := []gocardless.Institution{
		{ID: "ACTIVOBANK_ACTVPTPL", Name: "ActivoBank"},
		{ID: "BANCOCTT_CTTVPTPL", Name: "Banco CTT"},
	}

	if got := filterInstitutions(insts, "  "); len(got) != 2 {
		t.Errorf("blank query kept %d, want 2", len(got))
	}
	if got := filterInstitutions(insts, "actv"); len(got) != 1 || got[0].Name != "ActivoBank" {
		t.Errorf("id match = %v", got)
	}
	if got := filterInstitutions(insts, "BANCO ctt"); len(got) != 1 || got[0].ID != "BANCOCTT_CTTVPTPL" {
		t.Errorf("name match = %v", got)
	}
	if got := filterInstitutions(insts, "revolut"); len(got) != 0 {
		t.Errorf("no match = %v", got)
	}
}

func TestTokenCacheBackends(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		h := newHarness(t)
		if code := h.run("balance", "--account-id", "acc-1"); code != 0 {
			t.Fatalf("exit = %d, stderr = %q", code, h.stderr.String())
		}
		data, err := os.ReadFile(h.cfg.TokenCachePath())
		if err != nil {
			t.Fatalf("token cache not written: %v", err)
		}
		if !strings.Contains(string(data), `"refresh": "refresh-1"`) {
			t.Errorf("token cache = %s", data)
		}
	})

	t.Run("sealed redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		h := newHarness(t)
		h.cfg.RedisURL = "redis://" + mr.Addr()
		h.cfg.TokenCacheKey = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="

		if code := h.run("balance", "--account-id", "acc-1"); code != 0 {
			t.Fatalf("exit = %d, stderr = %q", code, h.stderr.String())
		}
		stored, err := mr.Get(tokencache.DefaultRedisKey)
		if err != nil {
			t.Fatalf("redis key missing: %v", err)
		}
		if strings.Contains(stored, "refresh-1") {
			t.Error("sealed token stored in clear")
		}
		if mr.TTL(tokencache.DefaultRedisKey) <= 0 {
			t.Error("token stored without TTL")
		}
		if _, err := os.Stat(h.cfg.TokenCachePath()); !os.IsNotExist(err) {
			t.Error("file cache must not be used with redis")
		}

		// A second invocation reuses the cached refresh token.
		if code := h.run("balance", "--account-id", "acc-1"); code != 0 {
			t.Fatalf("second exit = %d, stderr = %q", code, h.stderr.String())
		}
	})
}
