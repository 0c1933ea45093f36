package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/nao1215/scoperival/internal/mockapi"
	"github.com/nao1215/scoperival/internal/model"
	"github.com/nao1215/scoperival/internal/onboarding"
	"github.com/nao1215/scoperival/internal/report"
)

// cliEnv runs commands against an in-memory backend with an isolated
// configuration and local database.
type cliEnv struct {
	t          *testing.T
	configPath string
	dataDir    string
}

func newCLIEnv(t *testing.T, opts ...mockapi.Option) *cliEnv {
	t.Helper()
	clearEnv(t)

	opts = append([]mockapi.Option{mockapi.WithPasswordCost(bcrypt.MinCost)}, opts...)
	srv := httptest.NewServer(mockapi.New(opts...).Handler())
	t.Cleanup(srv.Close)

	dataDir := filepath.Join(t.TempDir(), "data")
	configPath := writeConfigFile(t, "api_url: \""+srv.URL+"\"\ndata_dir: \""+dataDir+"\"\n")
	return &cliEnv{t: t, configPath: configPath, dataDir: dataDir}
}

// run executes the CLI with args and stdin and returns stdout.
func (e *cliEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	stdout, _, err := e.runWithStderr(stdin, args...)
	return stdout, err
}

func (e *cliEnv) runWithStderr(stdin string, args ...string) (string, string, error) {
	e.t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"-c", e.configPath}, args...))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (e *cliEnv) mustRun(stdin string, args ...string) string {
	e.t.Helper()
	out, err := e.run(stdin, args...)
	if err != nil {
		e.t.Fatalf("scoperival %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestCLIWorkflow(t *testing.T) {
	scanner := mockapi.ScannerFunc(func(_ context.Context, c model.Competitor) ([]model.Change, error) {
		return []model.Change{{
			ChangeSummary:         c.CompanyName + " introduced usage-based pricing",
			StrategicImplications: "Price pressure on small customers.",
			SuggestedActions:      []string{"Review our entry plan"},
			SignificanceScore:     model.SignificanceCritical,
		}}, nil
	})
	e := newCLIEnv(t, mockapi.WithScanner(scanner))

	if _, err := e.run("", "whoami"); !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("whoami before login: got %v, want errNotLoggedIn", err)
	}

	out := e.mustRun("pw\n", "register", "--email", "a@b.com", "--company", "Acme", "--password-stdin")
	if !strings.Contains(out, "Registered") || !strings.Contains(out, "a@b.com") {
		t.Errorf("unexpected register output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(e.dataDir, "scoperival.db")); err != nil {
		t.Errorf("expected local database: %v", err)
	}

	// The token persists across invocations.
	out = e.mustRun("", "whoami")
	if !strings.Contains(out, "Company:  Acme") || !strings.Contains(out, "Expires:") {
		t.Errorf("unexpected whoami output:\n%s", out)
	}

	out = e.mustRun("", "add", "https://www.stripe.com", "--name", "Stripe", "--exclude", "blog", "--exclude", "news")
	if !strings.Contains(out, "Created Stripe (stripe.com)") {
		t.Errorf("unexpected add output:\n%s", out)
	}
	if !strings.Contains(out, "[ ] Blog") || !strings.Contains(out, "[x] Pricing") {
		t.Errorf("selection not shown:\n%s", out)
	}
	if !strings.Contains(out, "Added 6 pages for tracking") {
		t.Errorf("expected 6 saved pages:\n%s", out)
	}

	out = e.mustRun("", "add", "linear.app", "--name", "Linear", "--only", "pricing", "--dry-run")
	if !strings.Contains(out, "Dry run") {
		t.Errorf("unexpected dry-run output:\n%s", out)
	}

	out = e.mustRun("", "competitors")
	if !strings.Contains(out, "Stripe") || !strings.Contains(out, "linear.app") {
		t.Errorf("unexpected competitors output:\n%s", out)
	}

	out = e.mustRun("", "scan", "stripe.com")
	if !strings.Contains(out, "Scan completed. 1 changes detected.") || !strings.Contains(out, "CRITICAL (5/5)") {
		t.Errorf("unexpected scan output:\n%s", out)
	}
	e.mustRun("", "scan", "--all", "--concurrency", "2")

	out = e.mustRun("", "changes", "--json", "--competitor", "stripe.com")
	var doc report.FeedDocument
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("changes --json is not JSON: %v\n%s", err, out)
	}
	if doc.Count != 2 || doc.Changes[0].CompetitorName != "Stripe" {
		t.Errorf("unexpected feed document: %+v", doc)
	}

	reportPath := filepath.Join(t.TempDir(), "reports", "changes.md")
	e.mustRun("", "changes", "--markdown", "-o", reportPath, "--min-significance", "5")
	md, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("expected markdown report: %v", err)
	}
	if !strings.Contains(string(md), "[!CAUTION]") {
		t.Errorf("expected caution alert in report:\n%s", md)
	}

	out = e.mustRun("", "dashboard")
	if !strings.Contains(out, "Competitors:        2") || !strings.Contains(out, "High significance:  3") {
		t.Errorf("unexpected dashboard output:\n%s", out)
	}

	out = e.mustRun("", "history")
	if strings.Count(out, "succeeded") != 3 {
		t.Errorf("expected 3 journal entries:\n%s", out)
	}

	out = e.mustRun("n\n", "delete", "stripe.com")
	if !strings.Contains(out, "Cancelled.") {
		t.Errorf("unexpected delete output:\n%s", out)
	}
	out = e.mustRun("", "delete", "stripe.com", "--yes")
	if !strings.Contains(out, "Deleted Stripe (stripe.com).") {
		t.Errorf("unexpected delete output:\n%s", out)
	}
	if _, err := e.run("", "scan", "stripe.com"); err == nil {
		t.Error("expected scan of deleted competitor to fail")
	}

	e.mustRun("", "logout")
	e.mustRun("", "logout")
	if _, err := e.run("", "competitors"); !errors.Is(err, errNotLoggedIn) {
		t.Errorf("competitors after logout: got %v, want errNotLoggedIn", err)
	}
}

func TestCLILoginErrors(t *testing.T) {
	e := newCLIEnv(t)

	if _, err := e.run("pw\n", "login", "--email", "nobody@b.com", "--password-stdin"); err == nil {
		t.Fatal("expected login to fail")
	} else if got := describeError(err); got != "Incorrect email or password" {
		t.Errorf("describeError = %q", got)
	}

	if _, err := e.run("", "login", "--email", "a@b.com", "--password-stdin"); err == nil {
		t.Error("expected empty password to be rejected")
	}

	e.mustRun("pw\n", "register", "--email", "a@b.com", "--company", "Acme", "--password-stdin")
	e.mustRun("", "logout")
	out := e.mustRun("pw\n", "login", "--email", "a@b.com", "--password-stdin")
	if !strings.Contains(out, "Logged in") {
		t.Errorf("unexpected login output:\n%s", out)
	}
}

func TestCLIScanArgs(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun("pw\n", "register", "--email", "a@b.com", "--company", "Acme", "--password-stdin")

	if _, err := e.run("", "scan"); err == nil {
		t.Error("expected error without competitors")
	}
	if _, err := e.run("", "scan", "x", "--all"); err == nil {
		t.Error("expected error for competitors with --all")
	}
	out := e.mustRun("", "scan", "--all")
	if !strings.Contains(out, "No competitors to scan.") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := e.run("", "changes", "--min-significance", "7"); err == nil {
		t.Error("expected error for out of range significance")
	}
}

func TestCLIAddWithoutPages(t *testing.T) {
	t.Run("failed selection reports the created competitor", func(t *testing.T) {
		e := newCLIEnv(t)
		e.mustRun("pw\n", "register", "--email", "a@b.com", "--company", "Acme", "--password-stdin")

		_, stderr, err := e.runWithStderr("", "add", "stripe.com", "--name", "Stripe", "--only", "careers")
		if !errors.Is(err, onboarding.ErrUnknownPage) {
			t.Fatalf("add --only careers: got %v, want ErrUnknownPage", err)
		}
		if !strings.Contains(stderr, "was created without pages") || !strings.Contains(stderr, "scoperival delete") {
			t.Errorf("missing notice on stderr:\n%s", stderr)
		}
	})

	t.Run("dry run reports the created competitor", func(t *testing.T) {
		e := newCLIEnv(t)
		e.mustRun("pw\n", "register", "--email", "a@b.com", "--company", "Acme", "--password-stdin")

		_, stderr, err := e.runWithStderr("", "add", "stripe.com", "--name", "Stripe", "--dry-run")
		if err != nil {
			t.Fatalf("add --dry-run: %v", err)
		}
		if !strings.Contains(stderr, "was created without pages") {
			t.Errorf("missing notice on stderr:\n%s", stderr)
		}
	})

	t.Run("nothing discovered still saves", func(t *testing.T) {
		none := mockapi.DiscovererFunc(func(context.Context, string) ([]model.PageSuggestion, error) {
			return nil, nil
		})
		e := newCLIEnv(t, mockapi.WithDiscoverer(none))
		e.mustRun("pw\n", "register", "--email", "a@b.com", "--company", "Acme", "--password-stdin")

		out, stderr, err := e.runWithStderr("", "add", "stripe.com", "--name", "Stripe")
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if !strings.Contains(out, "No pages were discovered.") || !strings.Contains(out, "Added 0 pages for tracking") {
			t.Errorf("unexpected add output:\n%s", out)
		}
		if strings.Contains(stderr, "without pages") {
			t.Errorf("saved competitor reported as page-less:\n%s", stderr)
		}
	})
}
