package sqlexec

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestExecutor() *Executor {
	return New(nil, 0, zerolog.Nop())
}

func TestRunRejectsNonSelect(t *testing.T) {
	e := newTestExecutor()
	_, err := e.Run(context.Background(), `UPDATE "Vehicles" SET "Price" = 1`, nil)
	if err == nil {
		t.Fatalf("expected rejection of a non-SELECT statement")
	}
}

func TestRunRejectsEmbeddedSemicolon(t *testing.T) {
	e := newTestExecutor()
	_, err := e.Run(context.Background(), `SELECT * FROM Vehicles; DROP TABLE Users`, nil)
	if err == nil {
		t.Fatalf("expected rejection of an embedded statement separator")
	}
}

func TestRunAllowsTrailingSemicolon(t *testing.T) {
	q := normalize(`SELECT "Id" FROM "Vehicles";`)
	if idx := strings.Index(q, ";"); idx >= 0 && idx != len(q)-1 {
		t.Fatalf("trailing semicolon misdetected as embedded")
	}
}

func TestRunRejectsForbiddenKeyword(t *testing.T) {
	e := newTestExecutor()
	_, err := e.Run(context.Background(), `SELECT * FROM Vehicles WHERE Make = 'x'; --`, nil)
	if err == nil {
		t.Fatalf("expected rejection for forbidden keyword")
	}
}

func TestRunRejectsUnknownTable(t *testing.T) {
	e := newTestExecutor()
	_, err := e.Run(context.Background(), `SELECT * FROM SecretTable`, nil)
	if err == nil {
		t.Fatalf("expected rejection for a table outside the allow-list")
	}
}

func TestRunRejectsCrossUserScope(t *testing.T) {
	e := newTestExecutor()
	scope := &Scope{UserID: 42}
	_, err := e.Run(context.Background(), `SELECT * FROM Bids WHERE UserId = 99`, scope)
	if err == nil {
		t.Fatalf("expected rejection when UserId filter does not match the caller")
	}
}

func TestRunAllowsSameUserScope(t *testing.T) {
	scope := &Scope{UserID: 42}
	q := normalize(`SELECT * FROM Bids WHERE UserId = 42`)
	if err := checkUserScope(q, scope); err != nil {
		t.Fatalf("expected a self-referential UserId filter to pass, got %v", err)
	}
}

func TestEnforceSchemaQuotesIdentifiers(t *testing.T) {
	out := enforceSchema(`SELECT Id, Make FROM Vehicles WHERE Make = 'Honda'`)
	if !strings.Contains(out, `"Vehicles"`) || !strings.Contains(out, `"Id"`) || !strings.Contains(out, `"Make"`) {
		t.Fatalf("expected identifiers to be quoted, got %q", out)
	}
}

func TestEnforceSchemaIsIdempotent(t *testing.T) {
	once := enforceSchema(`SELECT "Id" FROM "Vehicles"`)
	twice := enforceSchema(once)
	if once != twice {
		t.Fatalf("expected enforceSchema to be idempotent, got %q then %q", once, twice)
	}
}

func TestEnsureLimitAppendsWhenAbsent(t *testing.T) {
	out := ensureLimit(`SELECT "Id" FROM "Vehicles"`)
	if !strings.Contains(strings.ToUpper(out), "LIMIT 10") {
		t.Fatalf("expected LIMIT 10 to be appended, got %q", out)
	}
}

func TestEnsureLimitHonorsExistingLimit(t *testing.T) {
	in := `SELECT "Id" FROM "Vehicles" LIMIT 500`
	out := ensureLimit(in)
	if out != in {
		t.Fatalf("expected an existing LIMIT to be left untouched, got %q", out)
	}
}

func TestEnsureLimitSkipsOnCount(t *testing.T) {
	in := `SELECT COUNT(*) FROM "Vehicles"`
	out := ensureLimit(in)
	if out != in {
		t.Fatalf("expected a COUNT() query to be left untouched, got %q", out)
	}
}
