package filter

import (
	"testing"

	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
)

var domainCols = map[string]ColumnType{
	"id":       TypeInt,
	"value":    TypeString,
	"unscoped": TypeBool,
}

func TestParseEmptyMatchesAll(t *testing.T) {
	c, err := Parse(domainCols, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.SQL != "1=1" || len(c.Args) != 0 {
		t.Fatalf("expected 1=1 with no args, got %q %v", c.SQL, c.Args)
	}
}

func TestParseSimpleEquality(t *testing.T) {
	c, err := Parse(domainCols, "value = 'example.com'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.SQL != "value = ?" {
		t.Fatalf("unexpected SQL: %q", c.SQL)
	}
	if len(c.Args) != 1 || c.Args[0] != "example.com" {
		t.Fatalf("unexpected args: %v", c.Args)
	}
}

func TestParseAndOrNotPrecedence(t *testing.T) {
	c, err := Parse(domainCols, "value like '%.com' and not (unscoped = 1 or id = 3)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "(value LIKE ? AND NOT ((unscoped = ? OR id = ?)))"
	if c.SQL != want {
		t.Fatalf("got %q want %q", c.SQL, want)
	}
	if len(c.Args) != 3 {
		t.Fatalf("expected 3 bind args, got %v", c.Args)
	}
}

func TestParseUnknownColumnFails(t *testing.T) {
	_, err := Parse(domainCols, "nope = 'x'")
	if !sferrors.Is(err, sferrors.FilterSyntax) {
		t.Fatalf("expected FilterSyntax error, got %v", err)
	}
}

func TestParseTypeMismatchFails(t *testing.T) {
	_, err := Parse(domainCols, "id = 'not-an-int'")
	if !sferrors.Is(err, sferrors.FilterSyntax) {
		t.Fatalf("expected FilterSyntax error for type mismatch, got %v", err)
	}
}

func TestParseLikeOnNonStringFails(t *testing.T) {
	_, err := Parse(domainCols, "id like '1'")
	if !sferrors.Is(err, sferrors.FilterSyntax) {
		t.Fatalf("expected FilterSyntax error, got %v", err)
	}
}

func TestParseUnterminatedStringFails(t *testing.T) {
	_, err := Parse(domainCols, "value = 'oops")
	if !sferrors.Is(err, sferrors.FilterSyntax) {
		t.Fatalf("expected FilterSyntax error, got %v", err)
	}
}

func TestParseTrailingGarbageFails(t *testing.T) {
	_, err := Parse(domainCols, "value = 'a' )")
	if !sferrors.Is(err, sferrors.FilterSyntax) {
		t.Fatalf("expected FilterSyntax error, got %v", err)
	}
}
