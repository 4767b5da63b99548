package access

import (
	"reflect"
	"testing"
)

func TestParseEmptyExpressionYieldsEmptyNode(t *testing.T) {
	n, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind() != KindEmpty {
		t.Fatalf("expected KindEmpty, got %v", n.Kind())
	}
}

func TestParseFlattensSameOperatorSiblings(t *testing.T) {
	n, err := Parse([]byte("A&B&C"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind() != KindAnd {
		t.Fatalf("expected AND, got %v", n.Kind())
	}
	if len(n.Children()) != 3 {
		t.Fatalf("expected 3 flattened children, got %d", len(n.Children()))
	}
	for _, c := range n.Children() {
		if c.Kind() == KindAnd {
			t.Fatal("AND node must not have an AND child")
		}
	}
}

func TestParseSingleChildIsNotWrapped(t *testing.T) {
	n, err := Parse([]byte("(A)"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind() != KindAuthorization {
		t.Fatalf("expected a bare authorization leaf, got %v", n.Kind())
	}
	if string(n.Authorization()) != "A" {
		t.Fatalf("unexpected authorization: %q", n.Authorization())
	}
}

func TestParseLeafCarriesQuotedFlagAndUnescapedBytes(t *testing.T) {
	n, err := Parse([]byte(`"a\"b"`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n.Quoted() {
		t.Fatal("expected quoted flag set")
	}
	if string(n.Authorization()) != `a"b` {
		t.Fatalf("expected unescaped bytes, got %q", n.Authorization())
	}
}

func TestExpressionReproducesMinimalForm(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"A", "A"},
		{"(A)", "A"},
		{"A&B&C", "A&B&C"},
		{"A&(B|C)", "A&(B|C)"},
		{"(A&B)|C", "(A&B)|C"},
	}
	for _, c := range cases {
		n, err := Parse([]byte(c.in))
		if err != nil {
			t.Fatalf("parse %q: %v", c.in, err)
		}
		got, err := n.Expression()
		if err != nil {
			t.Fatalf("expression %q: %v", c.in, err)
		}
		if string(got) != c.want {
			t.Fatalf("for %q, expected %q, got %q", c.in, c.want, got)
		}
	}
}

// TestFindAuthorizationsMatchesParseTreeWalk checks property 7.
func TestFindAuthorizationsMatchesParseTreeWalk(t *testing.T) {
	expr := []byte(`(CAT&"` + "\U0001F996" + `")|(CAT&"` + "\U0001F995" + `")`)

	var found [][]byte
	if err := FindAuthorizations(expr, func(a []byte) {
		cp := make([]byte, len(a))
		copy(cp, a)
		found = append(found, cp)
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]byte{
		[]byte("CAT"),
		[]byte("\U0001F996"),
		[]byte("CAT"),
		[]byte("\U0001F995"),
	}
	if !reflect.DeepEqual(found, want) {
		t.Fatalf("got %q, want %q", found, want)
	}

	tree, err := Parse(expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var walked [][]byte
	var walk func(Node)
	walk = func(n Node) {
		switch n.Kind() {
		case KindAuthorization:
			walked = append(walked, n.Authorization())
		case KindAnd, KindOr:
			for _, c := range n.Children() {
				walk(c)
			}
		}
	}
	walk(tree)
	if !reflect.DeepEqual(walked, want) {
		t.Fatalf("tree walk got %q, want %q", walked, want)
	}
}

func TestFindAuthorizationsPropagatesGrammarErrors(t *testing.T) {
	err := FindAuthorizations([]byte("A&B|C"), func([]byte) {})
	requireSubkind(t, err, ErrMixedOperators)
}
