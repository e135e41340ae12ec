package clause

import "testing"

func TestFormat(t *testing.T) {
	tree := And(
		Terminal("project", OperatorIn, Values(Number(10000), String("HSP"))),
		Or(
			Terminal("assignee", OperatorEquals, Function("currentUser")),
			Terminal("assignee", OperatorIs, Empty()),
		),
		Not(Terminal("summary", OperatorLike, String(`say "hi"`))),
	)

	want := `project IN (10000, "HSP") AND (assignee = currentUser() OR assignee IS EMPTY) AND NOT summary ~ "say \"hi\""`
	if got := Format(tree); got != want {
		t.Fatalf("unexpected text\nwant: %s\n got: %s", want, got)
	}
}

func TestParseOperator(t *testing.T) {
	op, err := ParseOperator("  NOT   IN ")
	if err != nil {
		t.Fatalf("ParseOperator error: %v", err)
	}
	if op != OperatorNotIn {
		t.Fatalf("unexpected operator %q", op)
	}
	if _, err := ParseOperator("between"); err == nil {
		t.Fatalf("expected error for unknown operator")
	}
}

func TestOperandsEqual(t *testing.T) {
	if !OperandsEqual(Function("currentUser"), Function("CURRENTUSER")) {
		t.Fatalf("function names compare case-insensitively")
	}
	if OperandsEqual(String("1"), Number(1)) {
		t.Fatalf("string and number forms must differ")
	}
	if !OperandsEqual(Strings("a", "b"), Values(String("a"), String("b"))) {
		t.Fatalf("equal lists must compare equal")
	}
}
