package dice

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/dicebox/internal/dice/evalerr"
	"github.com/louisbranch/dicebox/internal/dice/value"
	"github.com/louisbranch/dicebox/internal/random"
)

const testSeed = 42

func mustEval(t *testing.T, expr string) value.Deep {
	t.Helper()
	result, err := Eval(context.Background(), Request{Expression: expr, Seed: testSeed})
	if err != nil {
		t.Fatalf("Eval(%q) returned error: %v", expr, err)
	}
	return result.Value
}

func TestEvalScenarios(t *testing.T) {
	tests := []struct {
		expr string
		want value.Deep
	}{
		{expr: "2", want: value.NewInt(2)},
		{expr: "3+4", want: value.NewInt(7)},
		{expr: "3-4", want: value.NewInt(-1)},
		{expr: "1+2*3+4", want: value.NewInt(11)},
		{expr: "1*2+3*4", want: value.NewInt(14)},
		{expr: "(3+4)*5", want: value.NewInt(35)},
		{expr: "5*(3+4)", want: value.NewInt(35)},
		{expr: "-(3+4)", want: value.NewInt(-7)},
		{expr: "++++++++++3-++++++++4", want: value.NewInt(-1)},
		{expr: "--3 - --4", want: value.NewInt(-1)},
		{expr: "3%", want: value.Float(0.03)},
		{expr: "4+3%", want: value.Float(4.03)},
		{expr: "3%%%", want: value.Float(3e-6)},
		{expr: "++++(3+4)%", want: value.Float(0.07)},
		{expr: "7/2", want: value.Float(3.5)},
		{expr: "15d1", want: value.NewInt(15)},
		{expr: "4d1KH3", want: value.NewInt(3)},
		{expr: "4d1K0", want: value.NewInt(0)},
		{expr: "15d1h1", want: value.NewInt(1)},
		{expr: "4d1KL2", want: value.NewInt(2)},
		{expr: "d[]", want: value.NewInt(0)},
		{expr: "0d6", want: value.NewInt(0)},
		{expr: "3d[7]", want: value.NewInt(21)},
		{expr: "d[5/2]", want: value.Float(2.5)},
		{expr: ",2", want: value.Ints(2)},
		{expr: "1,2", want: value.Ints(1, 2)},
		{expr: "1,2,3", want: value.Ints(1, 2, 3)},
		{expr: "[1],[2,3]", want: value.Ints(1, 2, 3)},
		{expr: ",4-,3", want: value.Array{value.Ints(1)}},
		{expr: "[1,2,3]+[10,20]", want: value.Ints(11, 22, 13)},
		{expr: "[1,2]*3", want: value.Ints(3, 6)},
		{expr: "-[1,[2]]", want: value.Array{value.NewInt(-1), value.Ints(-2)}},
		{expr: "x=10; y=x=4; [x,y]", want: value.Ints(4, 4)},
		{expr: "y=3; x=y=4; [x,y]", want: value.Ints(4, 4)},
		{expr: "x=[1,2,3]; x[1]=9; x", want: value.Ints(1, 9, 3)},
		{expr: "x=[[1,2],[3]]; x[0][1]", want: value.NewInt(2)},
		{expr: "[4,5,6][2]", want: value.NewInt(6)},
		{expr: "#[4,5,6]", want: value.NewInt(3)},
		{expr: `#"hello"`, want: value.NewInt(5)},
		{expr: `"ab","cd"`, want: value.Str("abcd")},
		{expr: "'a'+'\x01'", want: value.Char('b')},
		{expr: "3==3", want: value.NewInt(1)},
		{expr: "3==4", want: value.NewInt(0)},
		{expr: "0||7", want: value.NewInt(7)},
		{expr: "2||7", want: value.NewInt(2)},
		{expr: "0&&5", want: value.NewInt(0)},
		{expr: "2&&5", want: value.NewInt(5)},
		{expr: "[5,1,4,2]KH2", want: value.Ints(5, 4)},
		{expr: "[5,1,4,2]KL2", want: value.Ints(1, 2)},
		{expr: "[5,1,4,2]h9", want: value.Ints(5, 1, 4, 2)},
		{expr: "2d2!(,2)!KH0", want: value.NewInt(0)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := mustEval(t, tt.expr)
			if !value.Equal(got, tt.want) {
				t.Fatalf("Eval(%q) = %s, want %s", tt.expr, value.Format(got), value.Format(tt.want))
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		expr string
		kind evalerr.Kind
	}{
		{expr: "2 2", kind: evalerr.Parse},
		{expr: "(3+4", kind: evalerr.Parse},
		{expr: "3+", kind: evalerr.Parse},
		{expr: "3 $ 4", kind: evalerr.Lex},
		{expr: `"open`, kind: evalerr.Lex},
		{expr: "x", kind: evalerr.Resolve},
		{expr: "x[0]", kind: evalerr.Resolve},
		{expr: "x=[1]; x[3]", kind: evalerr.Resolve},
		{expr: "x=1; x[0]", kind: evalerr.Resolve},
		{expr: "[1,2][5]", kind: evalerr.Resolve},
		{expr: "4810954d1093491", kind: evalerr.Range},
		{expr: "d65536", kind: evalerr.Range},
		{expr: "(0-1)d6", kind: evalerr.Range},
		{expr: "4d6KH(0-1)", kind: evalerr.Range},
		{expr: "3!", kind: evalerr.Type},
		{expr: "#3", kind: evalerr.Type},
		{expr: "3KH1", kind: evalerr.Type},
		{expr: "3!(2)!", kind: evalerr.Type},
		{expr: "1=2", kind: evalerr.Type},
		{expr: "d2.5", kind: evalerr.Lex},
		{expr: "d(5/2)", kind: evalerr.Type},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := Eval(context.Background(), Request{Expression: tt.expr, Seed: testSeed})
			if err == nil {
				t.Fatalf("Eval(%q) expected error", tt.expr)
			}
			if got := evalerr.KindOf(err); got != tt.kind {
				t.Fatalf("Eval(%q) error kind = %v (%v), want %v", tt.expr, got, err, tt.kind)
			}
		})
	}
}

// TestEvalMatchesSeededDraws replays the generator to predict each die.
func TestEvalMatchesSeededDraws(t *testing.T) {
	seed := int64(1)
	rng := random.NewRand(seed)
	want := int64(rng.Intn(6) + 1 + rng.Intn(6) + 1)

	result, err := Eval(context.Background(), Request{Expression: "2d6", Seed: seed})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !value.Equal(result.Value, value.NewInt(want)) {
		t.Fatalf("2d6 = %s, want %d", value.Format(result.Value), want)
	}
	if result.Seed != seed {
		t.Fatalf("Seed = %d, want %d", result.Seed, seed)
	}
}

func TestEvalKeepHighestSumsTopDice(t *testing.T) {
	seed := int64(7)
	rng := random.NewRand(seed)
	faces := []int{rng.Intn(4) + 1, rng.Intn(4) + 1, rng.Intn(4) + 1}
	slices.Sort(faces)
	want := int64(faces[1] + faces[2])

	result, err := Eval(context.Background(), Request{Expression: "3d4KH2", Seed: seed})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !value.Equal(result.Value, value.NewInt(want)) {
		t.Fatalf("3d4KH2 = %s, want %d (faces %v)", value.Format(result.Value), want, faces)
	}
}

func TestEvalIsDeterministic(t *testing.T) {
	for _, expr := range []string{"10d6!+4d8KH2", "d[1,4,5]*[1,2,3]", "x=3d6; [x, x, d20]"} {
		first := mustEval(t, expr)
		for range 5 {
			if got := mustEval(t, expr); !value.Equal(got, first) {
				t.Fatalf("Eval(%q) = %s, want %s", expr, value.Format(got), value.Format(first))
			}
		}
	}
}

func TestEvalDiceSumBounds(t *testing.T) {
	for seed := range int64(200) {
		result, err := Eval(context.Background(), Request{Expression: "5d6", Seed: seed})
		if err != nil {
			t.Fatalf("Eval returned error: %v", err)
		}
		if value.Compare(result.Value, value.NewInt(5)) < 0 || value.Compare(result.Value, value.NewInt(30)) > 0 {
			t.Fatalf("seed %d: 5d6 = %s, want within [5, 30]", seed, value.Format(result.Value))
		}
	}
}

func TestEvalCustomSidesStayInSet(t *testing.T) {
	allowed := value.Ints(1, 4, 5)
	for seed := range int64(50) {
		result, err := Eval(context.Background(), Request{Expression: "d[1,4,5]", Seed: seed})
		if err != nil {
			t.Fatalf("Eval returned error: %v", err)
		}
		if !slices.ContainsFunc(allowed, func(v value.Deep) bool { return value.Equal(v, result.Value) }) {
			t.Fatalf("seed %d: d[1,4,5] = %s", seed, value.Format(result.Value))
		}
	}
}

func TestEvalExplodingDiceAddRerolls(t *testing.T) {
	for seed := range int64(50) {
		result, err := Eval(context.Background(), Request{Expression: "2d2!", Seed: seed})
		if err != nil {
			t.Fatalf("Eval returned error: %v", err)
		}
		// Each die is 2n+1 for n rerolls, so the sum of two dice is even.
		n := result.Value.(value.Int).V.Int64()
		if n < 2 || n%2 != 0 {
			t.Fatalf("seed %d: 2d2! = %d, want an even sum of at least 2", seed, n)
		}
	}
}

func TestSequenceDiscardsUnforcedDice(t *testing.T) {
	got := mustEval(t, "12d6; d4")
	want := mustEval(t, "d4")
	if !value.Equal(got, want) {
		t.Fatalf("12d6; d4 = %s, want %s", value.Format(got), value.Format(want))
	}
}

func TestEvalCommitsVariablesOnSuccess(t *testing.T) {
	env := value.NewEnv()
	ctx := context.Background()

	if _, err := Eval(ctx, Request{Expression: "x=1", Env: env}); err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if _, err := Eval(ctx, Request{Expression: "x=2; y", Env: env}); err == nil {
		t.Fatal("expected error for undefined y")
	}
	got, err := env.Get(value.Place{Name: "x"})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !value.Equal(got, value.NewInt(1)) {
		t.Fatalf("x = %s, want 1", value.Format(got))
	}

	result, err := Eval(ctx, Request{Expression: "x+1", Env: env})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !value.Equal(result.Value, value.NewInt(2)) {
		t.Fatalf("x+1 = %s, want 2", value.Format(result.Value))
	}
}

func TestEvalStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Eval(ctx, Request{Expression: "d1!"})
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("Eval error = %v, want ErrHalted", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Eval error = %v, want context.Canceled", err)
	}
}

func TestWithinHaltsRunawayEvaluation(t *testing.T) {
	env := value.NewEnv()
	start := time.Now()
	_, err := Within(context.Background(), 20*time.Millisecond, Request{Expression: "x=5; d1!", Env: env})
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("Within error = %v, want ErrHalted", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Within took %v", elapsed)
	}
	if env.Len() != 0 {
		t.Fatalf("env has %v after halted evaluation, want empty", env.Names())
	}
}

func TestEvalHaltsDuringLargeKeepRolls(t *testing.T) {
	terms := make([]string, 200)
	for i := range terms {
		terms[i] = "65535d65535KH1"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Eval(ctx, Request{Expression: strings.Join(terms, "+"), Seed: testSeed})
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("Eval error = %v, want ErrHalted", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Eval took %v after its deadline", elapsed)
	}
}

func TestWithinCommitsFinishedEvaluation(t *testing.T) {
	env := value.NewEnv()
	result, err := Within(context.Background(), time.Second, Request{Expression: "x=[1,2]; #x", Env: env})
	if err != nil {
		t.Fatalf("Within returned error: %v", err)
	}
	if !value.Equal(result.Value, value.NewInt(2)) {
		t.Fatalf("result = %s, want 2", value.Format(result.Value))
	}
	if names := env.Names(); !slices.Equal(names, []string{"x"}) {
		t.Fatalf("env names = %v, want [x]", names)
	}
}

func TestEvaluateUsesFreshEnvironment(t *testing.T) {
	v, err := Evaluate(context.Background(), "x=2; x*3")
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if !value.Equal(v, value.NewInt(6)) {
		t.Fatalf("Evaluate = %s, want 6", value.Format(v))
	}
	if _, err := Evaluate(context.Background(), "x"); evalerr.KindOf(err) != evalerr.Resolve {
		t.Fatalf("Evaluate(x) error = %v, want resolve error", err)
	}
}

func TestSort(t *testing.T) {
	got := Sort(value.Array{value.NewInt(3), value.Float(1.5), value.Char('a'), value.NewInt(-2)})
	want := value.Array{value.NewInt(-2), value.Float(1.5), value.NewInt(3), value.Char('a')}
	if !value.Equal(got, want) {
		t.Fatalf("Sort = %s, want %s", value.Format(got), value.Format(want))
	}
	if got := Sort(value.NewInt(4)); !value.Equal(got, value.NewInt(4)) {
		t.Fatalf("Sort(4) = %s, want 4", value.Format(got))
	}
}

func TestOperatorListFitsHelpBudget(t *testing.T) {
	list := OperatorList()
	if len(list) > 1024 {
		t.Fatalf("OperatorList length = %d, want <= 1024", len(list))
	}
	for _, op := range []string{"`+`", "`!(`", "`)!`", "`==`", "`;`"} {
		if !strings.Contains(list, op) {
			t.Fatalf("OperatorList = %q, missing %s", list, op)
		}
	}
}

func TestMarkup(t *testing.T) {
	got := Markup("a`b")
	want := "``\u200ba`\u200bb\u200b``"
	if got != want {
		t.Fatalf("Markup = %q, want %q", got, want)
	}
}

func TestStripCode(t *testing.T) {
	tests := map[string]string{
		"`4d6`":       "4d6",
		"```2d20```":  "2d20",
		"  d8  ":      "d8",
		"`":           "`",
		"4d6":         "4d6",
		"``":          "",
		"```d4`":      "``d4",
	}
	for in, want := range tests {
		if got := StripCode(in); got != want {
			t.Fatalf("StripCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func FuzzEvaluate(f *testing.F) {
	for _, seed := range []string{
		"4d6+7", "2d20H1", "d10!(9,10)!", "x=4; [x,x]", "d[1,4,5]", "(d6)!",
		"[1,[2,3]]KL1", `"abc"+1`, "'a'", "x=[1]; x[0]=2", "65535d65535", "\x00",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, expr string) {
		result, err := Within(context.Background(), 20*time.Millisecond, Request{Expression: expr, Seed: 1})
		if err != nil {
			if errors.Is(err, ErrHalted) || evalerr.KindOf(err) != 0 {
				return
			}
			t.Fatalf("Within(%q) untyped error: %v", expr, err)
		}
		if result.Value == nil {
			t.Fatalf("Within(%q) returned nil value", expr)
		}
		_ = value.Format(result.Value)
	})
}
