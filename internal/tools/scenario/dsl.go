package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const (
	scenarioTypeName = "scenario"
	checkTypeName    = "scenario_check"
)

// Scenario is a named list of steps built by a Lua script.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one scenario instruction with its Lua arguments.
type Step struct {
	Kind string
	Args map[string]any
}

// check points at the step a chained expectation applies to.
type check struct {
	scenario  *Scenario
	stepIndex int
}

// LoadScenarioFromFile runs a Lua script and returns the Scenario it builds.
// The script must return the value created by Scenario.new.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

func registerLuaTypes(state *lua.State) {
	registerType(state, scenarioTypeName, scenarioMethods)
	registerType(state, checkTypeName, checkMethods)

	state.NewTable()
	lua.SetFunctions(state, scenarioConstructor, 0)
	state.SetGlobal("Scenario")
}

func registerType(state *lua.State, name string, methods []lua.RegistryFunction) {
	lua.NewMetaTable(state, name)
	state.NewTable()
	lua.SetFunctions(state, methods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

var scenarioConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scenarioNew},
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	state.PushUserData(&Scenario{Name: name})
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "seed", Function: scenarioSeed},
	{Name: "roll", Function: scenarioRoll},
	{Name: "explain", Function: scenarioExplain},
}

// scenarioSeed fixes the seed of every later roll that does not set its own.
func scenarioSeed(state *lua.State) int {
	scenario := checkScenario(state)
	seed := lua.CheckInteger(state, 2)
	appendStep(scenario, stepSeed, map[string]any{"seed": seed})
	return 0
}

// scenarioRoll accepts scene:roll("4d6", {seed = 1}) or
// scene:roll{expression = "4d6", seed = 1} and returns a check.
func scenarioRoll(state *lua.State) int {
	return pushExpressionStep(state, stepRoll)
}

func scenarioExplain(state *lua.State) int {
	return pushExpressionStep(state, stepExplain)
}

func pushExpressionStep(state *lua.State, kind string) int {
	scenario := checkScenario(state)
	var args map[string]any
	if state.TypeOf(2) == lua.TypeTable {
		args = tableToMap(state, 2)
		if _, ok := args["expression"].(string); !ok {
			lua.ArgumentError(state, 2, "expression is required")
			return 0
		}
	} else {
		expr := lua.CheckString(state, 2)
		args = optionalTable(state, 3)
		args["expression"] = expr
	}
	index := appendStep(scenario, kind, args)
	state.PushUserData(&check{scenario: scenario, stepIndex: index})
	lua.SetMetaTableNamed(state, checkTypeName)
	return 1
}

var checkMethods = []lua.RegistryFunction{
	{Name: "expect", Function: checkExpect},
	{Name: "expect_error", Function: checkExpectError},
	{Name: "expect_between", Function: checkExpectBetween},
}

// checkExpect sets the display the step must produce. Numbers, strings and
// flat tables are accepted: expect(7), expect("0.03"), expect({2, 3}).
func checkExpect(state *lua.State) int {
	step := checkStep(state)
	if state.IsNoneOrNil(2) {
		lua.ArgumentError(state, 2, "expected value required")
		return 0
	}
	step.Args["expect"] = luaToGo(state, 2)
	state.PushValue(1)
	return 1
}

// checkExpectError makes the step pass only when it fails, optionally with a
// specific error code such as "DICE_PARSE".
func checkExpectError(state *lua.State) int {
	step := checkStep(state)
	step.Args["expect_error"] = lua.OptString(state, 2, "")
	state.PushValue(1)
	return 1
}

func checkExpectBetween(state *lua.State) int {
	step := checkStep(state)
	low := lua.CheckNumber(state, 2)
	high := lua.CheckNumber(state, 3)
	if low > high {
		lua.ArgumentError(state, 3, "max is below min")
		return 0
	}
	step.Args["min"] = normalizeNumber(low)
	step.Args["max"] = normalizeNumber(high)
	state.PushValue(1)
	return 1
}

func checkStep(state *lua.State) *Step {
	ud := lua.CheckUserData(state, 1, checkTypeName)
	c, ok := ud.(*check)
	if !ok || c == nil || c.scenario == nil {
		lua.Errorf(state, "invalid check")
		return nil
	}
	if c.stepIndex < 0 || c.stepIndex >= len(c.scenario.Steps) {
		lua.Errorf(state, "check is out of range")
		return nil
	}
	step := &c.scenario.Steps[c.stepIndex]
	if step.Args == nil {
		step.Args = map[string]any{}
	}
	return step
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if scenario, ok := ud.(*Scenario); ok && scenario != nil {
		return scenario
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

func appendStep(scenario *Scenario, kind string, data map[string]any) int {
	if scenario == nil {
		return -1
	}
	if data == nil {
		data = map[string]any{}
	}
	scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: data})
	return len(scenario.Steps) - 1
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

// tableToGo returns a slice for sequences and a map otherwise. Empty tables
// become empty slices so expect({}) reads as an empty array.
func tableToGo(state *lua.State, index int) any {
	if state.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 && math.Abs(value) < 1<<53 {
		return int(value)
	}
	return value
}
