package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/helix/pkg/diag"
	"github.com/cyber-boost/helix/pkg/parser"
)

func analyze(t *testing.T, src string, strict bool) []diag.Diagnostic {
	t.Helper()
	f, parseDiags := parser.ParseSource([]byte(src), "test.hlx")
	require.Empty(t, parseDiags)
	return New(f, strict).Analyze()
}

func TestValidAgentProducesNoErrors(t *testing.T) {
	src := `agent "researcher" {
		model = "gpt-4"
		temperature = 0.7
		max_tokens = 2048
		timeout = 30s
	}`
	diags := analyze(t, src, false)
	assert.False(t, diag.HasErrors(diags), "%v", diags)
}

func TestTemperatureOutOfRangeIsError(t *testing.T) {
	src := `agent "a" { temperature = 3.5 }`
	diags := analyze(t, src, false)
	assert.True(t, diag.HasErrors(diags))
}

func TestMaxTokensMustBePositive(t *testing.T) {
	src := `agent "a" { max_tokens = 0 }`
	diags := analyze(t, src, false)
	assert.True(t, diag.HasErrors(diags))
}

func TestTimeoutMustBeDuration(t *testing.T) {
	src := `agent "a" { timeout = 30 }`
	diags := analyze(t, src, false)
	assert.True(t, diag.HasErrors(diags))
}

func TestRetryMaxAttemptsConstraint(t *testing.T) {
	src := `task "t" {
		retry {
			max_attempts = 0
		}
	}`
	diags := analyze(t, src, false)
	assert.True(t, diag.HasErrors(diags))
}

func TestUnexpectedPropertyIsWarningUnlessStrict(t *testing.T) {
	src := `agent "a" { nonexistent_field = "x" }`

	lenient := analyze(t, src, false)
	assert.False(t, diag.HasErrors(lenient))

	strict := analyze(t, src, true)
	assert.True(t, diag.HasErrors(strict))
}

func TestUnknownSectionReferenceIsError(t *testing.T) {
	src := `agent "a" { mentor = @nonexistent_agent }`
	diags := analyze(t, src, false)
	require.True(t, diag.HasErrors(diags))

	var found bool
	for _, d := range diags {
		if d.Code == "E-SEM-002" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestKnownSectionReferenceResolves(t *testing.T) {
	src := `
	agent "researcher" { model = "gpt-4" }
	agent "writer" { mentor = @researcher }
	`
	diags := analyze(t, src, false)
	assert.False(t, diag.HasErrors(diags), "%v", diags)
}

func TestBuiltinOperatorCallIsNeverTreatedAsSectionReference(t *testing.T) {
	src := `agent "a" { key = @env["API_KEY"] }`
	diags := analyze(t, src, false)
	assert.False(t, diag.HasErrors(diags), "%v", diags)
}

func TestSuggestionOffersDidYouMean(t *testing.T) {
	src := `
	agent "researcher" { model = "gpt-4" }
	agent "writer" { mentor = @reseacher }
	`
	diags := analyze(t, src, false)
	require.True(t, diag.HasErrors(diags))

	var hint string
	for _, d := range diags {
		if d.Code == "E-SEM-002" {
			hint = d.Hint
		}
	}
	assert.Contains(t, hint, "researcher")
}

func TestDuplicateSectionNameWithinKindIsError(t *testing.T) {
	src := `
	agent "dup" { model = "gpt-4" }
	agent "dup" { model = "gpt-3.5" }
	`
	diags := analyze(t, src, false)
	assert.True(t, diag.HasErrors(diags))
}

func TestAcyclicWorkflowStepsAccepted(t *testing.T) {
	src := `workflow "w" {
		step "fetch" { action = "http_get" }
		step "process" { depends_on = ["fetch"] }
		step "store" { depends_on = ["process"] }
	}`
	diags := analyze(t, src, false)
	assert.False(t, diag.HasErrors(diags), "%v", diags)
}

func TestCyclicWorkflowStepsRejected(t *testing.T) {
	src := `workflow "w" {
		step "a" { depends_on = ["b"] }
		step "b" { depends_on = ["a"] }
	}`
	diags := analyze(t, src, false)
	require.True(t, diag.HasErrors(diags))

	var found bool
	for _, d := range diags {
		if d.Code == "E-SEM-021" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSelfDependentStepRejected(t *testing.T) {
	src := `workflow "w" {
		step "a" { depends_on = ["a"] }
	}`
	diags := analyze(t, src, false)
	assert.True(t, diag.HasErrors(diags))
}

func TestTaskLevelDependsOnCycleRejected(t *testing.T) {
	src := `
	task "a" { depends_on = ["b"] }
	task "b" { depends_on = ["a"] }
	`
	diags := analyze(t, src, false)
	require.True(t, diag.HasErrors(diags))
	var found bool
	for _, d := range diags {
		if d.Code == "E-SEM-021" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCrewManagerMustBeMemberOfAgents(t *testing.T) {
	bad := `crew "c" {
		agents = ["researcher", "writer"]
		manager = "editor"
	}`
	diags := analyze(t, bad, false)
	assert.True(t, diag.HasErrors(diags))

	good := `crew "c" {
		agents = ["researcher", "writer"]
		manager = "researcher"
	}`
	diags = analyze(t, good, false)
	assert.False(t, diag.HasErrors(diags), "%v", diags)
}

func TestCrewProcessMustBeRecognizedEnumValue(t *testing.T) {
	bad := `crew "c" {
		agents = ["researcher", "writer"]
		process = "chaotic"
	}`
	diags := analyze(t, bad, false)
	assert.True(t, diag.HasErrors(diags))

	for _, process := range []string{"hierarchical", "sequential", "parallel"} {
		good := `crew "c" {
			agents = ["researcher", "writer"]
			process = "` + process + `"
		}`
		diags = analyze(t, good, false)
		assert.False(t, diag.HasErrors(diags), "%v", diags)
	}
}

func TestUnknownDependsOnEntryIsError(t *testing.T) {
	src := `workflow "w" {
		step "a" { depends_on = ["ghost"] }
	}`
	diags := analyze(t, src, false)
	assert.True(t, diag.HasErrors(diags))
}
