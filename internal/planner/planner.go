// Package planner turns natural-language test instructions into an ordered
// ActionPlan using the reasoning service.
package planner

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
	"github.com/xkilldash9x/scalpel-qa/internal/llmutil"
)

const planTemperature = 0.2

// bannedSelectorPattern matches pseudo syntax that is not standard CSS.
var bannedSelectorPattern = regexp.MustCompile(`(?i):contains\(|:has-text\(|(^|[\s,>])text=`)

// Planner produces an ActionPlan from instructions and a page snapshot.
type Planner struct {
	logger    *zap.Logger
	llmClient schemas.LLMClient
}

func New(logger *zap.Logger, llmClient schemas.LLMClient) *Planner {
	return &Planner{
		logger:    logger.Named("planner"),
		llmClient: llmClient,
	}
}

// Plan makes one reasoning request. Service failures, unparsable output and
// empty objects return an error wrapping ErrPlanning.
func (p *Planner) Plan(ctx context.Context, instructions string, snapshot *schemas.PageSnapshot) (*schemas.ActionPlan, error) {
	prompt, err := buildUserPrompt(instructions, snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to construct prompt: %w", schemas.ErrPlanning, err)
	}

	req := schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierPowerful,
		Options: schemas.GenerationOptions{
			ForceJSONFormat: true,
			Temperature:     schemas.Temperature(planTemperature),
		},
	}

	response, err := p.llmClient.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: LLM generation failed: %w", schemas.ErrPlanning, err)
	}

	plan, err := llmutil.ParseJSONResponse[schemas.ActionPlan](response)
	if err != nil {
		p.logger.Error("Failed to parse action plan.", zap.Error(err), zap.String("raw_response", llmutil.Truncate(response, 1000)))
		return nil, fmt.Errorf("%w: %w", schemas.ErrPlanning, err)
	}
	if plan.Interpretation == "" && plan.Actions == nil {
		return nil, fmt.Errorf("%w: reasoning service returned an empty plan", schemas.ErrPlanning)
	}

	if n := rejectBannedSelectors(plan); n > 0 {
		p.logger.Warn("Rejected actions with unsupported selector syntax.", zap.Int("count", n))
	}

	p.logger.Info("Action plan generated.",
		zap.String("interpretation", plan.Interpretation),
		zap.Int("actions", len(plan.Actions)),
	)
	return plan, nil
}

// rejectBannedSelectors rewrites actions whose target uses pseudo selectors
// into UnknownAction so the executor skips them. It returns the count.
func rejectBannedSelectors(plan *schemas.ActionPlan) int {
	rejected := 0
	for i, a := range plan.Actions {
		if a == nil || !bannedSelectorPattern.MatchString(a.Target()) {
			continue
		}
		plan.Actions[i] = schemas.UnknownAction{
			RawType:     fmt.Sprintf("%s (unsupported selector)", a.Type()),
			Selector:    a.Target(),
			Description: a.Describe(),
		}
		rejected++
	}
	return rejected
}

func buildUserPrompt(instructions string, snapshot *schemas.PageSnapshot) (string, error) {
	if snapshot == nil {
		snapshot = &schemas.PageSnapshot{}
	}
	snapshotJSON, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`
**Test Instructions:**
%s

**Page Structure:**
%s

Produce the action plan as a single JSON object.
`, strings.TrimSpace(instructions), string(snapshotJSON)), nil
}

const systemPrompt = `You are a QA automation engineer driving a real browser. You translate plain-language test instructions into a precise, ordered list of browser actions against the page structure you are given.

**Response Format (Strict JSON):**
{
  "interpretation": "One sentence describing what the user wants verified.",
  "actions": [
    {"type": "click|fill|select|submit|extract|wait|navigate|screenshot", "target": "CSS selector or \"page\"", "value": "string, number or null", "description": "What this step does."}
  ],
  "expectedOutcome": "What the page should show if the test passes."
}

**Action Types:**
- click: click the element at target.
- fill: type value into the input at target.
- select: choose the option whose value or label equals value.
- submit: submit the form at target, or the form containing target.
- extract: read text at target. Use value "list" to collect every match as a list of results.
- wait: value "visible" waits for target to appear; a number waits that many milliseconds.
- navigate: load the URL given in value.
- screenshot: capture the page. value is a short label.

**Selector Rules:**
- Use standard CSS selectors only, built from ids, names, classes and attributes found in the page structure.
- NEVER use :contains(), :has-text() or text= selectors. They are not supported and the step will be skipped.
- When an element has an id, prefer it.

**Data Rules:**
- When a form needs credentials or personal data that the instructions do not provide, synthesize realistic values (for example "jordan.miller@example.com" and "Spring-Harbor-42!"). Never use placeholders such as "test" or "xxx".

**Example 1: Data extraction**
Instructions: "Check what my IP address is"
{
  "interpretation": "Read the IP address the page displays.",
  "actions": [
    {"type": "wait", "target": "#ip-address", "value": "visible", "description": "Wait for the IP display."},
    {"type": "extract", "target": "#ip-address", "value": null, "description": "Read the IP address."}
  ],
  "expectedOutcome": "A valid IPv4 or IPv6 address is displayed."
}

**Example 2: Form-driven search**
Instructions: "Search for golang tutorials"
{
  "interpretation": "Run a search for golang tutorials and collect the results.",
  "actions": [
    {"type": "fill", "target": "input[name='q']", "value": "golang tutorials", "description": "Type the search query."},
    {"type": "submit", "target": "input[name='q']", "value": null, "description": "Submit the search form."},
    {"type": "wait", "target": "#search", "value": "visible", "description": "Wait for results."},
    {"type": "extract", "target": ".g", "value": "list", "description": "Collect the search results."}
  ],
  "expectedOutcome": "At least one search result is listed."
}

**Example 3: Screenshot only**
Instructions: "Take a screenshot of the homepage"
{
  "interpretation": "Capture the page as it currently renders.",
  "actions": [
    {"type": "screenshot", "target": "page", "value": "homepage", "description": "Capture the homepage."}
  ],
  "expectedOutcome": "A screenshot of the homepage is captured."
}`
