// Package verifier judges whether a run achieved what its instructions asked
// for.
package verifier

import (
	"context"
	"fmt"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
	"github.com/xkilldash9x/scalpel-qa/internal/config"
	"github.com/xkilldash9x/scalpel-qa/internal/llmutil"
)

var (
	successIndicators = []string{"welcome", "success", "account created", "signed up", "thank you", "ip address"}
	// errorIndicators also match pages that merely discuss errors.
	errorIndicators = []string{"error", "failed", "invalid", "try again"}
)

// Input is everything the verifier inspects besides the live page.
type Input struct {
	Instructions string
	Plan         *schemas.ActionPlan
	Results      []schemas.ActionResult
	Evidence     []schemas.Evidence
	PageTitle    string
}

// Verifier walks an ordered heuristic chain and falls back to the reasoning
// service when no heuristic is decisive.
type Verifier struct {
	logger    *zap.Logger
	cfg       config.VerifierConfig
	llmClient schemas.LLMClient
}

func New(cfg config.VerifierConfig, llmClient schemas.LLMClient, logger *zap.Logger) *Verifier {
	return &Verifier{
		logger:    logger.Named("verifier"),
		cfg:       cfg,
		llmClient: llmClient,
	}
}

// Verify never fails. Errors and panics become a failed verdict whose message
// starts with "Verification error:".
func (v *Verifier) Verify(ctx context.Context, page schemas.Page, in Input) (result schemas.VerificationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = v.failure(fmt.Errorf("panic: %v", r))
		}
	}()

	res, err := v.verify(ctx, page, in)
	if err != nil {
		return v.failure(err)
	}
	v.logger.Info("Verification complete.", zap.Bool("success", res.Success), zap.String("message", res.Message))
	return res
}

func (v *Verifier) failure(err error) schemas.VerificationResult {
	v.logger.Error("Verification failed with an error.", zap.Error(fmt.Errorf("%w: %w", schemas.ErrVerification, err)))
	return schemas.VerificationResult{
		Success: false,
		Message: "Verification error: " + err.Error(),
	}
}

func (v *Verifier) verify(ctx context.Context, page schemas.Page, in Input) (schemas.VerificationResult, error) {
	instructions := strings.ToLower(in.Instructions)

	switch {
	case strings.Contains(instructions, "ip address"):
		return verifyIPAddress(in.Results), nil
	case strings.Contains(instructions, "search"):
		return verifySearch(in.Results), nil
	case strings.Contains(instructions, "screenshot"):
		return verifyScreenshot(in.Evidence), nil
	}

	if allExtractsSucceeded(in.Results) {
		return schemas.VerificationResult{Success: true, Message: "All extraction steps returned data"}, nil
	}

	text, err := page.BodyText(ctx)
	if err != nil {
		return schemas.VerificationResult{}, fmt.Errorf("failed to read page text: %w", err)
	}
	if res, ok := verifyIndicators(text); ok {
		return res, nil
	}

	return v.askReasoningService(ctx, in, text)
}

func verifyIPAddress(results []schemas.ActionResult) schemas.VerificationResult {
	var candidate string
	for _, r := range results {
		a, ok := r.Action.(schemas.ExtractAction)
		if !ok || !strings.Contains(strings.ToLower(a.Selector), "ip") {
			continue
		}
		text, ok := r.Data.(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		addr := stripIPLabel(text)
		if version := ipVersion(addr); version != "" {
			return schemas.VerificationResult{
				Success: true,
				Message: fmt.Sprintf("Found valid %s address: %s", version, addr),
			}
		}
		candidate = addr
	}

	if candidate != "" {
		return schemas.VerificationResult{Message: fmt.Sprintf("Extracted value %q is not a valid IP address", candidate)}
	}
	return schemas.VerificationResult{Message: "No IP address was extracted"}
}

func verifySearch(results []schemas.ActionResult) schemas.VerificationResult {
	for _, r := range results {
		a, ok := r.Action.(schemas.ExtractAction)
		if !ok || !a.IsList() {
			continue
		}
		if items, ok := r.Data.([]schemas.SearchResult); ok && len(items) > 0 {
			return schemas.VerificationResult{
				Success: true,
				Message: fmt.Sprintf("Extracted %d search results", len(items)),
			}
		}
	}
	return schemas.VerificationResult{Message: "No search results were extracted"}
}

func verifyScreenshot(evidence []schemas.Evidence) schemas.VerificationResult {
	if len(evidence) == 0 {
		return schemas.VerificationResult{Message: "No screenshot was captured"}
	}
	return schemas.VerificationResult{
		Success: true,
		Message: fmt.Sprintf("Captured %d screenshot(s)", len(evidence)),
	}
}

// allExtractsSucceeded requires at least one extract and data on every one.
func allExtractsSucceeded(results []schemas.ActionResult) bool {
	extracts := 0
	for _, r := range results {
		if _, ok := r.Action.(schemas.ExtractAction); !ok {
			continue
		}
		extracts++
		if !r.Succeeded() || isEmptyData(r.Data) {
			return false
		}
	}
	return extracts > 0
}

func isEmptyData(data interface{}) bool {
	switch d := data.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(d) == ""
	case []schemas.SearchResult:
		return len(d) == 0
	}
	return false
}

func verifyIndicators(text string) (schemas.VerificationResult, bool) {
	lower := strings.ToLower(text)
	for _, s := range successIndicators {
		if strings.Contains(lower, s) {
			return schemas.VerificationResult{
				Success: true,
				Message: fmt.Sprintf("Page text indicates success (%q)", s),
			}, true
		}
	}
	for _, s := range errorIndicators {
		if strings.Contains(lower, s) {
			return schemas.VerificationResult{
				Message: fmt.Sprintf("Page text indicates failure (%q)", s),
			}, true
		}
	}
	return schemas.VerificationResult{}, false
}

type extractedData struct {
	Target string      `json:"target"`
	Data   interface{} `json:"data"`
}

func (v *Verifier) askReasoningService(ctx context.Context, in Input, pageText string) (schemas.VerificationResult, error) {
	extracted := make([]extractedData, 0)
	for _, r := range in.Results {
		if _, ok := r.Action.(schemas.ExtractAction); ok && r.Data != nil {
			extracted = append(extracted, extractedData{Target: r.Action.Target(), Data: r.Data})
		}
	}
	extractedJSON, err := json.MarshalIndent(extracted, "", "  ")
	if err != nil {
		return schemas.VerificationResult{}, fmt.Errorf("failed to encode extracted data: %w", err)
	}

	expected := ""
	if in.Plan != nil {
		expected = in.Plan.ExpectedOutcome
	}

	prompt := fmt.Sprintf(`
**Test Instructions:**
%s

**Expected Outcome:**
%s

**Page Title:**
%s

**Extracted Data:**
%s

**Page Text (first %d characters):**
%s

Decide whether the test succeeded.
`, in.Instructions, expected, in.PageTitle, string(extractedJSON), v.cfg.TextSampleSize, llmutil.Head(pageText, v.cfg.TextSampleSize))

	req := schemas.GenerationRequest{
		SystemPrompt: verifierSystemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierFast,
		Options:      schemas.GenerationOptions{ForceJSONFormat: true, Temperature: schemas.Temperature(0)},
	}

	v.logger.Debug("No heuristic was decisive, asking the reasoning service.")
	response, err := v.llmClient.Generate(ctx, req)
	if err != nil {
		return schemas.VerificationResult{}, fmt.Errorf("LLM generation failed: %w", err)
	}

	verdict, err := llmutil.ParseJSONResponse[schemas.VerificationResult](response)
	if err != nil {
		return schemas.VerificationResult{}, err
	}
	return *verdict, nil
}

const verifierSystemPrompt = `You are a QA reviewer. Given test instructions, the expected outcome and evidence collected from the page, decide whether the test passed.

**Response Format (Strict JSON):**
{
  "success": true,
  "message": "One sentence explaining the verdict."
}`
