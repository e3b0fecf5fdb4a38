package google

import (
	"testing"

	"google.golang.org/genai"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/tools"
)

func TestConvertMessagesToGemini(t *testing.T) {
	contents, system, err := convertMessagesToGemini([]llm.CompletionMessage{
		llm.NewSystemMessage("You are a planner"),
		llm.NewSystemMessage("Be brief"),
		llm.NewUserMessage("todo app"),
		llm.NewAssistantMessage("", []llm.ToolCall{{ID: "c1", Name: "read_file", Parameters: map[string]any{"path": "a"}}}),
		llm.NewToolResultMessage([]llm.ToolResult{{ToolCallID: "c1", Name: "read_file", Content: "hello"}}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if system != "You are a planner\n\nBe brief" {
		t.Errorf("system = %q", system)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[1].Role != "model" || contents[1].Parts[0].FunctionCall == nil {
		t.Errorf("assistant turn not converted: %+v", contents[1])
	}
	resp := contents[2].Parts[0].FunctionResponse
	if resp == nil || resp.Name != "read_file" || resp.Response["content"] != "hello" {
		t.Errorf("tool result not converted: %+v", resp)
	}
}

func TestConvertMessagesRejectsSystemOnly(t *testing.T) {
	if _, _, err := convertMessagesToGemini([]llm.CompletionMessage{llm.NewSystemMessage("x")}); err == nil {
		t.Error("expected error for system-only conversation")
	}
}

func TestConvertToolsToGemini(t *testing.T) {
	decls := convertToolsToGemini([]tools.ToolDefinition{{
		Name: "submit_review",
		InputSchema: tools.InputSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"quality_score": {Type: "integer", Minimum: tools.Float(0), Maximum: tools.Float(100)},
				"issues":        {Type: "array", Items: &tools.Property{Type: "string"}},
			},
			Required: []string{"quality_score"},
		},
	}})
	params := decls[0].Parameters
	if params.Type != genai.TypeObject || len(params.Required) != 1 {
		t.Fatalf("unexpected parameters %+v", params)
	}
	score := params.Properties["quality_score"]
	if score.Type != genai.TypeInteger || score.Maximum == nil || *score.Maximum != 100 {
		t.Errorf("score bounds lost: %+v", score)
	}
	if issues := params.Properties["issues"]; issues.Items == nil || issues.Items.Type != genai.TypeString {
		t.Errorf("array items lost: %+v", issues)
	}
}

func TestFunctionCalling(t *testing.T) {
	forced := functionCalling("submit_plan")
	if forced.Mode != genai.FunctionCallingConfigModeAny || len(forced.AllowedFunctionNames) != 1 {
		t.Errorf("forced tool not restricted: %+v", forced)
	}
	if functionCalling("").Mode != genai.FunctionCallingConfigModeAuto {
		t.Error("default should be auto")
	}
}

func TestConvertFunctionCallsUsesNameWhenIDMissing(t *testing.T) {
	calls := convertFunctionCallsFromGemini([]*genai.FunctionCall{{Name: "task_complete", Args: map[string]any{"summary": "ok"}}})
	if calls[0].ID != "task_complete" || calls[0].Parameters["summary"] != "ok" {
		t.Errorf("unexpected call %+v", calls[0])
	}
}
