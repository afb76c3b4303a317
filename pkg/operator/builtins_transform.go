package operator

import (
	"strings"

	"github.com/cyber-boost/helix/pkg/value"
)

// transformOperator implements `@transform(template, data)` for dataset
// reshaping. The three template shapes are Open Question decision 2: each
// is the obvious, minimal schema a training pipeline would expect, since
// none is published in the source material.
func transformOperator(member string, positional []value.Value, named map[string]value.Value, ctx *Context) (value.Value, error) {
	if len(positional) < 2 {
		return value.Null, newEvalError("E_TRANSFORM_ARGS", "@transform requires a template name and a data object")
	}
	template := positional[0].ToDisplayString()
	data := positional[1]
	switch template {
	case "conversational":
		return transformConversational(data)
	case "preference":
		return transformPreference(data)
	case "chatml":
		return transformChatML(data)
	default:
		return value.Null, newEvalError("E_TRANSFORM_TEMPLATE", "unknown transform template %q", template)
	}
}

// transformConversational produces {"messages":[{"role","content"}]}.
func transformConversational(data value.Value) (value.Value, error) {
	role, _ := data.Get("role")
	content, _ := data.Get("content")
	msg := value.NewObject()
	msg.Set("role", role)
	msg.Set("content", content)
	out := value.NewObject()
	out.Set("messages", value.Array([]value.Value{msg}))
	return out, nil
}

// transformPreference produces {"prompt","chosen","rejected"}.
func transformPreference(data value.Value) (value.Value, error) {
	prompt, _ := data.Get("prompt")
	chosen, _ := data.Get("chosen")
	rejected, _ := data.Get("rejected")
	out := value.NewObject()
	out.Set("prompt", prompt)
	out.Set("chosen", chosen)
	out.Set("rejected", rejected)
	return out, nil
}

// transformChatML joins an array of {role, content} turns into
// `<|im_start|>role\ncontent<|im_end|>\n` blocks.
func transformChatML(data value.Value) (value.Value, error) {
	if data.Kind() != value.KindArray {
		return value.Null, newEvalError("E_TRANSFORM_SHAPE", "chatml template requires an array of {role, content} turns")
	}
	var sb strings.Builder
	for _, turn := range data.AsArray() {
		role, _ := turn.Get("role")
		content, _ := turn.Get("content")
		sb.WriteString("<|im_start|>")
		sb.WriteString(role.ToDisplayString())
		sb.WriteString("\n")
		sb.WriteString(content.ToDisplayString())
		sb.WriteString("<|im_end|>\n")
	}
	return value.String(sb.String()), nil
}
