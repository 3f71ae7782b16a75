package reader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/agentstation/cardmap/pkg/errors"
)

// DefaultPromptText asks for full-width katakana readings and prefers the
// printed ruby (ateji) over the dictionary reading of the kanji.
const DefaultPromptText = `あなたはワンピースカードゲームの専門家です。以下のカード名のリストについて、
正しい「読み仮名（全角カタカナ）」を答えてください。
「芳香脚」は「パフューム・フェムル」のように、カードに振られたルビ（当て字）を優先してください。

出力は以下のJSON形式のみを返してください。マークダウン記法は不要です。
{
  "カード名": "ヨミガナ"
}

リスト:
{{.Names}}
`

// Prompt renders the request text for one task.
type Prompt struct {
	tmpl *template.Template
}

// DefaultPrompt returns the built-in prompt.
func DefaultPrompt() *Prompt {
	p, err := NewPrompt(DefaultPromptText)
	if err != nil {
		panic(err)
	}
	return p
}

// NewPrompt parses a text/template prompt. The template receives the
// JSON-encoded name list as {{.Names}}.
func NewPrompt(text string) (*Prompt, error) {
	if !strings.Contains(text, ".Names") {
		return nil, errors.NewValidationError("prompt", nil, "template must reference {{.Names}}")
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, errors.WrapParse("template", "prompt", err)
	}
	return &Prompt{tmpl: tmpl}, nil
}

// LoadPrompt reads a prompt template from path.
func LoadPrompt(path string) (*Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return NewPrompt(string(data))
}

// Render substitutes names into the template.
func (p *Prompt) Render(names []string) (string, error) {
	var encoded bytes.Buffer
	enc := json.NewEncoder(&encoded)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(names); err != nil {
		return "", fmt.Errorf("encode names: %w", err)
	}

	var out bytes.Buffer
	data := struct{ Names string }{Names: strings.TrimSpace(encoded.String())}
	if err := p.tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out.String(), nil
}
