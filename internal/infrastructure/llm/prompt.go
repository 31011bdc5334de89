package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"PaperCast/internal/domain"
)

// DefaultInstruction asks for a Traditional Chinese rendition suited for listening.
const DefaultInstruction = "請將以下arXiv論文標題與摘要翻譯成繁體中文，並完成以下任務：\n" +
	"1. 將摘要濃縮成適合收聽且簡明扼要的中文摘要（約100-150字）。\n" +
	"2. 設想3個「生活化的應用場景」，用簡單易懂的口語描述，讓一般人能理解這項技術的價值。\n" +
	"3. 以「向創投或天使基金推銷」的角度，說明這項技術的重要性與潛在商業價值，盡量發揮創意、大膽預測未來可能性。"

const jsonContract = "請只回覆一個 JSON 物件，欄位為 title_zh（字串）、summary_zh（字串）、applications（恰好3個字串的陣列）、pitch（字串）。"

// BuildPrompt renders the user prompt for one paper.
func BuildPrompt(instruction, title, abstract string) string {
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(instruction))
	b.WriteString("\n\n英文標題：")
	b.WriteString(title)
	b.WriteString("\n英文摘要：")
	b.WriteString(abstract)
	b.WriteString("\n")
	return b.String()
}

// decodeEnrichment parses a model reply, tolerating surrounding code fences.
func decodeEnrichment(raw string) (domain.Enrichment, error) {
	raw = stripCodeFence(raw)
	if raw == "" {
		return domain.Enrichment{}, errors.New("empty response")
	}

	var out domain.Enrichment
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&out); err != nil {
		return domain.Enrichment{}, fmt.Errorf("decode enrichment json: %w", err)
	}
	return out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
