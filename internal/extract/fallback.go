package extract

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	sentencesPerChunk = 5
	minSentenceLen    = 20
	minKeywordLen     = 3
	maxTableRows      = 10
	maxListItems      = 15
)

// Fallback answers request from chunks without any model: it keeps the first
// few substantial sentences of every chunk, filters them by the request's
// keywords and renders a markdown table when a table is asked for, else a
// bulleted list. A non-nil cause appends a note explaining why the backend
// was not used. Output depends only on the arguments.
func Fallback(chunks []string, request string, cause error, model string) string {
	relevant := matchSentences(sentencePool(chunks), keywords(request))

	var sb strings.Builder
	sb.WriteString("# Extracted Information\n\n")
	if strings.Contains(strings.ToLower(request), "table") {
		writeTable(&sb, relevant)
	} else {
		writeList(&sb, relevant)
	}
	if len(relevant) == 0 {
		sb.WriteString("\n_No sentences matched the request keywords._\n")
	}
	if cause != nil {
		sb.WriteString("\n\n> Note: AI-powered extraction failed with error: ")
		sb.WriteString(singleLine(cause.Error()))
		sb.WriteString("\n> Using basic extraction instead. For better results, run an OpenAI-compatible backend (for example Ollama) with the ")
		sb.WriteString(model)
		sb.WriteString(" model.\n")
	}
	return sb.String()
}

// sentencePool splits each chunk on periods and keeps the first
// sentencesPerChunk sentences longer than minSentenceLen characters.
func sentencePool(chunks []string) []string {
	var pool []string
	for _, c := range chunks {
		kept := 0
		for _, s := range strings.Split(c, ".") {
			s = strings.Join(strings.Fields(s), " ")
			if utf8.RuneCountInString(s) <= minSentenceLen {
				continue
			}
			pool = append(pool, s)
			kept++
			if kept == sentencesPerChunk {
				break
			}
		}
	}
	return pool
}

// keywords returns the lowercased request tokens longer than minKeywordLen
// characters with surrounding punctuation removed.
func keywords(request string) []string {
	var out []string
	for _, tok := range strings.Fields(request) {
		kw := strings.TrimFunc(strings.ToLower(tok), unicode.IsPunct)
		if utf8.RuneCountInString(kw) > minKeywordLen {
			out = append(out, kw)
		}
	}
	return out
}

// matchSentences keeps sentences containing any keyword, or its singular
// form, as a case-insensitive substring. Order is preserved.
func matchSentences(pool []string, kws []string) []string {
	var out []string
	for _, s := range pool {
		lower := strings.ToLower(s)
		for _, kw := range kws {
			if strings.Contains(lower, kw) || strings.Contains(lower, singular(kw)) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// singular strips one trailing "s" so that "prices" also finds "price".
// Stems of minKeywordLen characters or fewer are not used.
func singular(kw string) string {
	stem := strings.TrimSuffix(kw, "s")
	if stem == kw || utf8.RuneCountInString(stem) <= minKeywordLen {
		return kw
	}
	return stem
}

func writeTable(sb *strings.Builder, sentences []string) {
	sb.WriteString("| Information | Content |\n| --- | --- |\n")
	for i, s := range sentences {
		if i == maxTableRows {
			break
		}
		if key, value, ok := strings.Cut(s, ":"); ok {
			fmt.Fprintf(sb, "| %s | %s |\n", cell(key), cell(value))
			continue
		}
		fmt.Fprintf(sb, "| Item %d | %s |\n", i+1, cell(s))
	}
}

func writeList(sb *strings.Builder, sentences []string) {
	for i, s := range sentences {
		if i == maxListItems {
			break
		}
		sb.WriteString("- ")
		sb.WriteString(s)
		sb.WriteString("\n")
	}
}

func cell(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "|", `\|`)
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
