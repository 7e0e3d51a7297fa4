package extract

import (
	"fmt"
	"strings"
)

// SentinelPhrase is what the backend is told to answer when a chunk holds
// nothing relevant. Responses containing it are dropped before synthesis.
const SentinelPhrase = "No relevant information found in this chunk"

// NoInformationMessage is the final answer when every chunk was irrelevant.
const NoInformationMessage = "No relevant information found on the website based on your request."

func chunkPrompt(request string, index, total int, chunk string) string {
	var sb strings.Builder
	sb.WriteString("You are an AI web scraper assistant. Your task is to extract information from websites.\n\n")
	sb.WriteString("USER REQUEST: ")
	sb.WriteString(request)
	sb.WriteString(fmt.Sprintf("\n\nWEBSITE CONTENT (CHUNK %d/%d):\n", index+1, total))
	sb.WriteString(chunk)
	sb.WriteString("\n\nBased ONLY on the content above, extract the information requested.")
	sb.WriteString("\nIf the requested information is not in this chunk, respond with \"")
	sb.WriteString(SentinelPhrase)
	sb.WriteString(".\"")
	sb.WriteString("\nFormat your response as plain text with appropriate structure.")
	return sb.String()
}

func synthesisPrompt(request string, combined string) string {
	var sb strings.Builder
	sb.WriteString("You are an AI web scraper assistant. Your task is to summarize information extracted from a website.\n\n")
	sb.WriteString("USER REQUEST: ")
	sb.WriteString(request)
	sb.WriteString("\n\nEXTRACTED CONTENT:\n")
	sb.WriteString(combined)
	sb.WriteString("\n\nCreate a final, clean, well-formatted summary of the information above.")
	sb.WriteString("\nFormat your response as plain text with appropriate structure.")
	return sb.String()
}

func isSentinel(response string) bool {
	return strings.Contains(strings.ToLower(response), strings.ToLower(SentinelPhrase))
}
