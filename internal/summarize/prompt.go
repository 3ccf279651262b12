package summarize

import "fmt"

// buildSystemPrompt mirrors utils/summarizer.py's _get_system_prompt
// sentence-for-sentence: same three length targets, same three kind
// branches, same required-query check for query-focused summaries.
func buildSystemPrompt(kind Kind, length Length, query string) (string, error) {
	prompt := fmt.Sprintf("You are a highly skilled summarization AI. Your task is to provide a %s summary.", length)

	switch kind {
	case KindAbstractive:
		prompt += " The summary should be abstractive, meaning you should rephrase and synthesize the information."
	case KindExtractive:
		prompt += " The summary should be extractive, meaning you should select key sentences directly from the text."
	case KindQueryFocused:
		if query == "" {
			return "", fmt.Errorf("query must be provided for query_focused summary type")
		}
		prompt += fmt.Sprintf(" The summary should be focused on answering the following query: '%s'.", query)
	}

	prompt += " Ensure the summary is concise, accurate, and captures the main points."

	switch length {
	case LengthShort:
		prompt += " Keep the summary very brief, around 1-2 sentences."
	case LengthMedium:
		prompt += " Aim for a summary of 3-5 sentences."
	case LengthDetailed:
		prompt += " Provide a comprehensive summary, covering all important aspects, around 5-10 sentences."
	}

	return prompt, nil
}

func buildUserPrompt(text string) string {
	return "Please summarize the following text:\n\n" + text
}
