package steps

// Prompt templates rendered with fmt.Sprintf. Each takes the scraped content
// as its only argument except FieldPromptTopics, which also takes the
// comma-joined tags.
const (
	FieldPromptClassify = `Analyze the following content and classify it into one of these categories:
Technology, Business, Science, Health, Entertainment, Education, or Other.

Content: %s

Category:`

	FieldPromptSummarize = `Provide a concise summary of the following content in 2-3 sentences.

Content: %s

Summary:`

	FieldPromptTags = `Analyze the following content and extract 5-7 most relevant tags that represent the main topics.
Return the tags as a comma-separated list.

Content: %s

Tags:`

	FieldPromptTopics = `Based on the following content and its tags, suggest 3-5 related topics that would be interesting to explore further.
Return the topics as a comma-separated list.

Content: %s
Tags: %s

Related Topics:`

	FieldPromptSentiment = `Analyze the sentiment of the following content.
Provide a sentiment score from -1 (very negative) to 1 (very positive) and a brief explanation.
Format: Score: [number], Explanation: [text]

Content: %s

Sentiment Analysis:`

	FieldPromptKeyPhrases = `Extract 3-5 key phrases or important quotes from the following content.
For each phrase/quote, provide a brief context of why it's important.
Format each entry as: "Phrase: [text] - Context: [explanation]"

Content: %s

Key Phrases:`

	FieldPromptReadability = `Analyze the readability of the following content.
Provide:
1. A readability score (1-10, where 10 is most complex)
2. The suggested target audience (e.g., "General Public", "Academic", "Technical")
3. Brief explanation of the complexity level

Content: %s

Readability Analysis:`

	FieldPromptFacts = `Identify 3-5 key facts or claims from the following content that might need verification.
For each fact/claim, provide:
1. The statement
2. Why it might need verification
3. Suggested sources to verify

Content: %s

Facts to Verify:`

	FieldPromptStructure = `Analyze the structure and organization of the following content.
Provide:
1. The main sections/topics
2. The logical flow of the content
3. Suggestions for better organization (if any)

Content: %s

Structure Analysis:`
)
