package compact

import "fmt"

// TopicNotFoundToken is what the service answers when no exchange matches.
const TopicNotFoundToken = "NOT_FOUND"

// EmptyHeadSummary is used instead of a service call when nothing precedes
// the boundary.
const EmptyHeadSummary = "[No content before boundary to summarize.]"

const topicSystemPrompt = `You are a conversation analyst. You will be given a transcript of a Claude Code session with labeled message UUIDs. Your job is to find the first message where the conversation shifts to the specified topic.

Rules:
- Return ONLY the UUID of the first message that matches the topic
- If the topic spans multiple messages, return the UUID of the FIRST one
- If the topic is discussed from the very start, return the UUID of the first message
- If the topic is never discussed, return 'NOT_FOUND'
- Return nothing else, just the UUID or NOT_FOUND`

const summarySystemPrompt = `You are a conversation summarizer. Given a transcript of a Claude Code session, produce a concise but thorough summary that captures:

1. **Topics discussed** - What was the conversation about?
2. **Key decisions** - What choices were made and why?
3. **Actions taken** - What files were modified, commands run, etc.?
4. **Current state** - What was accomplished by the end of this section?
5. **Unresolved items** - Anything left incomplete or pending?

Format the summary as a clear, structured overview. Use bullet points.
Be specific about file names, function names, and technical details.
Keep it under 1500 words. Do not include preamble or meta-commentary.`

const exchangeTruncationMarker = "\n\n... [middle section truncated due to length] ...\n\n"

func topicUserPrompt(topic, transcript string) string {
	return fmt.Sprintf("Find the first message about this topic: %s\n\nTranscript:\n%s", topic, transcript)
}

func summaryUserPrompt(transcript string) string {
	return "Summarize this conversation section:\n\n" + transcript
}
