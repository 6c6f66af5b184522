package llm

const mergeSystemPrompt = `You are a memory consolidation assistant. Merge similar memories accurately.`

const mergePrompt = `Merge the following %d similar memories into a single, more complete and accurate memory:

%s

Requirements:
1. Keep all important information
2. Remove duplicated content
3. Stay concise and natural
4. No more than 100 characters

Respond with ONLY the merged memory text. No explanation, no formatting.`
