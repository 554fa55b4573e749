package template

// Placeholders recognized by the prompt composer.
const (
	PlaceholderContext  = "{context}"
	PlaceholderQuestion = "{question}"
)

// Base is the fixed instruction template appended after the policy fragments.
const Base = `Answer the question based only on the following context:
You are a technical professional looking for the correct commands or process to use based on your role and the account.
Any account restrictions must be applied to applicable commands.
Account instructions take precedence over role instructions.
Restrictions that apply should be displayed as part of the response.
Role commands and processes need to be shown exactly; do not paraphrase or change their meaning.
The original question must be part of the prompt passed to the LLM.

{context}

---

Answer the question based on the above context: {question}
`
