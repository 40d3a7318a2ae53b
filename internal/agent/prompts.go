package agent

import "fmt"

// defaultSystemPrompt describes the agent's operating domain. Deployments
// override it through configuration when the dataset differs.
const defaultSystemPrompt = `You are a SQL expert working with a ClickHouse database containing sales data.
The tables include information on customers, transactions, product categories, geographies, and dates.
Be precise and avoid hallucinating columns or tables. Always use correct ClickHouse SQL syntax.
Respond with exactly one SQL statement and nothing else.`

func generatePrompt(schema, question string) string {
	return fmt.Sprintf(`Database schema:

%s

Write a single SQL query that answers the following question. Return only the SQL, no explanation.

Question: %s`, schema, question)
}

func repairPrompt(schema, question, sql, errMsg string) string {
	return fmt.Sprintf(`Database schema:

%s

The following SQL query was written to answer the question below, but it failed.

Question: %s

Query:
%s

Error: %s

Write a corrected SQL query. Return only the SQL, no explanation.`, schema, question, sql, errMsg)
}
