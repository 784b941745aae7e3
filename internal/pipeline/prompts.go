package pipeline

import "fmt"

const routerSystemPrompt = `You are a routing assistant. Analyze the user's question and determine if it's about:
1. WEATHER: Questions about weather, temperature, climate, forecast for a location
2. PDF: Questions about document content, information retrieval from documents

Respond with ONLY one word: 'weather' or 'pdf'`

const cityExtractionPrompt = "Extract ONLY the city name from the user's question. Return only the city name, nothing else."

const weatherAnswerPrompt = "You are a helpful weather assistant. Use the provided weather data to answer the user's question naturally and conversationally."

const documentAnswerPrompt = "You are a helpful assistant. Use the provided document context to answer the user's question. If the answer is not in the context, say so. Be concise and accurate."

const evaluationSystemPrompt = `Evaluate the response on a scale of 1-10 for:
1. Relevance: Does it answer the question?
2. Accuracy: Is the information correct based on context?
3. Completeness: Is the answer complete?

You MUST respond with ONLY valid JSON in this exact format, no other text:
{"relevance": X, "accuracy": Y, "completeness": Z}`

func weatherAnswerInput(context, question string) string {
	return fmt.Sprintf("Weather Data:\n%s\n\nQuestion: %s\n\nAnswer:", context, question)
}

func documentAnswerInput(context, question string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nAnswer:", context, question)
}

func evaluationInput(question, context, answer string) string {
	return fmt.Sprintf("Question: %s\n\nContext: %s\n\nResponse: %s", question, context, answer)
}
