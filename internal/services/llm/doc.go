// Package llm provides the chat-completion client used by stage executors.
//
// The client speaks an OpenAI-compatible chat completions API and always
// requests JSON output. Executors depend on the Completer interface rather
// than the concrete client so tests can substitute fakes.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send system/user prompts with generation parameters,
// receive the raw JSON payload plus model and token-usage metadata.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON: tolerant decoding of model output (code fences, prose
// wrapping).
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default),
// honouring Retry-After. Context cancellation aborts retries immediately.
package llm
