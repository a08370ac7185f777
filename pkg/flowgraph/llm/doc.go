// Package llm defines the completion client used by chat nodes.
//
// AnthropicClient talks to the Anthropic Messages API; MockClient scripts
// replies for tests. Both satisfy Client:
//
//	resp, err := client.Complete(ctx, llm.CompletionRequest{
//	    SystemPrompt: "You are a helpful AI assistant.",
//	    Messages:     []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
//	})
//	reply := resp.Text()
package llm
