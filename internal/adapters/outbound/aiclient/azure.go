package aiclient

import (
	"context"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

// Azure talks to an Azure OpenAI deployment. The model name doubles as
// the deployment ID, which is how Azure addresses it.
type Azure struct {
	client     *azopenai.Client
	deployment string
}

func NewAzure(endpoint, apiKey, deployment string) (*Azure, error) {
	if endpoint == "" {
		endpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("azure endpoint not set (config ai.endpoint or AZURE_OPENAI_ENDPOINT)")
	}
	if apiKey == "" {
		apiKey = os.Getenv("AZURE_OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("azure api key not set (config ai.api_key or AZURE_OPENAI_API_KEY)")
	}

	client, err := azopenai.NewClientWithKeyCredential(endpoint, azcore.NewKeyCredential(apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("creating azure openai client: %w", err)
	}
	return &Azure{client: client, deployment: deployment}, nil
}

func (a *Azure) Name() string { return "azure:" + a.deployment }

func (a *Azure) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
		DeploymentName: to.Ptr(a.deployment),
		Messages: []azopenai.ChatRequestMessageClassification{
			&azopenai.ChatRequestUserMessage{
				Content: azopenai.NewChatRequestUserMessageContent(prompt),
			},
		},
	}, nil)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("empty response from %s", a.deployment)
	}
	return *resp.Choices[0].Message.Content, nil
}
