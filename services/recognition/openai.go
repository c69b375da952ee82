package recognitionsvc

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/extraction"
)

var (
	errMissingKey = errors.New("recognition API key not set")
	errNoChoices  = errors.New("recognition service returned no answer")
)

// OpenAIRecognizer reads grade cards with a vision-capable chat completion model.
type OpenAIRecognizer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     core.Logger
}

var _ extraction.Recognizer = (*OpenAIRecognizer)(nil)

func NewOpenAIRecognizer(conf core.RecognitionConfig, logger core.Logger) (*OpenAIRecognizer, error) {
	if strings.TrimSpace(conf.APIKey) == "" {
		return nil, extraction.NewFailure(extraction.CategoryBadCredentials, errMissingKey)
	}
	clientConf := openai.DefaultConfig(conf.APIKey)
	if conf.BaseURL != "" {
		clientConf.BaseURL = conf.BaseURL
	}
	model := conf.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIRecognizer{
		client:  openai.NewClientWithConfig(clientConf),
		model:   model,
		timeout: conf.Timeout,
		log:     logger,
	}, nil
}

func (r *OpenAIRecognizer) Extract(ctx context.Context, images ...extraction.Image) (extraction.Result, error) {
	if err := extraction.CheckImages(images...); err != nil {
		return extraction.Result{}, err
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	parts := make([]openai.ChatMessagePart, 0, len(images)+1)
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: extraction.Prompt})
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURI(img),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}
	req := openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	r.log.Debug("extracting grades", "model", r.model, "images", len(images))
	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		f := categorize(err)
		r.log.Warn("recognition failed", f, "category", string(f.Category))
		return extraction.Result{}, f
	}
	if len(resp.Choices) == 0 {
		return extraction.Result{}, extraction.NewFailure(extraction.CategoryGeneric, errNoChoices)
	}

	res, err := extraction.ParseResult([]byte(resp.Choices[0].Message.Content))
	if err != nil {
		r.log.Warn("unreadable recognition payload", err)
		return extraction.Result{}, err
	}
	return res, nil
}

func dataURI(img extraction.Image) string {
	return "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// categorize maps client errors to failure categories, by status code when there is one.
func categorize(err error) *extraction.Failure {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		if apiErr.Type == "insufficient_quota" {
			return extraction.NewFailure(extraction.CategoryQuotaExhausted, err)
		}
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return extraction.NewFailure(extraction.CategoryBadCredentials, err)
	case http.StatusTooManyRequests:
		return extraction.NewFailure(extraction.CategoryQuotaExhausted, err)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return extraction.NewFailure(extraction.CategoryUnreadableInput, err)
	}
	return extraction.Categorize(err)
}
