package studyapi

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"strconv"

	"github.com/opinionlab/studyctl/pkg/studyapi/routes"
)

const QUESTIONS_FILE_FIELD = "questions_file"

// CalculateTokenCost estimates the cost of simulating every question for
// NumSiliconPeople people. A questions file is sent as multipart/form-data.
func (c *Client) CalculateTokenCost(ctx context.Context, payload TokenCostPayload) (TokenCost, error) {
	if err := c.validator.Validate(payload); err != nil {
		return TokenCost{}, err
	}

	hasList := len(payload.QuestionsList) > 0
	hasFile := payload.QuestionsFile != nil && len(payload.QuestionsFile.Content) > 0
	if hasList == hasFile {
		return TokenCost{}, ErrQuestionSource
	}

	b := c.builder(routes.TOKEN_COST).POST()
	if hasFile {
		contentType, body, err := encodeTokenCostForm(payload)
		if err != nil {
			return TokenCost{}, err
		}
		b.RawBody(contentType, body)
	} else {
		b.Body(payload)
	}

	var resp StandardResponse[TokenCost]
	if err := c.do(ctx, b, &resp); err != nil {
		return TokenCost{}, err
	}
	return resp.Data, nil
}

func encodeTokenCostForm(payload TokenCostPayload) (string, []byte, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"model_name", payload.ModelName},
		{"num_silicon_people", strconv.Itoa(payload.NumSiliconPeople)},
	}
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return "", nil, fmt.Errorf("unable to encode form field %s: %w", field[0], err)
		}
	}

	name := payload.QuestionsFile.Name
	if name == "" {
		name = "questions.csv"
	}
	part, err := form.CreateFormFile(QUESTIONS_FILE_FIELD, name)
	if err != nil {
		return "", nil, fmt.Errorf("unable to encode questions file: %w", err)
	}
	if _, err := part.Write(payload.QuestionsFile.Content); err != nil {
		return "", nil, fmt.Errorf("unable to encode questions file: %w", err)
	}

	if err := form.Close(); err != nil {
		return "", nil, fmt.Errorf("unable to encode form: %w", err)
	}
	return form.FormDataContentType(), buf.Bytes(), nil
}
