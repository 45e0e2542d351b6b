package mockbackend

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"maps"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/opinionlab/studyctl/pkg/studyapi"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/xuri/excelize/v2"
)

const (
	COST_MARGIN           = 1.20
	OUTPUT_TOKENS_PER_ANS = 3
)

var (
	ErrUnsupportedModel = errors.New("model not supported")
	ErrNoQuestions      = errors.New("no questions found in the provided source")
	ErrUnsupportedFile  = errors.New("unsupported file format")
)

// Price is the USD price per million tokens.
type Price struct {
	Input  float64
	Output float64
}

var ModelPricing = map[string]Price{
	"gpt-5.1":       {Input: 1.25, Output: 10.00},
	"gpt-5":         {Input: 1.25, Output: 10.00},
	"gpt-5-mini":    {Input: 0.25, Output: 2.00},
	"gpt-5-nano":    {Input: 0.05, Output: 0.40},
	"gpt-5-pro":     {Input: 15.00, Output: 120.00},
	"gpt-4.1":       {Input: 2.00, Output: 8.00},
	"gpt-4.1-mini":  {Input: 0.40, Output: 1.60},
	"gpt-4.1-nano":  {Input: 0.10, Output: 0.40},
	"gpt-4o":        {Input: 2.50, Output: 10.00},
	"gpt-4o-mini":   {Input: 0.15, Output: 0.60},
	"gpt-3.5-turbo": {Input: 0.50, Output: 1.50},
}

func Models() []string {
	return slices.Sorted(maps.Keys(ModelPricing))
}

// reference respondent every estimate is made for
const standardBackstory = "You are a 45-year-old female with college graduate education living in Pennsylvania. " +
	"Your race is: White. You identify with the Independent party. Your ideology is: Moderate. " +
	"Your interest in politics: Very Interested. You discuss politics: Frequently. " +
	"You attend church: Weekly. Your religion is: Protestant. Financially, you are: Comfortable. " +
	"Your patriotism: Very Patriotic."

func buildPrompt(question string) string {
	lines := []string{
		standardBackstory,
		"",
		strings.TrimSpace(question),
		"",
		"Possible answers:",
		"1. Option A",
		"2. Option B",
		"",
		"IMPORTANT:",
		"Your answer MUST contain ONLY the candidate's name, exactly as written above.",
		"Do NOT write anything else. Do NOT explain. Do NOT add punctuation.",
		"Return ONLY the name. Example of correct format: obama",
		"Example of INCORRECT format: 'I would vote for Obama.'",
	}
	return strings.Join(lines, "\n")
}

const FALLBACK_ENCODING = "cl100k_base"

var encodings sync.Map // model name -> *tiktoken.Tiktoken

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// encodingFor resolves the BPE encoding of model, falling back to cl100k_base
// for models the tokenizer does not know yet.
func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	if enc, ok := encodings.Load(model); ok {
		return enc.(*tiktoken.Tiktoken), nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(FALLBACK_ENCODING)
		if err != nil {
			return nil, fmt.Errorf("unable to load %s encoding: %w", FALLBACK_ENCODING, err)
		}
	}
	encodings.Store(model, enc)
	return enc, nil
}

func countTokens(model, text string) (int, error) {
	enc, err := encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// EstimateCost prices asking every question to numPeople simulated respondents.
func EstimateCost(model string, questions []string, numPeople int) (studyapi.TokenCost, error) {
	price, ok := ModelPricing[model]
	if !ok {
		return studyapi.TokenCost{}, fmt.Errorf("%w: %s", ErrUnsupportedModel, model)
	}
	if len(questions) == 0 {
		return studyapi.TokenCost{}, ErrNoQuestions
	}

	var in, out int
	for _, q := range questions {
		tokens, err := countTokens(model, buildPrompt(q))
		if err != nil {
			return studyapi.TokenCost{}, err
		}
		in += tokens * numPeople
		out += OUTPUT_TOKENS_PER_ANS * numPeople
	}

	inCost := float64(in) / 1_000_000 * price.Input * COST_MARGIN
	outCost := float64(out) / 1_000_000 * price.Output * COST_MARGIN

	return studyapi.TokenCost{
		Model: model,
		SimulationDetails: studyapi.SimulationDetails{
			NumSiliconPeople: numPeople,
			NumQuestions:     len(questions),
			TotalRequests:    numPeople * len(questions),
		},
		Tokens: studyapi.TokenCounts{Input: in, Output: out},
		CostUSD: studyapi.CostUSD{
			Input:  round6(inCost),
			Output: round6(outCost),
			Total:  round6(inCost + outCost),
		},
	}, nil
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// ParseQuestionsFile returns the first column of every non-empty row of a
// CSV or Excel workbook. Workbooks are read from their first sheet.
func ParseQuestionsFile(name string, content []byte) ([]string, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		rows, err = csvRows(content)
	case ".xlsx", ".xlsm":
		rows, err = workbookRows(content)
	default:
		return nil, fmt.Errorf("%w: %s, please upload a .csv or .xlsx file", ErrUnsupportedFile, name)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing file: %w", err)
	}

	var questions []string
	for _, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		questions = append(questions, row[0])
	}
	return questions, nil
}

func csvRows(content []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func workbookRows(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}
