package studyapi

import "time"

type User struct {
	PK       int    `json:"pk"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type LoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

type RegisterPayload struct {
	Username  string `json:"username" validate:"required,username"`
	Email     string `json:"email" validate:"required,email"`
	Password1 string `json:"password1" validate:"required,min=8"`
	Password2 string `json:"password2" validate:"required,eqfield=Password1"`
}

type LogoutPayload struct {
	Refresh string `json:"refresh"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

type Project struct {
	ID          int       `json:"id"`
	User        int       `json:"user"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	PROJECT_DRAFT     = "draft"
	PROJECT_RUNNING   = "running"
	PROJECT_COMPLETED = "completed"
	PROJECT_FAILED    = "failed"
)

type CreateProjectPayload struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
}

type CreatedProject struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ProjectID   int    `json:"project_id"`
}

type SiliconPerson struct {
	ID        int       `json:"id"`
	Project   int       `json:"project"`
	Name      string    `json:"name"`
	Gender    string    `json:"gender"`
	Age       *int      `json:"age"`
	State     string    `json:"state"`
	Race      string    `json:"race"`
	Party     string    `json:"party"`
	Ideology  string    `json:"ideology"`
	Education string    `json:"education"`
	Religion  string    `json:"religion"`
	CreatedAt time.Time `json:"created_at"`
}

type SiliconPersonQuery struct {
	ProjectID int `param:"project_id"`
}

// Envelope wraps list and create responses of the project endpoints.
type Envelope[T any] struct {
	Data   T   `json:"data"`
	Status int `json:"status"`
}

// StandardResponse wraps the responses of the estimation and catalog endpoints.
type StandardResponse[T any] struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Data       T      `json:"data"`
	StatusCode int    `json:"status_code"`
	Code       string `json:"code,omitempty"`
}

// QuestionsFile is a CSV or .xlsx document holding one question per row in its
// first column.
type QuestionsFile struct {
	Name    string
	Content []byte
}

// TokenCostPayload takes questions from exactly one of QuestionsList or QuestionsFile.
type TokenCostPayload struct {
	ModelName        string         `json:"model_name" validate:"required"`
	NumSiliconPeople int            `json:"num_silicon_people" validate:"min=1"`
	QuestionsList    []string       `json:"questions_list,omitempty"`
	QuestionsFile    *QuestionsFile `json:"-"`
}

type SimulationDetails struct {
	NumSiliconPeople int `json:"num_silicon_people"`
	NumQuestions     int `json:"num_questions"`
	TotalRequests    int `json:"total_requests"`
}

type TokenCounts struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

type CostUSD struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
	Total  float64 `json:"total"`
}

type TokenCost struct {
	Model             string            `json:"model"`
	SimulationDetails SimulationDetails `json:"simulation_details"`
	Tokens            TokenCounts       `json:"tokens"`
	CostUSD           CostUSD           `json:"cost_usd"`
}

type Dashboard struct {
	Projects []Project
	Models   []string
}
