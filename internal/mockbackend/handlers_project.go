package mockbackend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/opinionlab/studyctl/internal/repositories/project"
	"github.com/opinionlab/studyctl/pkg/auth"
	"github.com/opinionlab/studyctl/pkg/persistence"
	"github.com/opinionlab/studyctl/pkg/rest"
	"github.com/opinionlab/studyctl/pkg/rest/request"
	"github.com/opinionlab/studyctl/pkg/rest/response"
	"github.com/opinionlab/studyctl/pkg/studyapi"
)

func userID(r *http.Request) int {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return 0
	}
	return claims.UserID
}

func (s *Server) GetProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.ReadByUser(userID(r))
	if err != nil {
		response.Err(w, response.ErrInternalError, "unable to fetch projects from storage")
		s.log.Error("unable to fetch projects", slog.String("reason", err.Error()))
		return
	}

	response.JSON(w, http.StatusOK, studyapi.Envelope[[]studyapi.Project]{Data: projects, Status: http.StatusOK})
}

func (s *Server) CreateProject(w http.ResponseWriter, r *http.Request) {
	var payload studyapi.CreateProjectPayload
	if err := decode(r, &payload); err != nil {
		response.Err(w, response.ErrInvalidInput, "malformed request body")
		return
	}
	if err := s.validator.Validate(payload); err != nil {
		invalid(w, err)
		return
	}

	p := &studyapi.Project{
		User:        userID(r),
		Title:       payload.Title,
		Description: payload.Description,
	}
	if err := s.projects.Create(p); err != nil {
		if errors.Is(err, project.ErrDuplicateTitle) {
			response.JSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("A project with the title '%s' already exists for this user.", payload.Title),
			})
			return
		}
		response.Err(w, response.ErrInternalError, "unable to store project")
		s.log.Error("unable to store project", slog.String("reason", err.Error()))
		return
	}

	response.JSON(w, http.StatusCreated, studyapi.Envelope[studyapi.CreatedProject]{
		Data: studyapi.CreatedProject{
			Title:       p.Title,
			Description: p.Description,
			ProjectID:   p.ID,
		},
		Status: http.StatusCreated,
	})
}

func (s *Server) GetAIModels(w http.ResponseWriter, r *http.Request) {
	response.Standard(w, http.StatusOK, "AI_MODELS_RETRIEVED", "AI models retrieved successfully.", Models())
}

func (s *Server) GetSiliconPersons(w http.ResponseWriter, r *http.Request) {
	var query studyapi.SiliconPersonQuery
	if err := request.MarshallParams(r.URL.Query(), &query); err != nil || query.ProjectID <= 0 {
		response.Err(w, response.ErrInvalidInput, "missing required parameter: project_id")
		return
	}

	p, err := s.projects.Read(strconv.Itoa(query.ProjectID))
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			response.Err(w, response.ErrNotFound, "project not found")
			return
		}
		response.Err(w, response.ErrInternalError, "unable to fetch project")
		return
	}
	if p.User != userID(r) {
		response.JSON(w, http.StatusForbidden, map[string]string{"error": "Unauthorized access"})
		return
	}

	persons, err := s.persons.ReadByProject(p.ID)
	if err != nil {
		response.Err(w, response.ErrInternalError, "unable to fetch silicon persons")
		s.log.Error("unable to fetch silicon persons", slog.String("reason", err.Error()))
		return
	}

	response.JSON(w, http.StatusOK, studyapi.Envelope[[]studyapi.SiliconPerson]{Data: persons, Status: http.StatusOK})
}

func (s *Server) TokenCost(w http.ResponseWriter, r *http.Request) {
	payload, err := s.readTokenCostPayload(r)
	if err != nil {
		response.Standard(w, http.StatusBadRequest, "invalid_input", "Validation failed.", map[string]string{"details": err.Error()})
		return
	}

	if err := s.validator.Validate(payload); err != nil {
		response.Standard(w, http.StatusBadRequest, "invalid_input", "Validation failed.", err.Error())
		return
	}
	if _, ok := ModelPricing[payload.ModelName]; !ok {
		response.Standard(w, http.StatusBadRequest, "invalid_input", "Validation failed.",
			map[string][]string{"model_name": {fmt.Sprintf("\"%s\" is not a valid choice.", payload.ModelName)}})
		return
	}

	hasFile := payload.QuestionsFile != nil
	if hasFile == (len(payload.QuestionsList) > 0) {
		response.Standard(w, http.StatusBadRequest, "invalid_input", "Validation failed.", studyapi.ErrQuestionSource.Error())
		return
	}

	questions := payload.QuestionsList
	if hasFile {
		questions, err = ParseQuestionsFile(payload.QuestionsFile.Name, payload.QuestionsFile.Content)
		if err != nil {
			response.Standard(w, http.StatusBadRequest, "value_error", err.Error(), nil)
			return
		}
	}
	if len(questions) == 0 {
		response.Standard(w, http.StatusBadRequest, "missing_questions", "No questions found in the provided source.", nil)
		return
	}

	cost, err := EstimateCost(payload.ModelName, questions, payload.NumSiliconPeople)
	if err != nil {
		response.Standard(w, http.StatusInternalServerError, "internal_error", "Internal calculation error.", map[string]string{"details": err.Error()})
		return
	}

	response.Standard(w, http.StatusOK, "", "Token cost estimation calculated successfully.", cost)
}

func (s *Server) readTokenCostPayload(r *http.Request) (studyapi.TokenCostPayload, error) {
	var payload studyapi.TokenCostPayload

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != rest.ContentTypeMultipart {
		err := decode(r, &payload)
		return payload, err
	}

	if err := r.ParseMultipartForm(MAX_UPLOAD_SIZE); err != nil {
		return payload, fmt.Errorf("malformed form: %w", err)
	}

	payload.ModelName = r.FormValue("model_name")
	num, err := strconv.Atoi(strings.TrimSpace(r.FormValue("num_silicon_people")))
	if err != nil {
		return payload, fmt.Errorf("num_silicon_people must be an integer")
	}
	payload.NumSiliconPeople = num
	payload.QuestionsList = r.MultipartForm.Value["questions_list"]

	file, header, err := r.FormFile(studyapi.QUESTIONS_FILE_FIELD)
	if errors.Is(err, http.ErrMissingFile) {
		return payload, nil
	}
	if err != nil {
		return payload, fmt.Errorf("unable to read questions file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return payload, fmt.Errorf("unable to read questions file: %w", err)
	}
	payload.QuestionsFile = &studyapi.QuestionsFile{Name: header.Filename, Content: content}

	return payload, nil
}
