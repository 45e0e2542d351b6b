package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/opinionlab/studyctl/internal/output"
	"github.com/opinionlab/studyctl/pkg/studyapi"
	"github.com/spf13/cobra"
)

func newProjectsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Manage survey projects",
	}

	cmd.AddCommand(
		newProjectsListCommand(a),
		newProjectsCreateCommand(a),
		newProjectsPersonsCommand(a),
	)
	return cmd
}

func newProjectsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.session()
			if err != nil {
				return err
			}

			projects, err := api.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				a.printer.Info("no projects yet, create one with 'studyctl projects create'")
				return nil
			}

			table := output.NewTable(a.printer.Out(), []string{"id", "title", "status", "created"})
			for _, p := range projects {
				table.AddRow(
					strconv.Itoa(p.ID),
					a.printer.Bold(p.Title),
					a.printer.StatusBadge(p.Status),
					p.CreatedAt.Local().Format(time.DateTime),
				)
			}
			return table.Render()
		},
	}
}

func newProjectsCreateCommand(a *app) *cobra.Command {
	var payload studyapi.CreateProjectPayload

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.session()
			if err != nil {
				return err
			}

			created, err := api.CreateProject(cmd.Context(), payload)
			if err != nil {
				return err
			}

			a.printer.Success("created project %d: %s", created.ProjectID, created.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&payload.Title, "title", "", "project title, unique per account")
	cmd.Flags().StringVar(&payload.Description, "description", "", "project description")
	return cmd
}

func newProjectsPersonsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "persons <project-id>",
		Short: "List the silicon persons of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := strconv.Atoi(args[0])
			if err != nil {
				return &output.CLIError{
					Summary:  fmt.Sprintf("invalid project id: %s", args[0]),
					ExitCode: output.ExitUsageError,
				}
			}

			api, err := a.session()
			if err != nil {
				return err
			}

			persons, err := api.ListSiliconPersons(cmd.Context(), projectID)
			if err != nil {
				return err
			}

			table := output.NewTable(a.printer.Out(), []string{"id", "name", "gender", "age", "state", "party", "ideology"})
			for _, p := range persons {
				age := "-"
				if p.Age != nil {
					age = strconv.Itoa(*p.Age)
				}
				table.AddRow(strconv.Itoa(p.ID), p.Name, p.Gender, age, p.State, p.Party, p.Ideology)
			}
			return table.Render()
		},
	}
}

func newModelsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the AI models available for simulations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.session()
			if err != nil {
				return err
			}

			models, err := api.ListAIModels(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range models {
				a.printer.Print("%s", m)
			}
			return nil
		},
	}
}

func newDashboardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show your projects next to the available models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.session()
			if err != nil {
				return err
			}

			dash, err := api.Dashboard(cmd.Context())
			if err != nil {
				return err
			}

			a.printer.Header(fmt.Sprintf("%d projects", len(dash.Projects)))
			table := output.NewTable(a.printer.Out(), []string{"id", "title", "status"})
			for _, p := range dash.Projects {
				table.AddRow(strconv.Itoa(p.ID), a.printer.Bold(p.Title), a.printer.StatusBadge(p.Status))
			}
			if err := table.Render(); err != nil {
				return err
			}

			a.printer.Header(fmt.Sprintf("%d models", len(dash.Models)))
			for _, m := range dash.Models {
				a.printer.Print("%s", m)
			}
			return nil
		},
	}
}

func newCostCommand(a *app) *cobra.Command {
	var (
		payload   studyapi.TokenCostPayload
		questions []string
		filePath  string
	)

	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Estimate the token cost of a simulation",
		Long: `Estimate the token cost of asking every silicon person each question.
Questions come either from repeated --question flags or from a CSV or .xlsx
file holding one question per row in its first column.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload.QuestionsList = questions
			if filePath != "" {
				content, err := os.ReadFile(filePath)
				if err != nil {
					return &output.CLIError{Summary: "unable to read questions file", Detail: err.Error(), ExitCode: output.ExitUsageError}
				}
				payload.QuestionsFile = &studyapi.QuestionsFile{Name: filepath.Base(filePath), Content: content}
			}

			api, err := a.session()
			if err != nil {
				return err
			}

			cost, err := api.CalculateTokenCost(cmd.Context(), payload)
			if err != nil {
				return err
			}

			a.printer.Header(fmt.Sprintf("Estimate for %s", cost.Model))
			details := cost.SimulationDetails
			a.printer.Print("%d silicon people x %d questions = %d requests", details.NumSiliconPeople, details.NumQuestions, details.TotalRequests)

			table := output.NewTable(a.printer.Out(), []string{"", "tokens", "usd"})
			table.AddRow("input", strconv.Itoa(cost.Tokens.Input), formatUSD(cost.CostUSD.Input))
			table.AddRow("output", strconv.Itoa(cost.Tokens.Output), formatUSD(cost.CostUSD.Output))
			table.AddRow("total", strconv.Itoa(cost.Tokens.Input+cost.Tokens.Output), a.printer.Bold(formatUSD(cost.CostUSD.Total)))
			return table.Render()
		},
	}

	cmd.Flags().StringVar(&payload.ModelName, "model", "", "model to price, see 'studyctl models'")
	cmd.Flags().IntVar(&payload.NumSiliconPeople, "people", 1, "number of silicon people")
	cmd.Flags().StringArrayVarP(&questions, "question", "q", nil, "question to ask, repeatable")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "CSV or .xlsx file with one question per row")
	return cmd
}

func formatUSD(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 6, 64)
}
