package routes

import "net/http"

const (
	ROOT = "/"

	AUTH                    = ROOT + "auth"
	AUTH_LOGIN              = AUTH + "/login/"
	AUTH_LOGOUT             = AUTH + "/logout/"
	AUTH_REGISTRATION       = AUTH + "/registration/"
	AUTH_TOKEN_REFRESH      = AUTH + "/token/refresh/"
	POST_AUTH_LOGIN         = http.MethodPost + " " + AUTH_LOGIN
	POST_AUTH_LOGOUT        = http.MethodPost + " " + AUTH_LOGOUT
	POST_AUTH_REGISTRATION  = http.MethodPost + " " + AUTH_REGISTRATION
	POST_AUTH_TOKEN_REFRESH = http.MethodPost + " " + AUTH_TOKEN_REFRESH

	PROJECT             = ROOT + "project/"
	GET_PROJECTS        = http.MethodGet + " " + PROJECT  // Route GET
	POST_PROJECT        = http.MethodPost + " " + PROJECT // Route POST
	TOKEN_COST          = PROJECT + "token-cost/"
	POST_TOKEN_COST     = http.MethodPost + " " + TOKEN_COST
	AI_MODELS           = PROJECT + "ai_models/"
	GET_AI_MODELS       = http.MethodGet + " " + AI_MODELS
	SILICON_PERSON      = PROJECT + "silicon_person/" // ?project_id=
	GET_SILICON_PERSONS = http.MethodGet + " " + SILICON_PERSON

	METRICS     = ROOT + "metrics"
	GET_METRICS = http.MethodGet + " " + METRICS
)

// Unauthenticated lists the routes reachable without an access token. Their
// authorization failures are final and never trigger a credential refresh.
var Unauthenticated = []string{
	AUTH_LOGIN,
	AUTH_REGISTRATION,
	AUTH_TOKEN_REFRESH,
}
