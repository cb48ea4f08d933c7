package httpx

type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

type OrganizationResponse struct {
	Name   string   `json:"name"`
	Access []string `json:"access"`
}

type CreateApplicationRequest struct {
	Name string `json:"name"`
}

type ApplicationResponse struct {
	Organization string `json:"organization"`
	Name         string `json:"name"`
	Workspace    string `json:"workspace"`
}

type AddUserRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	Role string `json:"role"`
}

type CreateReleaseRequest struct {
	PackageVersion int    `json:"package_version"`
	ConfigVersion  string `json:"config_version"`
	RolloutPercent int    `json:"rollout_percent"`
}

type ReleaseResponse struct {
	ID             string `json:"id"`
	Organization   string `json:"organization"`
	Application    string `json:"application"`
	PackageVersion int    `json:"package_version"`
	ConfigVersion  string `json:"config_version"`
	RolloutPercent int    `json:"rollout_percent"`
	ExperimentID   string `json:"experiment_id,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
