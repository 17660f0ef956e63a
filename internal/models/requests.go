package models

type UploadRequest struct {
	JobID string `form:"job_id" validate:"omitempty,uuid"`
}

type UploadResponse struct {
	Items []UploadItem `json:"items"`
}

type CreateJobRequest struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Department   string   `json:"department" validate:"max=100"`
	Location     string   `json:"location" validate:"max=100"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements" validate:"dive,required"`
}

type CandidateSearchResult struct {
	Score     float32   `json:"score"`
	Candidate Candidate `json:"candidate"`
}

type ClearResponse struct {
	Removed int `json:"removed"`
}
